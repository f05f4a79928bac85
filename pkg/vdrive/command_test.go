/*
   CBMDrive - Commodore floppy drive emulator
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of CBMDrive.

   CBMDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   CBMDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with CBMDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package vdrive

import (
	"bytes"
	"testing"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
func names(l *Listing) []string {
	var ret []string
	for _, f := range l.Files {
		ret = append(ret, f.Name)
	}
	return ret
}

func TestScratch(t *testing.T) {

	d := newFormatted(t, image.T1541)
	for _, n := range []string{"AA", "AB", "BA"} {
		writeFile(t, d, n+",P,W", pattern(10))
	}

	if code := d.Execute([]byte("S0:A*")); code != FilesScratched {
		t.Errorf("want code %d, got %d", FilesScratched, code)
	}
	if s := d.Status(); s != "01,FILES SCRATCHED,02,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	l, _ := d.Directory("")
	if n := names(l); len(n) != 1 || n[0] != "BA" {
		t.Errorf("unexpected files after scratch: %v", n)
	}
	if l.BlocksFree != 663 {
		t.Errorf("want 663 blocks free, got %d", l.BlocksFree)
	}
}

func TestScratchMultipleAndLocked(t *testing.T) {

	d := newFormatted(t, image.T1541)
	for _, n := range []string{"AA", "AB", "BA", "CA"} {
		writeFile(t, d, n+",P,W", pattern(10))
	}

	// lock AB
	ref := d.dirFindFirst([]byte("AB"), anyType)
	ref.slot[slotType] |= flagLocked
	if err := d.dirWriteSlot(ref); err != nil {
		t.Fatal(err)
	}

	d.Execute([]byte("S:A*,0:C?"))
	if s := d.Status(); s != "01,FILES SCRATCHED,02,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	l, _ := d.Directory("")
	if n := names(l); len(n) != 2 || n[0] != "AB" || n[1] != "BA" {
		t.Errorf("unexpected files after scratch: %v", n)
	}
	if !l.Files[0].Locked {
		t.Error("AB should still be locked")
	}
}

func TestScratchNothing(t *testing.T) {
	d := newFormatted(t, image.T1541)
	d.Execute([]byte("S0:NONE"))
	if s := d.Status(); s != "01,FILES SCRATCHED,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestRename(t *testing.T) {

	d := newFormatted(t, image.T1541)
	writeFile(t, d, "OLD,P,W", []byte("DATA"))
	writeFile(t, d, "OTHER,P,W", []byte("DATA"))

	if code := d.Execute([]byte("R0:NEW,S=OLD")); code != OK {
		t.Fatalf("rename failed: %s", d.Status())
	}

	l, _ := d.Directory("NEW")
	if len(l.Files) != 1 || l.Files[0].Type != "SEQ" {
		t.Errorf("unexpected files after rename: %+v", l.Files)
	}
	if got := readFile(t, d, 2, "NEW"); string(got) != "DATA" {
		t.Errorf("unexpected content: %q", got)
	}

	d.Execute([]byte("R0:OTHER=NEW"))
	if s := d.Status(); s != "63,FILE EXISTS,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Execute([]byte("R0:X=MISSING"))
	if s := d.Status(); s != "62,FILE NOT FOUND,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Execute([]byte("R0:X"))
	if s := d.Status(); s != "30,SYNTAX ERROR,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestCopy(t *testing.T) {

	d := newFormatted(t, image.T1541)
	one := pattern(300)
	two := []byte("SECOND")
	writeFile(t, d, "ONE,P,W", one)
	writeFile(t, d, "TWO,S,W", two)

	if code := d.Execute([]byte("C0:BOTH=0:ONE,0:TWO")); code != OK {
		t.Fatalf("copy failed: %s", d.Status())
	}

	want := append(append([]byte(nil), one...), two...)
	if got := readFile(t, d, 2, "BOTH"); !bytes.Equal(got, want) {
		t.Errorf("unexpected content, %d bytes", len(got))
	}

	l, _ := d.Directory("BOTH")
	if len(l.Files) != 1 || l.Files[0].Type != "PRG" || l.Files[0].Blocks != 2 {
		t.Errorf("unexpected copy: %+v", l.Files)
	}

	free := d.FreeBlocks()
	d.Execute([]byte("C0:BAD=ONE,MISSING"))
	if s := d.Status(); s != "62,FILE NOT FOUND,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
	if d.FreeBlocks() != free {
		t.Error("failed copy should not use blocks")
	}
}

func TestValidate(t *testing.T) {

	d := newFormatted(t, image.T1541)
	writeFile(t, d, "ONE,P,W", pattern(1000))
	writeFile(t, d, "TWO,S,W", pattern(100))

	before := d.bam.snapshot()

	if code := d.Execute([]byte("V")); code != OK {
		t.Fatalf("validate failed: %s", d.Status())
	}
	first := d.bam.snapshot()

	if code := d.Execute([]byte("V0")); code != OK {
		t.Fatalf("validate failed: %s", d.Status())
	}
	second := d.bam.snapshot()

	for ix := range first {
		if !bytes.Equal(first[ix], second[ix]) {
			t.Error("validate is not idempotent")
		}
		if !bytes.Equal(before[ix], first[ix]) {
			t.Error("validate changed a consistent BAM")
		}
	}
}

func TestValidateFixesBAM(t *testing.T) {

	d := newFormatted(t, image.T1541)
	writeFile(t, d, "KEEP,P,W", pattern(600))
	free := d.FreeBlocks()

	// leaked block, and a file that was never closed
	d.Execute([]byte("B-A 0 1 5"))
	ref, err := d.dirFindFree()
	if err != nil {
		t.Fatal(err)
	}
	ref.slot.setName([]byte("SPLAT"))
	ref.slot.setFileType(SEQ)
	ref.slot.setFirst(1, 7)
	if err := d.dirWriteSlot(ref); err != nil {
		t.Fatal(err)
	}

	if code := d.Execute([]byte("V")); code != OK {
		t.Fatalf("validate failed: %s", d.Status())
	}

	if d.FreeBlocks() != free {
		t.Errorf("want %d blocks free, got %d", free, d.FreeBlocks())
	}
	l, _ := d.Directory("")
	if n := names(l); len(n) != 1 || n[0] != "KEEP" {
		t.Errorf("unclosed file not removed: %v", n)
	}
}

func TestValidateBrokenChain(t *testing.T) {

	d := newFormatted(t, image.T1541)
	writeFile(t, d, "BROKEN,P,W", pattern(10))

	ref := d.dirFindFirst([]byte("BROKEN"), anyType)
	tr, s := ref.slot.first()
	data, _ := d.img.ReadSector(tr, s)
	data[0], data[1] = 99, 0
	d.img.WriteSector(tr, s, data)

	before := d.bam.snapshot()
	if code := d.Execute([]byte("V")); code != IllegalTrackOrSector {
		t.Errorf("want code %d, got %d", IllegalTrackOrSector, code)
	}
	if s := d.Status(); s != "66,ILLEGAL TRACK OR SECTOR,99,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	for ix, b := range d.bam.snapshot() {
		if !bytes.Equal(before[ix], b) {
			t.Error("BAM should be restored after failed validate")
		}
	}
}

func TestInitialize(t *testing.T) {

	d := newFormatted(t, image.T1541)
	if err := d.Open(2, []byte("#")); err != nil {
		t.Fatal(err)
	}

	d.bam.allocate(1, 0)
	if code := d.Execute([]byte("I0")); code != OK {
		t.Fatalf("initialize failed: %s", d.Status())
	}
	if !d.bam.isFree(1, 0) {
		t.Error("BAM not re-read")
	}
	if d.channels[2].isOpen() {
		t.Error("initialize should close channels")
	}
}

func TestFormatErrors(t *testing.T) {

	d := newFormatted(t, image.T1541)

	d.Execute([]byte("N0:"))
	if s := d.Status(); s != "34,SYNTAX ERROR,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Image().SetReadOnly(true)
	d.Execute([]byte("N0:DISK,ID"))
	if s := d.Status(); s != "26,WRITE PROTECT ON,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestFormatBlankID(t *testing.T) {
	d := newFormatted(t, image.T1541)
	d.Execute([]byte("N:OTHER"))
	if id := d.bam.diskID(); id[0] != namePad || id[1] != namePad {
		t.Errorf("want blank id, got % x", id)
	}
}

func TestBlockAllocate(t *testing.T) {

	d := newFormatted(t, image.T1541)

	if code := d.Execute([]byte("B-A 0 1 0")); code != OK {
		t.Fatalf("allocate failed: %s", d.Status())
	}
	if d.FreeBlocks() != 663 {
		t.Errorf("want 663 blocks free, got %d", d.FreeBlocks())
	}

	d.Execute([]byte("B-A 0 1 0"))
	if s := d.Status(); s != "65,NO BLOCK,01,10\r" {
		t.Errorf("unexpected status: %q", s)
	}
	if !d.bam.isFree(1, 10) {
		t.Error("suggested block must not be allocated")
	}

	d.Execute([]byte("B-A 0 18 0"))
	if s := d.Status(); s != "65,NO BLOCK,19,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Execute([]byte("B-A 0 36 0"))
	if s := d.Status(); s != "66,ILLEGAL TRACK OR SECTOR,36,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	if code := d.Execute([]byte("B-F 0 1 0")); code != OK {
		t.Fatalf("free failed: %s", d.Status())
	}
	if d.FreeBlocks() != 664 {
		t.Errorf("want 664 blocks free, got %d", d.FreeBlocks())
	}

	d.Execute([]byte("B-A"))
	if s := d.Status(); s != "30,SYNTAX ERROR,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestBlockReadWrite(t *testing.T) {

	d := newFormatted(t, image.T1541)

	if err := d.Open(2, []byte("#")); err != nil {
		t.Fatal(err)
	}

	if code := d.Execute([]byte("U1 2 0 18 0")); code != OK {
		t.Fatalf("U1 failed: %s", d.Status())
	}
	if b, _ := d.Read(2); b != 18 {
		t.Errorf("want 18 as first byte of BAM, got %d", b)
	}

	if code := d.Execute([]byte("B-P 2 0")); code != OK {
		t.Fatalf("B-P failed: %s", d.Status())
	}
	for _, b := range []byte("HELLO") {
		d.Write(2, b)
	}
	if code := d.Execute([]byte("B-W:2,0,1,0")); code != OK {
		t.Fatalf("B-W failed: %s", d.Status())
	}

	data, _ := d.img.ReadSector(1, 0)
	if !bytes.HasPrefix(data, []byte("HELLO")) {
		t.Errorf("unexpected sector content: % x", data[:8])
	}

	if code := d.Execute([]byte("B-R 2 0 1 0")); code != OK {
		t.Fatalf("B-R failed: %s", d.Status())
	}
	if b, _ := d.Read(2); b != 'H' {
		t.Errorf("want H, got %c", b)
	}

	d.Execute([]byte("U1 3 0 18 0"))
	if s := d.Status(); s != "70,NO CHANNEL,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Execute([]byte("U1 2 0 18 19"))
	if s := d.Status(); s != "66,ILLEGAL TRACK OR SECTOR,18,19\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Image().SetReadOnly(true)
	d.Execute([]byte("U2 2 0 1 0"))
	if s := d.Status(); s != "26,WRITE PROTECT ON,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestMemoryRead(t *testing.T) {

	d := New(9)
	d.Status()

	d.Execute(append([]byte("M-R"), 0x77, 0x00, 0x02, '\r'))
	if s := d.Status(); s != string([]byte{9 + 0x20, 9 + 0x40}) {
		t.Errorf("unexpected memory contents: % x", s)
	}

	d.Execute(append([]byte("M-R"), 0xc5, 0xe5, 0x0c))
	if s := d.Status(); s != "CBM DOS V2.6" {
		t.Errorf("unexpected ROM contents: %q", s)
	}

	d.Execute(append([]byte("M-W"), 0x00, 0x05, 0x01, 0x60))
	if s := d.Status(); s != "03,UNIMPLEMENTED,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	d.Execute([]byte("M-E\x00\x05"))
	if s := d.Status(); s != "03,UNIMPLEMENTED,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestUserCommands(t *testing.T) {

	d := newFormatted(t, image.T1581)
	if err := d.Open(2, []byte("#")); err != nil {
		t.Fatal(err)
	}

	d.Execute([]byte("UJ"))
	if s := d.Status(); s != "73,COPYRIGHT CBM DOS V10 1581,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
	if d.channels[2].isOpen() {
		t.Error("reset should close channels")
	}

	d.Execute([]byte("U9"))
	if s := d.Status(); s != "73,COPYRIGHT CBM DOS V10 1581,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}

	for _, u := range []string{"U3", "UC", "U8", "UK", "UP"} {
		d.Execute([]byte(u))
		if s := d.Status(); s != "74,DRIVE NOT READY,00,00\r" {
			t.Errorf("%s: unexpected status: %q", u, s)
		}
	}
}

func TestPosition(t *testing.T) {
	d := newFormatted(t, image.T1541)
	d.Execute([]byte{'P', 0x62, 1, 0, 1})
	if s := d.Status(); s != "70,NO CHANNEL,00,00\r" {
		t.Errorf("unexpected status: %q", s)
	}
}

func TestParams(t *testing.T) {

	c := &command{data: []byte("B-P:2 1 2 3 4 5 ")}
	p, err := c.params(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 4 || p[0] != 2 || p[3] != 3 {
		t.Errorf("want first four numbers, got %v", p)
	}

	c = &command{data: []byte("B-P:2,17")}
	if p, err = c.params(3, 2); err != nil || len(p) != 2 || p[1] != 17 {
		t.Errorf("want [2 17], got %v, %v", p, err)
	}
	if _, err = c.params(3, 3); err != SyntaxError {
		t.Errorf("want syntax error for missing number, got %v", err)
	}
}
