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
	"github.com/xelalexv/cbmdrive/pkg/image"
)

// location of a track's BAM entry; the free count and the bitmap may live in
// different BAM blocks, as is the case for the second side of a 1571
type entryLoc struct {
	countBlock  int
	count       int
	bitmapBlock int
	bitmap      int
	size        int
}

//
type ts struct {
	track  int
	sector int
}

// diskFormat describes where a disk format keeps its header, BAM, and
// directory, and how it allocates sectors. A drive picks the format matching
// the attached image.
type diskFormat interface {
	// BAM blocks in chain order, header block first
	bamBlocks() []ts
	// first directory sector
	directory() ts
	//
	entry(track int) entryLoc
	// system tracks are skipped when allocating and counting free blocks
	isSystemTrack(track int) bool
	//
	interleave() int
	// offsets of the disk name & id within the header block
	nameOffset() int
	idOffset() int
	// fresh lays out header & BAM blocks for a newly formatted disk; all
	// entries are left at zero
	fresh(blocks [][]byte, name, id []byte)
	// reserve allocates the sectors beyond the header chain that a format
	// keeps for itself
	reserve(b *bam) error
	//
	dosVersion() string
	//
	dosType() string
}

// newDiskFormat returns the format for an image type
func newDiskFormat(t image.Type) diskFormat {
	switch t {
	case image.T1541:
		return &cbm1541{}
	case image.T1571:
		return &cbm1571{}
	case image.T1581:
		return &cbm1581{}
	case image.T8050:
		return &cbm8050{bamCount: 2}
	case image.T8250:
		return &cbm8050{bamCount: 4, double: true}
	}
	return nil
}

// --- 1541 --------------------------------------------------------------------

//
type cbm1541 struct{}

//
func (f *cbm1541) bamBlocks() []ts {
	return []ts{{18, 0}}
}

//
func (f *cbm1541) directory() ts {
	return ts{18, 1}
}

// tracks 36 and up are extended tracks, kept after the DOS type bytes
func (f *cbm1541) entry(track int) entryLoc {
	off := 4 + (track-1)*4
	if track > 35 {
		off = 0xc0 + (track-36)*4
	}
	return entryLoc{count: off, bitmap: off + 1, size: 3}
}

//
func (f *cbm1541) isSystemTrack(track int) bool {
	return track == 18
}

//
func (f *cbm1541) interleave() int {
	return 10
}

//
func (f *cbm1541) nameOffset() int {
	return 0x90
}

//
func (f *cbm1541) idOffset() int {
	return 0xa2
}

//
func (f *cbm1541) fresh(blocks [][]byte, name, id []byte) {
	h := blocks[0]
	h[0] = 18
	h[1] = 1
	h[2] = 'A'
	freshHeader(h, 0x90, name, id, f.dosType())
}

//
func (f *cbm1541) reserve(b *bam) error {
	return nil
}

//
func (f *cbm1541) dosVersion() string {
	return "CBM DOS V2.6 1541"
}

//
func (f *cbm1541) dosType() string {
	return "2A"
}

// freshHeader writes name, id, and DOS type in the layout shared by all
// formats: 16 bytes name, two pad bytes, id, pad, DOS type, four pad bytes
func freshHeader(h []byte, nameOff int, name, id []byte, dos string) {
	pad(h[nameOff:nameOff+nameLength], name)
	off := nameOff + nameLength
	h[off] = namePad
	h[off+1] = namePad
	pad(h[off+2:off+4], id)
	h[off+4] = namePad
	copy(h[off+5:off+7], dos)
	for ix := off + 7; ix < off+11; ix++ {
		h[ix] = namePad
	}
}

// --- 1571 --------------------------------------------------------------------

// cbm1571 is a double sided 1541; side two has its bitmaps in 53/0, and its
// free counts at the end of 18/0
type cbm1571 struct {
	cbm1541
}

//
func (f *cbm1571) bamBlocks() []ts {
	return []ts{{18, 0}, {53, 0}}
}

//
func (f *cbm1571) entry(track int) entryLoc {
	if track <= 35 {
		return f.cbm1541.entry(track)
	}
	idx := track - 36
	return entryLoc{
		count:       0xdd + idx,
		bitmapBlock: 1,
		bitmap:      idx * 3,
		size:        3,
	}
}

//
func (f *cbm1571) isSystemTrack(track int) bool {
	return track == 18 || track == 53
}

//
func (f *cbm1571) fresh(blocks [][]byte, name, id []byte) {
	f.cbm1541.fresh(blocks, name, id)
	blocks[0][3] = 0x80
}

// all of track 53 is reserved
func (f *cbm1571) reserve(b *bam) error {
	for s := 0; s < b.img.Sectors(53); s++ {
		b.allocate(53, s)
	}
	return nil
}

//
func (f *cbm1571) dosVersion() string {
	return "CBM DOS V3.0 1571"
}

// --- 1581 --------------------------------------------------------------------

//
type cbm1581 struct{}

//
func (f *cbm1581) bamBlocks() []ts {
	return []ts{{40, 0}, {40, 1}, {40, 2}}
}

//
func (f *cbm1581) directory() ts {
	return ts{40, 3}
}

//
func (f *cbm1581) entry(track int) entryLoc {
	off := 0x10 + ((track-1)%40)*6
	block := 1 + (track-1)/40
	return entryLoc{
		countBlock:  block,
		count:       off,
		bitmapBlock: block,
		bitmap:      off + 1,
		size:        5,
	}
}

//
func (f *cbm1581) isSystemTrack(track int) bool {
	return track == 40
}

//
func (f *cbm1581) interleave() int {
	return 1
}

//
func (f *cbm1581) nameOffset() int {
	return 0x04
}

//
func (f *cbm1581) idOffset() int {
	return 0x16
}

//
func (f *cbm1581) fresh(blocks [][]byte, name, id []byte) {

	h := blocks[0]
	h[0] = 40
	h[1] = 3
	h[2] = 'D'
	freshHeader(h, 0x04, name, id, f.dosType())

	for ix, b := range blocks[1:] {
		if ix == 0 {
			b[0] = 40
			b[1] = 2
		} else {
			b[0] = 0
			b[1] = 0xff
		}
		b[2] = 'D'
		b[3] = 0xbb
		pad(b[4:6], id)
		b[6] = 0xc0
		b[7] = 0
	}
}

// the two BAM blocks are not on the header chain
func (f *cbm1581) reserve(b *bam) error {
	b.allocate(40, 1)
	b.allocate(40, 2)
	return nil
}

//
func (f *cbm1581) dosVersion() string {
	return "COPYRIGHT CBM DOS V10 1581"
}

//
func (f *cbm1581) dosType() string {
	return "3D"
}

// --- 8050 & 8250 -------------------------------------------------------------

// cbm8050 covers both the 8050 and the 8250, which differ only in the number
// of BAM blocks, 50 tracks per block
type cbm8050 struct {
	bamCount int
	double   bool
}

//
func (f *cbm8050) bamBlocks() []ts {
	ret := []ts{{39, 0}}
	for ix := 0; ix < f.bamCount; ix++ {
		ret = append(ret, ts{38, ix * 3})
	}
	return ret
}

//
func (f *cbm8050) directory() ts {
	return ts{39, 1}
}

//
func (f *cbm8050) entry(track int) entryLoc {
	off := 6 + ((track-1)%50)*5
	block := 1 + (track-1)/50
	return entryLoc{
		countBlock:  block,
		count:       off,
		bitmapBlock: block,
		bitmap:      off + 1,
		size:        4,
	}
}

//
func (f *cbm8050) isSystemTrack(track int) bool {
	return track == 39
}

//
func (f *cbm8050) interleave() int {
	return 1
}

//
func (f *cbm8050) nameOffset() int {
	return 0x06
}

//
func (f *cbm8050) idOffset() int {
	return 0x18
}

//
func (f *cbm8050) fresh(blocks [][]byte, name, id []byte) {

	locs := f.bamBlocks()
	dir := f.directory()

	for ix, b := range blocks {
		next := dir
		if ix+1 < len(locs) {
			next = locs[ix+1]
		}
		b[0] = byte(next.track)
		b[1] = byte(next.sector)
		b[2] = 'C'
		if ix > 0 {
			b[4] = byte(1 + (ix-1)*50)
			b[5] = byte(1 + ix*50)
		}
	}

	freshHeader(blocks[0], 0x06, name, id, f.dosType())
}

//
func (f *cbm8050) reserve(b *bam) error {
	return nil
}

//
func (f *cbm8050) dosVersion() string {
	if f.double {
		return "CBM DOS V2.7 8250"
	}
	return "CBM DOS V2.7 8050"
}

//
func (f *cbm8050) dosType() string {
	return "2C"
}
