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

package daemon

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
type fakePort struct {
	in     *bytes.Reader
	out    bytes.Buffer
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

// useTempHome points auto-saving to a temporary folder
func useTempHome(t *testing.T) {
	old := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { os.Setenv("HOME", old) })
}

// newTestDaemon returns a daemon with a freshly formatted 1541 image in unit 8
func newTestDaemon(t *testing.T) *Daemon {

	useTempHome(t)

	d := NewDaemon("")
	img, err := image.NewBlank(image.T1541)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Attach(8, img, false); err != nil {
		t.Fatalf("cannot attach: %v", err)
	}
	if msg, err := d.Execute(8, "N0:BUS,01"); err != nil || msg != "00, OK,00,00\r" {
		t.Fatalf("format failed: %q, %v", msg, err)
	}
	return d
}

// run feeds frames to the daemon's command dispatcher, and returns everything
// sent back to the adapter
func run(t *testing.T, d *Daemon, frames ...[]byte) []byte {

	port := &fakePort{in: bytes.NewReader(bytes.Join(frames, nil))}
	d.conduit = &conduit{client: clientBus, port: port}

	for {
		cmd, err := d.conduit.receiveCommand()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("error receiving command: %v", err)
		}
		if err := cmd.dispatch(d); err != nil {
			t.Fatalf("error dispatching command %v: %v", cmd.data, err)
		}
	}

	return port.out.Bytes()
}

//
func frame(cmd byte, unit, secondary int, arg int, payload string) []byte {
	return append([]byte{cmd, byte(unit), byte(secondary), byte(arg)},
		payload...)
}

//
func withName(cmd byte, unit, secondary int, name string) []byte {
	return frame(cmd, unit, secondary, len(name), name)
}

//
func writeData(t *testing.T, d *Daemon, name, data string) {
	out := run(t, d,
		withName(CmdOpen, 8, 1, name),
		withName(CmdWrite, 8, 1, data),
		frame(CmdClose, 8, 1, 0, ""))
	if !bytes.Equal(out, []byte{StatusOK, StatusOK, StatusOK}) {
		t.Fatalf("writing %s failed: %v", name, out)
	}
}

func TestBusWriteAndRead(t *testing.T) {

	d := newTestDaemon(t)
	writeData(t, d, "DATA,S,W", "HELLO")

	out := run(t, d,
		withName(CmdOpen, 8, 2, "DATA,S,R"),
		frame(CmdRead, 8, 2, 10, ""),
		frame(CmdClose, 8, 2, 0, ""))

	want := append([]byte{StatusOK, 5, StatusEOI}, "HELLO"...)
	want = append(want, StatusOK)
	if !bytes.Equal(out, want) {
		t.Errorf("want %v, got %v", want, out)
	}
}

func TestBusReadAhead(t *testing.T) {

	d := newTestDaemon(t)
	writeData(t, d, "DATA,S,W", "HELLO")

	out := run(t, d,
		withName(CmdOpen, 8, 2, "DATA"),
		frame(CmdRead, 8, 2, 3, ""),
		frame(CmdRead, 8, 2, 3, ""),
		frame(CmdRead, 8, 2, 3, ""))

	want := []byte{StatusOK}
	want = append(want, 3, StatusOK, 'H', 'E', 'L')
	want = append(want, 2, StatusEOI, 'L', 'O')
	want = append(want, 0, StatusTimeout)
	if !bytes.Equal(out, want) {
		t.Errorf("want %v, got %v", want, out)
	}
}

func TestBusExactLength(t *testing.T) {

	d := newTestDaemon(t)
	writeData(t, d, "DATA,S,W", "HELLO")

	out := run(t, d,
		withName(CmdOpen, 8, 2, "DATA"),
		frame(CmdRead, 8, 2, 5, ""))

	want := append([]byte{StatusOK, 5, StatusEOI}, "HELLO"...)
	if !bytes.Equal(out, want) {
		t.Errorf("want %v, got %v", want, out)
	}
}

func TestBusCommandChannel(t *testing.T) {

	d := newTestDaemon(t)
	writeData(t, d, "DATA,S,W", "HELLO")

	out := run(t, d,
		withName(CmdWrite, 8, 15, "S0:DATA"),
		frame(CmdFlush, 8, 15, 0, ""),
		frame(CmdRead, 8, 15, 0, ""))

	msg := "01,FILES SCRATCHED,01,00\r"
	want := append([]byte{StatusOK, StatusOK, byte(len(msg)), StatusEOI},
		msg...)
	if !bytes.Equal(out, want) {
		t.Errorf("want %q, got %q", want, out)
	}

	l, err := d.Directory(8, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Files) != 0 {
		t.Errorf("file not scratched: %v", l.Files)
	}
}

func TestBusFileNotFound(t *testing.T) {

	d := newTestDaemon(t)

	out := run(t, d,
		withName(CmdOpen, 8, 2, "NOPE"),
		frame(CmdRead, 8, 2, 0, ""),
		frame(CmdRead, 8, 15, 0, ""))

	msg := "62,FILE NOT FOUND,00,00\r"
	want := []byte{StatusTimeout, 0, StatusTimeout, byte(len(msg)), StatusEOI}
	want = append(want, msg...)
	if !bytes.Equal(out, want) {
		t.Errorf("want %q, got %q", want, out)
	}
}

func TestBusNotPresent(t *testing.T) {

	d := newTestDaemon(t)

	out := run(t, d,
		withName(CmdOpen, 10, 0, "$"),
		frame(CmdRead, 10, 0, 0, ""),
		frame(CmdClose, 10, 0, 0, ""))

	want := []byte{StatusNotPresent, 0, StatusNotPresent, StatusNotPresent}
	if !bytes.Equal(out, want) {
		t.Errorf("want %v, got %v", want, out)
	}
}

func TestBusBusy(t *testing.T) {

	d := newTestDaemon(t)

	u := d.getUnit(8)
	if !u.acquire(busTimeout) {
		t.Fatal("cannot lock unit")
	}
	defer u.release()

	out := run(t, d, withName(CmdOpen, 8, 0, "$"))
	if !bytes.Equal(out, []byte{StatusTimeout}) {
		t.Errorf("want timeout, got %v", out)
	}

	if info, _ := d.GetInfo(8); info.Status != StatusBusy {
		t.Errorf("want status %s, got %s", StatusBusy, info.Status)
	}
}

func TestPing(t *testing.T) {
	d := newTestDaemon(t)
	if out := run(t, d, ping); !bytes.Equal(out, pong) {
		t.Errorf("want pong, got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	d := NewDaemon("")
	cmd := newCommand([]byte("xxxx"))
	if err := cmd.dispatch(d); err == nil {
		t.Error("want error for unknown command")
	}
}

func TestSyncOnHello(t *testing.T) {

	gap := helloGap
	helloGap = 0
	defer func() { helloGap = gap }()

	port := &fakePort{in: bytes.NewReader([]byte("xyhlobhlob"))}
	c := &conduit{port: port}

	if err := c.syncOnHello(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if c.client != clientBus {
		t.Errorf("want client %s, got %s", clientBus, c.client)
	}
	if !bytes.Equal(port.out.Bytes(), helloDaemon) {
		t.Errorf("want daemon hello, got %q", port.out.Bytes())
	}
}

func TestAttachDetach(t *testing.T) {

	d := newTestDaemon(t)

	if err := d.Detach(8, false); err == nil ||
		!strings.Contains(err.Error(), "modified") {
		t.Errorf("want modified error, got %v", err)
	}

	img, _ := image.NewBlank(image.T1571)
	if err := d.Attach(8, img, false); err == nil {
		t.Error("attach should not replace modified image")
	}
	if err := d.Attach(8, img, true); err != nil {
		t.Fatalf("forced attach failed: %v", err)
	}

	info, err := d.GetInfo(8)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != StatusIdle || info.Type != "1571" {
		t.Errorf("unexpected info: %+v", info)
	}

	if err := d.Detach(8, false); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if info, _ := d.GetInfo(8); info.Status != StatusEmpty {
		t.Errorf("want status %s, got %s", StatusEmpty, info.Status)
	}

	if err := d.Attach(7, img, false); err == nil {
		t.Error("want error for illegal unit")
	}
}

func TestSave(t *testing.T) {

	d := newTestDaemon(t)

	info, _ := d.GetInfo(8)
	if info.Name != "BUS" || info.ID != "01" || info.BlocksFree != 664 ||
		!info.Modified {
		t.Errorf("unexpected info: %+v", info)
	}

	fm, err := image.NewFormat("d64")
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := d.Save(8, fm, &out); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if out.Len() != 174848 {
		t.Errorf("want 174848 bytes, got %d", out.Len())
	}
	if info, _ := d.GetInfo(8); info.Modified {
		t.Error("image still modified after save")
	}

	if err := d.Save(9, fm, &out); err == nil {
		t.Error("want error for empty unit")
	}
}

func TestStopAutoSaves(t *testing.T) {

	d := newTestDaemon(t)
	writeData(t, d, "KEEP,S,W", "DATA")

	if err := d.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	d = NewDaemon("")
	d.autoLoad()

	l, err := d.Directory(8, "")
	if err != nil {
		t.Fatalf("no image auto-loaded: %v", err)
	}
	if len(l.Files) != 1 || l.Files[0].Name != "KEEP" {
		t.Errorf("unexpected directory: %+v", l.Files)
	}

	d.Stop()
	if err := d.Serve(); err != ErrDaemonStopped {
		t.Errorf("want %v, got %v", ErrDaemonStopped, err)
	}
}

// pipePort is a serial port whose input is fed through a pipe
type pipePort struct {
	*io.PipeReader
	io.Writer
}

func TestClientWhileServing(t *testing.T) {

	useTempHome(t)

	gap, open := helloGap, openPort
	defer func() { helloGap, openPort = gap, open }()
	helloGap = 0

	in, feed := io.Pipe()
	openPort = func(string) (io.ReadWriteCloser, error) {
		return &pipePort{PipeReader: in, Writer: ioutil.Discard}, nil
	}

	d := NewDaemon("/dev/null")
	done := make(chan error, 1)
	go func() { done <- d.Serve() }()

	if c := d.GetClient(); c != "" {
		t.Errorf("want no client before sync, got %s", c)
	}

	if _, err := feed.Write([]byte("hlobhlob")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for d.GetClient() != clientBus {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not sync with adapter")
		}
		time.Sleep(time.Millisecond)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	select {
	case err := <-done:
		if err != ErrDaemonStopped {
			t.Errorf("want %v, got %v", ErrDaemonStopped, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if c := d.GetClient(); c != "" {
		t.Errorf("want no client after stop, got %s", c)
	}
}
