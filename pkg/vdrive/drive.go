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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
const (
	commandChannel = 15
	dataChannels   = 15
	memorySize     = 0x10000
	romVersionAddr = 0xe5c5
)

// CommandChannel is the secondary address of the command & error channel
const CommandChannel = commandChannel

// Drive is a virtual CBM DOS drive. It offers 15 data channels plus the
// command channel, and works on the disk image currently attached. A Drive is
// not safe for concurrent use.
type Drive struct {
	//
	unit int
	log  *log.Entry
	//
	img    *image.Image
	format diskFormat
	bam    *bam
	//
	channels [dataChannels]channel
	cmd      channel
	latch    errorLatch
	search   dirCursor
	//
	memory []byte
}

// New creates a drive with the given unit number and no image attached. The
// error channel holds the DOS version message, as after power on.
func New(unit int) *Drive {
	ret := &Drive{
		unit:   unit,
		log:    log.WithField("unit", unit),
		memory: make([]byte, memorySize),
	}
	ret.cmd.mode = modeCommand
	ret.initMemory()
	ret.setError(DOSVersion, 0, 0)
	return ret
}

//
func (d *Drive) Unit() int {
	return d.unit
}

// Attach inserts an image. A present image is detached first.
func (d *Drive) Attach(img *image.Image) error {

	f := newDiskFormat(img.Type())
	if f == nil {
		return fmt.Errorf("unsupported image type: %v", img.Type())
	}

	d.Detach()

	b := newBAM(f, img)
	if err := b.read(); err != nil {
		return err
	}

	d.img = img
	d.format = f
	d.bam = b
	d.initMemory()

	d.log.WithFields(log.Fields{
		"type":   img.Type(),
		"tracks": img.Tracks(),
	}).Info("image attached")

	return nil
}

// Detach removes the present image, if any, and returns it. Files still open
// for writing are closed first.
func (d *Drive) Detach() *image.Image {

	if d.img == nil {
		return nil
	}

	d.closeAll()

	ret := d.img
	d.img = nil
	d.format = nil
	d.bam = nil

	d.log.Info("image detached")
	return ret
}

//
func (d *Drive) Image() *image.Image {
	return d.img
}

// IsAttached tells whether a disk image is in the drive
func (d *Drive) IsAttached() bool {
	return d.img != nil
}

// FreeBlocks returns the number of free blocks on the attached disk
func (d *Drive) FreeBlocks() int {
	if d.bam == nil {
		return 0
	}
	return d.bam.freeBlocks()
}

// dosVersion is the DOS version message of the drive model matching the
// attached image; a 1541 without image
func (d *Drive) dosVersion() string {
	if d.format == nil {
		return (&cbm1541{}).dosVersion()
	}
	return d.format.dosVersion()
}

// setError renders an error into the command channel, unless an error is
// already pending. OK always gets through and clears a pending error.
func (d *Drive) setError(code ErrorCode, track, sector int) {

	if !d.latch.offer(code, track, sector) {
		d.log.WithFields(log.Fields{
			"code":    int(code),
			"pending": int(d.latch.peek().code),
		}).Trace("error dropped, another one is pending")
		return
	}

	msg := code.Message()
	if code == DOSVersion {
		msg = d.dosVersion()
	}

	d.cmd.buf = []byte(fmt.Sprintf("%02d,%s,%02d,%02d\r",
		int(code), msg, track, sector))
	d.cmd.cursor = 0
	d.cmd.length = len(d.cmd.buf)
	d.cmd.access = accessRead

	if code != OK {
		d.log.WithFields(log.Fields{
			"code": int(code), "track": track, "sector": sector,
		}).Debugf("error: %s", msg)
	}
}

// report latches the error for err, and returns err unchanged
func (d *Drive) report(err error) error {
	code, track, sector := codeOf(err)
	d.setError(code, track, sector)
	return err
}

// Status reads the complete error channel message, and clears it. Any
// command still waiting in the command channel gets executed first.
func (d *Drive) Status() string {
	var ret []byte
	for {
		b, err := d.readCommand()
		if err != nil {
			break
		}
		ret = append(ret, b)
	}
	return string(ret)
}

// closeAll closes all data channels, finishing any files open for writing
func (d *Drive) closeAll() {
	for ix := range d.channels {
		if d.channels[ix].isOpen() {
			if err := d.closeData(&d.channels[ix]); err != nil {
				d.log.Errorf("error closing channel %d: %v", ix, err)
			}
		}
	}
}

// initMemory sets up the drive's memory map, with the unit number in zero
// page, and the DOS version message in ROM
func (d *Drive) initMemory() {
	for ix := range d.memory {
		d.memory[ix] = 0
	}
	d.memory[0x77] = byte(d.unit + 0x20)
	d.memory[0x78] = byte(d.unit + 0x40)
	copy(d.memory[romVersionAddr:], d.dosVersion())
}

// writable checks that an image is attached and not write protected
func (d *Drive) writable() error {
	if d.img == nil {
		return DriveNotReady
	}
	if d.img.IsReadOnly() {
		return WriteProtectOn
	}
	return nil
}
