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
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

/*
	Open opens channel secondary with the given file name. Secondary 15 is the
	command channel; opening it with a name executes the name as a command.
	The outcome is also available from the error channel.
*/
func (d *Drive) Open(secondary int, name []byte) error {

	if secondary == commandChannel {
		if len(name) > 0 {
			d.Execute(name)
		} else {
			d.setError(OK, 0, 0)
		}
		return nil
	}

	c, err := d.dataChannel(secondary)
	if err != nil {
		return d.report(err)
	}

	wasOpen := c.isOpen()
	if err := d.openData(c, name, secondary); err != nil {
		if !wasOpen {
			c.reset()
		}
		d.log.WithFields(log.Fields{
			"channel": secondary,
			"name":    string(name),
		}).Debugf("open failed: %v", err)
		return d.report(err)
	}

	d.log.WithFields(log.Fields{
		"channel": secondary,
		"name":    string(name),
		"mode":    c.mode,
		"access":  c.access,
	}).Trace("channel opened")

	d.setError(OK, 0, 0)
	return nil
}

//
func (d *Drive) dataChannel(secondary int) (*channel, error) {
	if secondary < 0 || secondary >= dataChannels {
		return nil, NoChannel
	}
	return &d.channels[secondary], nil
}

// openData opens a data channel. Name '#' gives a memory buffer, '$' the
// directory, anything else is a file.
func (d *Drive) openData(c *channel, name []byte, secondary int) error {

	if len(name) == 0 {
		return NoFileGiven
	}

	if c.isOpen() {
		return NoChannel
	}

	if name[0] == '#' {
		c.mode = modeMemory
		c.buf = make([]byte, image.SectorSize)
		c.length = image.SectorSize
		return nil
	}

	if d.img == nil {
		return DriveNotReady
	}

	if name[0] == '$' {
		if secondary == 0 {
			return d.openDirectory(c, name[1:])
		}
		header := d.format.bamBlocks()[0]
		c.mode = modeSequential
		c.access = accessRead
		return d.loadSector(c, header.track, header.sector)
	}

	return d.openFile(c, name, secondary)
}

// openDirectory renders the directory program into the channel buffer
func (d *Drive) openDirectory(c *channel, arg []byte) error {
	pattern, typ := parseListingPattern(stripDrive(arg))
	c.mode = modeDirectory
	c.access = accessRead
	c.buf = d.listing(pattern, typ).Program()
	c.length = len(c.buf)
	return nil
}

// openFile opens a sequential file for reading, writing, or appending
func (d *Drive) openFile(c *channel, name []byte, secondary int) error {

	fn, err := parseFilename(name)
	if err != nil {
		return err
	}
	if len(fn.name) == 0 {
		return NoFileGiven
	}

	access := fn.access
	if access == accessDefault {
		access = accessRead
		if secondary == 1 {
			access = accessWrite
		}
	}

	typ := fn.typ
	if typ == REL {
		return FileTypeMismatch
	}

	ref := d.findFile(fn.name)

	switch access {

	case accessRead:
		if ref == nil {
			return FileNotFound
		}
		if typ != anyType && ref.slot.fileType() != typ {
			return FileTypeMismatch
		}
		if ref.slot.fileType() == REL {
			return FileTypeMismatch
		}
		c.mode = modeSequential
		c.access = accessRead
		t, s := ref.slot.first()
		return d.loadSector(c, t, s)

	case accessAppend:
		if err := d.writable(); err != nil {
			return err
		}
		if ref == nil {
			return FileNotFound
		}
		if ref.slot.fileType() != SEQ || !ref.slot.isClosed() {
			return FileTypeMismatch
		}
		return d.openAppend(c, ref)
	}

	// write
	if err := d.writable(); err != nil {
		return err
	}

	if hasWildcards(fn.name) {
		return InvalidFilename
	}

	if ref != nil {
		if !fn.overwrite {
			return FileExists
		}
		if err := d.dirRemove(ref); err != nil {
			return err
		}
	}

	if typ == anyType {
		typ = SEQ
		if secondary < 2 {
			typ = PRG
		}
	}

	s := &slot{}
	s.setName(fn.name)
	s.setFileType(typ)

	c.mode = modeSequential
	c.access = accessWrite
	c.slot = s
	c.buf = make([]byte, image.SectorSize)
	c.cursor = 2
	return nil
}

// findFile returns the first entry matching name that is not a deleted file
func (d *Drive) findFile(name []byte) *slotRef {
	ref := d.dirFindFirst(name, anyType)
	for ref != nil && ref.slot.fileType() == DEL {
		ref = d.dirFindNext()
	}
	return ref
}

// openAppend loads the last sector of a file, and positions the cursor after
// its last byte
func (d *Drive) openAppend(c *channel, ref *slotRef) error {

	t, s := ref.slot.first()
	for hops := 0; ; hops++ {
		if hops > d.img.TotalSectors() {
			return errorAt(IllegalTrackOrSector, t, s)
		}
		if err := d.loadSector(c, t, s); err != nil {
			return err
		}
		if c.buf[0] == 0 {
			break
		}
		t, s = int(c.buf[0]), int(c.buf[1])
	}

	c.mode = modeSequential
	c.access = accessAppend
	c.cursor = c.length
	c.slot = ref.slot
	c.ref = ref
	return nil
}

// Close closes channel secondary. Closing the command channel closes all
// other channels as well.
func (d *Drive) Close(secondary int) error {

	if secondary == commandChannel {
		d.closeAll()
		d.setError(OK, 0, 0)
		return nil
	}

	c, err := d.dataChannel(secondary)
	if err != nil {
		return d.report(err)
	}

	if err := d.closeData(c); err != nil {
		return d.report(err)
	}

	d.log.WithField("channel", secondary).Trace("channel closed")
	return nil
}

// closeData closes a data channel. For files open for writing, the last
// block gets written, and the directory entry and BAM are updated.
func (d *Drive) closeData(c *channel) error {

	defer c.reset()

	if c.mode != modeSequential || c.access == accessRead {
		return nil
	}

	if err := d.writeBlock(c, true); err != nil {
		d.releaseBlocks(c)
		return err
	}

	ref := c.ref
	if ref == nil {
		var err error
		if ref, err = d.dirFindFree(); err != nil {
			d.releaseBlocks(c)
			return err
		}
		ref.slot = c.slot
	}

	ref.slot.setClosed(true)
	if err := d.dirWriteSlot(ref); err != nil {
		return err
	}

	return d.bam.write()
}

/*
	Read reads the next byte from channel secondary. At the end of the data,
	0xC7 is returned together with io.EOF.
*/
func (d *Drive) Read(secondary int) (byte, error) {

	if secondary == commandChannel {
		return d.readCommand()
	}

	c, err := d.dataChannel(secondary)
	if err != nil {
		return endOfData, d.report(err)
	}

	switch c.mode {

	case modeDirectory, modeMemory:
		return c.readBuffer()

	case modeSequential:
		if c.access != accessRead {
			return endOfData, d.report(FileNotOpen)
		}
		b, err := d.readSequential(c)
		if err != nil && err != io.EOF {
			d.report(err)
		}
		return b, err
	}

	return endOfData, d.report(FileNotOpen)
}

// readCommand reads the error channel; once it has been read completely, the
// pending error is cleared
func (d *Drive) readCommand() (byte, error) {

	if d.cmd.access == accessWrite {
		d.Flush(commandChannel)
	}

	b, err := d.cmd.readBuffer()
	if err == io.EOF {
		d.setError(OK, 0, 0)
	}
	return b, err
}

// Write writes a byte to channel secondary. Bytes written to the command
// channel are collected until the next Flush.
func (d *Drive) Write(secondary int, b byte) error {

	if secondary == commandChannel {
		d.writeCommand(b)
		return nil
	}

	c, err := d.dataChannel(secondary)
	if err != nil {
		return d.report(err)
	}

	switch c.mode {

	case modeMemory:
		if c.cursor >= image.SectorSize {
			return d.report(OverflowInRecord)
		}
		c.buf[c.cursor] = b
		c.cursor++
		return nil

	case modeSequential:
		if c.access == accessRead {
			return d.report(FileNotOpen)
		}
		if err := d.writeSequential(c, b); err != nil {
			return d.report(err)
		}
		return nil
	}

	return d.report(FileNotOpen)
}

// writeCommand collects a command byte; the first byte after the error
// channel was read starts a new command
func (d *Drive) writeCommand(b byte) {
	if d.cmd.access != accessWrite {
		d.cmd.access = accessWrite
		d.cmd.buf = make([]byte, 0, image.SectorSize)
		d.cmd.cursor = 0
		d.cmd.length = 0
	}
	// room for a full sector plus the terminating carriage return; an
	// overlong command is marked by one extra byte, but not stored
	if len(d.cmd.buf) <= image.SectorSize+1 {
		d.cmd.buf = append(d.cmd.buf, b)
	}
}

// Flush hands a command collected on the command channel to the command
// interpreter. It has no effect on other channels.
func (d *Drive) Flush(secondary int) {

	if secondary != commandChannel || d.cmd.access != accessWrite {
		return
	}

	cmd := bytes.TrimSuffix(d.cmd.buf, []byte{'\r'})
	d.cmd.buf = nil
	d.cmd.access = accessRead
	d.cmd.cursor = 0
	d.cmd.length = 0

	if len(cmd) == 0 {
		return
	}

	if len(cmd) > image.SectorSize {
		d.latch.clear()
		d.setError(LongLine, 0, 0)
		return
	}

	d.Execute(cmd)
}

// trimCommand cuts a command at the first carriage return. Memory commands
// carry binary arguments, so only a trailing carriage return is removed.
func trimCommand(cmd []byte) []byte {
	if len(cmd) > 0 && cmd[0] == CmdMemory {
		return bytes.TrimSuffix(cmd, []byte{'\r'})
	}
	if cr := bytes.IndexByte(cmd, '\r'); cr >= 0 {
		return cmd[:cr]
	}
	return cmd
}
