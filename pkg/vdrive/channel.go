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
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

// mode is what a channel is currently used for
type mode int

const (
	modeUnused mode = iota
	modeDirectory
	modeSequential
	modeMemory
	modeCommand
)

//
func (m mode) String() string {
	switch m {
	case modeDirectory:
		return "directory"
	case modeSequential:
		return "sequential"
	case modeMemory:
		return "memory"
	case modeCommand:
		return "command"
	default:
		return "unused"
	}
}

// endOfData is handed out when reading past the end of a channel's data
const endOfData = 0xc7

// channel is one of the logical files a drive offers. For sequential files,
// buf holds the sector at track/sector, and bytes 0 & 1 of buf are the link to
// the next sector. When writing, slot is the directory entry that is written
// to the directory once the file gets closed. ref is set when the entry
// already exists, as is the case when appending.
type channel struct {
	mode   mode
	access access
	buf    []byte
	cursor int
	length int
	//
	track  int
	sector int
	hops   int
	slot   *slot
	ref    *slotRef
	alloc  []ts
}

//
func (c *channel) reset() {
	*c = channel{}
}

//
func (c *channel) isOpen() bool {
	return c.mode != modeUnused
}

// readBuffer reads the next byte from a channel whose data is held completely
// in its buffer
func (c *channel) readBuffer() (byte, error) {
	if c.cursor >= c.length {
		return endOfData, io.EOF
	}
	b := c.buf[c.cursor]
	c.cursor++
	return b, nil
}

// readSequential reads the next byte of a file, following the sector chain
func (d *Drive) readSequential(c *channel) (byte, error) {

	for c.cursor >= c.length {

		if c.buf[0] == 0 {
			return endOfData, io.EOF
		}

		// a chain longer than the disk must be looping
		if c.hops++; c.hops > d.img.TotalSectors() {
			d.log.WithFields(log.Fields{
				"track": c.track, "sector": c.sector}).Warn("looping file chain")
			return endOfData, errorAt(IllegalTrackOrSector, c.track, c.sector)
		}

		if err := d.loadSector(c, int(c.buf[0]), int(c.buf[1])); err != nil {
			return endOfData, err
		}
	}

	b := c.buf[c.cursor]
	c.cursor++
	return b, nil
}

// loadSector reads a file sector into a channel's buffer and positions the
// cursor at the first data byte
func (d *Drive) loadSector(c *channel, track, sector int) error {
	data, err := d.img.ReadSector(track, sector)
	if err != nil {
		return errorAt(IllegalTrackOrSector, track, sector)
	}
	c.buf = data
	c.track = track
	c.sector = sector
	c.cursor = 2
	c.length = image.SectorSize
	if data[0] == 0 {
		c.length = int(data[1]) + 1
	}
	return nil
}

// writeSequential appends a byte to a file, writing out the buffer when it is
// full
func (d *Drive) writeSequential(c *channel, b byte) error {
	if c.cursor >= image.SectorSize {
		if err := d.writeBlock(c, false); err != nil {
			return err
		}
	}
	c.buf[c.cursor] = b
	c.cursor++
	return nil
}

// releaseBlocks frees all blocks allocated while writing to a channel
func (d *Drive) releaseBlocks(c *channel) {
	for _, a := range c.alloc {
		d.bam.free(a.track, a.sector)
	}
	c.alloc = nil
}

// writeBlock writes a channel's buffer to disk. The first block of a file is
// allocated on demand. A full block that is not the last one gets chained to
// a newly allocated block. The last block is marked with a link of 0 and the
// index of its last byte.
func (d *Drive) writeBlock(c *channel, last bool) error {

	if c.track == 0 {
		t, s, ok := d.bam.allocFirstFree()
		if !ok {
			return DiskFull
		}
		c.track, c.sector = t, s
		c.alloc = append(c.alloc, ts{t, s})
		c.slot.setFirst(t, s)
		c.slot.setBlocks(c.slot.blocks() + 1)
	}

	if last {
		c.buf[0] = 0
		c.buf[1] = byte(c.cursor - 1)
		return d.img.WriteSector(c.track, c.sector, c.buf)
	}

	t, s, ok := d.bam.allocNextFree(c.track, c.sector)
	if !ok {
		return DiskFull
	}
	c.alloc = append(c.alloc, ts{t, s})
	c.slot.setBlocks(c.slot.blocks() + 1)

	c.buf[0] = byte(t)
	c.buf[1] = byte(s)
	if err := d.img.WriteSector(c.track, c.sector, c.buf); err != nil {
		return err
	}

	c.track, c.sector = t, s
	c.buf = make([]byte, image.SectorSize)
	c.cursor = 2
	return nil
}
