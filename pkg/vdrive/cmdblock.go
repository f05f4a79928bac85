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
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

// block runs the block commands:
//
//	B-R channel drive track sector
//	B-W channel drive track sector
//	B-A drive track sector
//	B-F drive track sector
//	B-P channel position
func (c *command) block(d *Drive) error {

	switch c.sub() {

	case 'R':
		p, err := c.params(1, 4)
		if err != nil {
			return err
		}
		return d.blockRead(p[0], p[2], p[3])

	case 'W':
		p, err := c.params(1, 4)
		if err != nil {
			return err
		}
		return d.blockWrite(p[0], p[2], p[3])

	case 'A':
		p, err := c.params(1, 3)
		if err != nil {
			return err
		}
		return d.blockAllocate(p[1], p[2])

	case 'F':
		p, err := c.params(1, 3)
		if err != nil {
			return err
		}
		return d.blockFree(p[1], p[2])

	case 'P':
		p, err := c.params(1, 2)
		if err != nil {
			return err
		}
		return d.blockPointer(p[0], p[1])

	case 'E':
		return Unimplemented
	}

	return InvalidCommand
}

// memoryChannel returns the data channel with the given number, if it is
// open as a memory buffer
func (d *Drive) memoryChannel(ch int) (*channel, error) {
	c, err := d.dataChannel(ch)
	if err != nil {
		return nil, err
	}
	if c.mode != modeMemory {
		return nil, NoChannel
	}
	return c, nil
}

// blockRead reads a sector into a memory buffer
func (d *Drive) blockRead(ch, track, sector int) error {

	if err := d.ready(); err != nil {
		return err
	}

	c, err := d.memoryChannel(ch)
	if err != nil {
		return err
	}

	data, err := d.img.ReadSector(track, sector)
	if err != nil {
		return errorAt(IllegalTrackOrSector, track, sector)
	}

	c.buf = data
	c.cursor = 0
	c.length = image.SectorSize
	return nil
}

// blockWrite writes a memory buffer to a sector
func (d *Drive) blockWrite(ch, track, sector int) error {

	if err := d.writable(); err != nil {
		return err
	}

	c, err := d.memoryChannel(ch)
	if err != nil {
		return err
	}

	if err := d.img.WriteSector(track, sector, c.buf); err != nil {
		code, _, _ := codeOf(err)
		return errorAt(code, track, sector)
	}

	c.cursor = 0
	return nil
}

// blockAllocate marks a sector as used. If it already is, the next free
// sector is suggested in the error, but not allocated.
func (d *Drive) blockAllocate(track, sector int) error {

	if err := d.writable(); err != nil {
		return err
	}

	if !d.bam.valid(track, sector) {
		return errorAt(IllegalTrackOrSector, track, sector)
	}

	if d.bam.allocate(track, sector) {
		return d.bam.write()
	}

	if t, s, ok := d.bam.allocNextFree(track, sector); ok {
		d.bam.free(t, s)
		log.WithFields(log.Fields{
			"unit": d.unit, "track": t, "sector": s}).Debug(
			"suggesting free block")
		return errorAt(NoBlock, t, s)
	}

	return errorAt(NoBlock, 0, 0)
}

//
func (d *Drive) blockFree(track, sector int) error {

	if err := d.writable(); err != nil {
		return err
	}

	if !d.bam.valid(track, sector) {
		return errorAt(IllegalTrackOrSector, track, sector)
	}

	d.bam.free(track, sector)
	return d.bam.write()
}

//
func (d *Drive) blockPointer(ch, pos int) error {
	c, err := d.memoryChannel(ch)
	if err != nil {
		return err
	}
	if pos >= image.SectorSize {
		return SyntaxError
	}
	c.cursor = pos
	return nil
}
