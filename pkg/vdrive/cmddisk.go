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

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
func (c *command) initialize(d *Drive) error {
	return d.initialize()
}

// initialize closes all data channels and re-reads the BAM from disk
func (d *Drive) initialize() error {
	if err := d.ready(); err != nil {
		return err
	}
	d.closeAll()
	if err := d.bam.read(); err != nil {
		return errorAt(ReadErrorData, 0, 0)
	}
	return nil
}

// format formats the disk:
//
//	N[0]:NAME[,ID]
//
// Without ID, the disk gets a blank one.
func (c *command) format(d *Drive) error {

	if err := d.writable(); err != nil {
		return err
	}

	args := c.args(1)
	name, id := args, []byte(nil)
	if comma := bytes.IndexByte(args, ','); comma >= 0 {
		name, id = args[:comma], args[comma+1:]
		if len(id) > 2 {
			id = id[:2]
		}
	}
	name = clamp(name)
	if len(name) == 0 {
		return NoFileGiven
	}

	return d.newDisk(name, id)
}

// newDisk writes an empty directory and a fresh BAM, and validates the disk
func (d *Drive) newDisk(name, id []byte) error {

	d.closeAll()

	dir := d.format.directory()
	empty := make([]byte, image.SectorSize)
	empty[1] = 0xff
	if err := d.img.WriteSector(dir.track, dir.sector, empty); err != nil {
		return err
	}

	d.bam.reformat(name, id)
	if err := d.bam.write(); err != nil {
		return err
	}

	d.log.WithFields(log.Fields{
		"name": string(name),
		"id":   string(id),
	}).Info("disk formatted")

	return d.validate()
}

//
func (c *command) validate(d *Drive) error {
	if err := d.writable(); err != nil {
		return err
	}
	return d.validate()
}

/*
	validate rebuilds the BAM from the directory. All blocks are freed, and
	then the blocks of the header & directory chain, the format's reserved
	blocks, and the chains of all closed files are allocated. Entries of files
	that were never closed are deleted. On a broken chain, the BAM is left as
	it was before.
*/
func (d *Drive) validate() error {

	if err := d.initialize(); err != nil {
		return err
	}

	saved := d.bam.snapshot()
	fail := func(err error) error {
		d.bam.restore(saved)
		d.log.Errorf("validate failed: %v", err)
		return err
	}

	d.bam.clearAll()
	d.bam.freeAll()

	h := d.format.bamBlocks()[0]
	if err := d.bam.allocateChain(h.track, h.sector); err != nil {
		return fail(err)
	}
	if err := d.format.reserve(d.bam); err != nil {
		return fail(err)
	}

	for ref := d.dirFindFirst(nil, anyType); ref != nil; ref = d.dirFindNext() {

		if ref.slot.isClosed() {
			if err := d.bam.allocateChain(ref.slot.first()); err != nil {
				return fail(err)
			}
			if err := d.bam.allocateChain(ref.slot.sideSector()); err != nil {
				return fail(err)
			}
			continue
		}

		d.log.WithField("name", string(ref.slot.name())).Debug(
			"removing unclosed file")
		ref.slot[slotType] = 0
		if err := d.dirWriteSlot(ref); err != nil {
			return fail(err)
		}
	}

	return d.bam.write()
}
