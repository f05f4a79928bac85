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

// slotRef is a directory entry together with its location on disk
type slotRef struct {
	track  int
	sector int
	index  int
	slot   *slot
}

// dirCursor is the state of an ongoing directory search
type dirCursor struct {
	pattern []byte
	typ     FileType
	track   int
	sector  int
	index   int
	buf     []byte
	visited map[ts]bool
}

// dirFindFirst starts a directory search for entries whose name matches
// pattern, and of type typ unless typ is anyType. Empty slots are never
// returned. A nil pattern matches all names.
func (d *Drive) dirFindFirst(pattern []byte, typ FileType) *slotRef {

	start := d.format.directory()
	d.search = dirCursor{
		pattern: pattern,
		typ:     typ,
		track:   start.track,
		sector:  start.sector,
		index:   -1,
		visited: map[ts]bool{},
	}

	if !d.dirLoad() {
		return nil
	}
	return d.dirFindNext()
}

// dirFindNext continues the search started by dirFindFirst
func (d *Drive) dirFindNext() *slotRef {

	c := &d.search
	if c.buf == nil {
		return nil
	}

	for {
		c.index++
		if c.index >= slotsPerSector {
			if c.buf[0] == 0 {
				c.buf = nil
				return nil
			}
			c.track, c.sector = int(c.buf[0]), int(c.buf[1])
			c.index = 0
			if !d.dirLoad() {
				return nil
			}
		}

		s := readSlot(c.buf, c.index)
		if s.isEmpty() {
			continue
		}
		if c.typ != anyType && s.fileType() != c.typ {
			continue
		}
		if c.pattern != nil && !matches(s.name(), c.pattern) {
			continue
		}

		return &slotRef{
			track: c.track, sector: c.sector, index: c.index, slot: s}
	}
}

// dirLoad reads the directory sector at the cursor position; the search ends
// on a bad link, or a link back into the directory
func (d *Drive) dirLoad() bool {

	c := &d.search
	c.buf = nil

	loc := ts{c.track, c.sector}
	if c.visited[loc] {
		d.log.WithFields(log.Fields{
			"track": c.track, "sector": c.sector}).Warn("directory loops")
		return false
	}
	c.visited[loc] = true

	data, err := d.img.ReadSector(c.track, c.sector)
	if err != nil {
		d.log.WithFields(log.Fields{
			"track": c.track, "sector": c.sector}).Warnf(
			"bad directory link: %v", err)
		return false
	}

	c.buf = data
	return true
}

// dirWriteSlot writes a directory entry back to its directory sector
func (d *Drive) dirWriteSlot(ref *slotRef) error {
	data, err := d.img.ReadSector(ref.track, ref.sector)
	if err != nil {
		return errorAt(IllegalTrackOrSector, ref.track, ref.sector)
	}
	writeSlot(data, ref.index, ref.slot)
	return d.img.WriteSector(ref.track, ref.sector, data)
}

// dirRemove deletes a directory entry. The blocks of a closed file are freed
// in the BAM, which the caller needs to write.
func (d *Drive) dirRemove(ref *slotRef) error {
	if ref.slot.isClosed() {
		d.bam.freeChain(ref.slot.first())
		d.bam.freeChain(ref.slot.sideSector())
	}
	ref.slot[slotType] = 0
	return d.dirWriteSlot(ref)
}

// dirFindFree returns an empty directory slot. When all slots are in use, a
// new directory sector is allocated on the directory track and linked to the
// end of the directory.
func (d *Drive) dirFindFree() (*slotRef, error) {

	start := d.format.directory()
	cur := start
	visited := map[ts]bool{}

	for {
		visited[cur] = true
		data, err := d.img.ReadSector(cur.track, cur.sector)
		if err != nil {
			return nil, errorAt(IllegalTrackOrSector, cur.track, cur.sector)
		}

		for ix := 0; ix < slotsPerSector; ix++ {
			if s := readSlot(data, ix); s.isEmpty() {
				return &slotRef{
					track: cur.track, sector: cur.sector, index: ix, slot: s}, nil
			}
		}

		next := ts{int(data[0]), int(data[1])}
		if next.track == 0 || visited[next] {
			return d.dirExtend(cur, data)
		}
		cur = next
	}
}

// dirExtend links a new directory sector to the last one
func (d *Drive) dirExtend(last ts, data []byte) (*slotRef, error) {

	s, ok := d.bam.allocOnTrack(last.track, last.sector+d.dirInterleave())
	if !ok {
		return nil, DiskFull
	}

	fresh := make([]byte, image.SectorSize)
	fresh[1] = 0xff
	if err := d.img.WriteSector(last.track, s, fresh); err != nil {
		return nil, err
	}

	data[0] = byte(last.track)
	data[1] = byte(s)
	if err := d.img.WriteSector(last.track, last.sector, data); err != nil {
		return nil, err
	}

	d.log.WithField("sector", s).Debug("directory extended")

	return &slotRef{
		track: last.track, sector: s, index: 0, slot: readSlot(fresh, 0)}, nil
}

// dirInterleave is the sector distance between directory sectors
func (d *Drive) dirInterleave() int {
	if d.format.interleave() > 1 {
		return 3
	}
	return 1
}
