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

	"github.com/xelalexv/cbmdrive/pkg/image"
)

// bam is the in-memory copy of a disk's header & BAM blocks. Changes reach the
// image only through write.
type bam struct {
	format diskFormat
	img    *image.Image
	locs   []ts
	blocks [][]byte
}

//
func newBAM(f diskFormat, img *image.Image) *bam {
	locs := f.bamBlocks()
	ret := &bam{format: f, img: img, locs: locs}
	ret.blocks = make([][]byte, len(locs))
	for ix := range ret.blocks {
		ret.blocks[ix] = make([]byte, image.SectorSize)
	}
	return ret
}

//
func (b *bam) read() error {
	for ix, l := range b.locs {
		data, err := b.img.ReadSector(l.track, l.sector)
		if err != nil {
			return fmt.Errorf("error reading BAM at %d/%d: %w",
				l.track, l.sector, err)
		}
		b.blocks[ix] = data
	}
	return nil
}

//
func (b *bam) write() error {
	for ix, l := range b.locs {
		if err := b.img.WriteSector(l.track, l.sector, b.blocks[ix]); err != nil {
			return err
		}
	}
	return nil
}

// snapshot returns a copy of all BAM blocks
func (b *bam) snapshot() [][]byte {
	ret := make([][]byte, len(b.blocks))
	for ix, blk := range b.blocks {
		ret[ix] = append([]byte(nil), blk...)
	}
	return ret
}

//
func (b *bam) restore(s [][]byte) {
	for ix := range b.blocks {
		copy(b.blocks[ix], s[ix])
	}
}

//
func (b *bam) header() []byte {
	return b.blocks[0]
}

//
func (b *bam) valid(track, sector int) bool {
	return sector >= 0 && sector < b.img.Sectors(track)
}

// bitmap returns the free count and bitmap of a track
func (b *bam) bitmap(track int) (*byte, []byte) {
	e := b.format.entry(track)
	cnt := &b.blocks[e.countBlock][e.count]
	return cnt, b.blocks[e.bitmapBlock][e.bitmap : e.bitmap+e.size]
}

//
func (b *bam) isFree(track, sector int) bool {
	if !b.valid(track, sector) {
		return false
	}
	_, bm := b.bitmap(track)
	return bm[sector/8]&(1<<uint(sector%8)) != 0
}

// allocate marks a sector as used. Returns false if the sector does not exist
// or is already in use.
func (b *bam) allocate(track, sector int) bool {
	if !b.isFree(track, sector) {
		return false
	}
	cnt, bm := b.bitmap(track)
	bm[sector/8] &^= 1 << uint(sector%8)
	*cnt--
	return true
}

// free marks a sector as free, if it is in use
func (b *bam) free(track, sector int) {
	if !b.valid(track, sector) || b.isFree(track, sector) {
		return
	}
	cnt, bm := b.bitmap(track)
	bm[sector/8] |= 1 << uint(sector%8)
	*cnt++
}

// clearAll zeroes all BAM entries, i.e. marks everything as used
func (b *bam) clearAll() {
	for t := 1; t <= b.img.Tracks(); t++ {
		cnt, bm := b.bitmap(t)
		*cnt = 0
		for ix := range bm {
			bm[ix] = 0
		}
	}
}

// freeAll marks every sector of the disk as free
func (b *bam) freeAll() {
	for t := 1; t <= b.img.Tracks(); t++ {
		for s := 0; s < b.img.Sectors(t); s++ {
			b.free(t, s)
		}
	}
}

// allocOnTrack allocates the first free sector on track, starting the search
// at sector start and wrapping around
func (b *bam) allocOnTrack(track, start int) (int, bool) {
	n := b.img.Sectors(track)
	for off := 0; off < n; off++ {
		if s := (start + off) % n; b.allocate(track, s) {
			return s, true
		}
	}
	return 0, false
}

// dataTracks lists the non-system tracks by increasing distance from the
// directory track
func (b *bam) dataTracks() []int {
	dir := b.format.directory().track
	var ret []int
	for d := 1; d <= b.img.Tracks(); d++ {
		for _, t := range []int{dir - d, dir + d} {
			if t >= 1 && t <= b.img.Tracks() && !b.format.isSystemTrack(t) {
				ret = append(ret, t)
			}
		}
	}
	return ret
}

// allocFirstFree allocates the first free sector of a new file, searching
// outward from the directory track
func (b *bam) allocFirstFree() (int, int, bool) {
	for _, t := range b.dataTracks() {
		if s, ok := b.allocOnTrack(t, 0); ok {
			return t, s, true
		}
	}
	return 0, 0, false
}

// allocNextFree allocates the sector following track/sector in a file's chain.
// It tries the same track first, skipping the format's interleave, then moves
// away from the directory track. After that, the other half of the disk, and
// last the tracks between the directory track and track.
func (b *bam) allocNextFree(track, sector int) (int, int, bool) {

	if !b.format.isSystemTrack(track) {
		if s, ok := b.allocOnTrack(
			track, sector+b.format.interleave()); ok {
			return track, s, true
		}
	}

	dir := b.format.directory().track
	away := 1
	if track < dir {
		away = -1
	}

	start := track + away
	if track == dir {
		start = dir + away
	}

	if t, s, ok := b.allocFromTrack(start, away); ok {
		return t, s, true
	}
	if t, s, ok := b.allocFromTrack(dir-away, -away); ok {
		return t, s, true
	}
	return b.allocFromTrack(dir+away, away)
}

// allocFromTrack allocates the first free sector on a non-system track,
// starting at track and stepping towards the edge of the disk
func (b *bam) allocFromTrack(track, step int) (int, int, bool) {
	for t := track; t >= 1 && t <= b.img.Tracks(); t += step {
		if b.format.isSystemTrack(t) {
			continue
		}
		if s, ok := b.allocOnTrack(t, 0); ok {
			return t, s, true
		}
	}
	return 0, 0, false
}

// allocateChain walks a chain of sectors starting at track/sector and marks
// every sector as used. It fails on a link to a non-existing sector, and on a
// sector that is already in use, which would mean a cross linked or looping
// chain.
func (b *bam) allocateChain(track, sector int) error {
	for track != 0 {
		if !b.valid(track, sector) {
			return errorAt(IllegalTrackOrSector, track, sector)
		}
		if !b.allocate(track, sector) {
			return errorAt(NoBlock, track, sector)
		}
		data, err := b.img.ReadSector(track, sector)
		if err != nil {
			return errorAt(ReadErrorData, track, sector)
		}
		track, sector = int(data[0]), int(data[1])
	}
	return nil
}

// freeChain frees every sector of a chain. It stops at the first link to a
// sector that does not exist or is already free.
func (b *bam) freeChain(track, sector int) {
	for track != 0 {
		if !b.valid(track, sector) || b.isFree(track, sector) {
			return
		}
		b.free(track, sector)
		data, err := b.img.ReadSector(track, sector)
		if err != nil {
			return
		}
		track, sector = int(data[0]), int(data[1])
	}
}

// freeBlocks counts the free sectors on all non-system tracks
func (b *bam) freeBlocks() int {
	ret := 0
	for t := 1; t <= b.img.Tracks(); t++ {
		if b.format.isSystemTrack(t) {
			continue
		}
		cnt, _ := b.bitmap(t)
		ret += int(*cnt)
	}
	return ret
}

//
func (b *bam) diskName() []byte {
	off := b.format.nameOffset()
	return b.header()[off : off+nameLength]
}

//
func (b *bam) diskID() []byte {
	off := b.format.idOffset()
	return append([]byte(nil), b.header()[off:off+2]...)
}

// dosType returns the two DOS type bytes from the header
func (b *bam) dosType() []byte {
	off := b.format.idOffset() + 3
	return b.header()[off : off+2]
}

// reformat lays out a fresh header & BAM with all entries cleared
func (b *bam) reformat(name, id []byte) {
	for _, blk := range b.blocks {
		for ix := range blk {
			blk[ix] = 0
		}
	}
	b.format.fresh(b.blocks, name, id)
}
