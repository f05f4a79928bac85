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

package image

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

//
var ErrIllegal = errors.New("illegal track or sector")
var ErrReadOnly = errors.New("image is write protected")

// Image is an in-memory disk image made up of fixed size sectors. It is the
// sector store the virtual drive reads from and writes to. Images are not safe
// for concurrent use.
type Image struct {
	//
	typ    Type
	tracks int
	//
	data      []byte
	errorInfo []byte
	offsets   []int
	//
	readOnly  bool
	modified  bool
	autosaved bool
}

// NewBlank creates an unformatted image of the given type, with the type's
// standard track count.
func NewBlank(t Type) (*Image, error) {
	return NewBlankWithTracks(t, t.DefaultTracks())
}

// NewBlankWithTracks creates an unformatted image with a custom track count.
// This is only meaningful for 1541 images, which can have 35, 40, or 42
// tracks.
func NewBlankWithTracks(t Type, tracks int) (*Image, error) {
	if t == UNKNOWN {
		return nil, fmt.Errorf("cannot create image of unknown type")
	}
	l, err := detectLayout(t.TotalSectors(tracks)*SectorSize, t)
	if err != nil {
		return nil, err
	}
	return newImage(l, make([]byte, t.TotalSectors(tracks)*SectorSize)), nil
}

// NewFromBytes creates an image from raw image data. If t is UNKNOWN, the type
// is detected from the data size. Images carrying error info bytes are
// accepted; the error info is kept and written back out unchanged.
func NewFromBytes(data []byte, t Type) (*Image, error) {

	l, err := detectLayout(len(data), t)
	if err != nil {
		return nil, err
	}

	size := l.typ.TotalSectors(l.tracks) * SectorSize
	buf := make([]byte, size)
	copy(buf, data[:size])

	ret := newImage(l, buf)
	if l.errorInfo {
		ret.errorInfo = make([]byte, len(data)-size)
		copy(ret.errorInfo, data[size:])
	}

	log.WithFields(log.Fields{
		"type":      l.typ,
		"tracks":    l.tracks,
		"errorInfo": l.errorInfo,
	}).Debug("image loaded")

	return ret, nil
}

//
func newImage(l *layout, data []byte) *Image {

	ret := &Image{
		typ:     l.typ,
		tracks:  l.tracks,
		data:    data,
		offsets: make([]int, l.tracks+2),
	}

	off := 0
	for t := 1; t <= l.tracks; t++ {
		ret.offsets[t] = off
		off += l.typ.SectorsOnTrack(t) * SectorSize
	}
	ret.offsets[l.tracks+1] = off

	return ret
}

//
func (i *Image) Type() Type {
	return i.typ
}

//
func (i *Image) Tracks() int {
	return i.tracks
}

// Sectors returns the number of sectors on track, 0 if there is no such track
// on this image.
func (i *Image) Sectors(track int) int {
	if track < 1 || track > i.tracks {
		return 0
	}
	return i.typ.SectorsOnTrack(track)
}

//
func (i *Image) TotalSectors() int {
	return i.typ.TotalSectors(i.tracks)
}

//
func (i *Image) offset(track, sector int) (int, error) {
	if sector < 0 || sector >= i.Sectors(track) {
		return -1, fmt.Errorf("%w: %d/%d", ErrIllegal, track, sector)
	}
	return i.offsets[track] + sector*SectorSize, nil
}

// ReadSector returns a copy of the given sector's contents.
func (i *Image) ReadSector(track, sector int) ([]byte, error) {
	off, err := i.offset(track, sector)
	if err != nil {
		return nil, err
	}
	ret := make([]byte, SectorSize)
	copy(ret, i.data[off:off+SectorSize])
	return ret, nil
}

// WriteSector replaces the given sector's contents. data shorter than a
// sector is padded with zeros.
func (i *Image) WriteSector(track, sector int, data []byte) error {

	if i.readOnly {
		return ErrReadOnly
	}

	off, err := i.offset(track, sector)
	if err != nil {
		return err
	}

	if len(data) > SectorSize {
		return fmt.Errorf("sector data too long: %d bytes", len(data))
	}

	n := copy(i.data[off:off+SectorSize], data)
	for ix := off + n; ix < off+SectorSize; ix++ {
		i.data[ix] = 0
	}

	log.WithFields(log.Fields{
		"track": track, "sector": sector}).Trace("sector written")

	i.SetModified(true)
	return nil
}

//
func (i *Image) IsReadOnly() bool {
	return i.readOnly
}

//
func (i *Image) SetReadOnly(r bool) {
	i.readOnly = r
}

//
func (i *Image) IsModified() bool {
	return i.modified
}

//
func (i *Image) SetModified(m bool) {
	i.modified = m
	if m {
		i.autosaved = false
	}
}

//
func (i *Image) IsAutoSaved() bool {
	return i.autosaved
}

//
func (i *Image) SetAutoSaved(a bool) {
	i.autosaved = a
}

// Bytes returns the raw image data, including error info if present. The
// returned slice is a copy.
func (i *Image) Bytes() []byte {
	ret := make([]byte, 0, len(i.data)+len(i.errorInfo))
	ret = append(ret, i.data...)
	return append(ret, i.errorInfo...)
}
