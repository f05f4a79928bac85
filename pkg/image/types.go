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
	"fmt"
	"strings"
)

// Type is the drive model an image was made for. It determines geometry, and
// is what the virtual drive uses to pick its BAM layout.
type Type int

const (
	UNKNOWN Type = iota
	T1541
	T1571
	T1581
	T8050
	T8250
)

//
const SectorSize = 256

//
type zone struct {
	lastTrack int
	sectors   int
}

// zones are given for one side; double sided models repeat them
var zones1541 = []zone{{17, 21}, {24, 19}, {30, 18}, {42, 17}}
var zones8050 = []zone{{39, 29}, {53, 27}, {64, 25}, {77, 23}}

//
func (t Type) String() string {

	switch t {

	case T1541:
		return "1541"

	case T1571:
		return "1571"

	case T1581:
		return "1581"

	case T8050:
		return "8050"

	case T8250:
		return "8250"

	default:
		return "<unknown>"
	}
}

// Extension returns the customary file name extension for images of this type
func (t Type) Extension() string {

	switch t {

	case T1541:
		return "d64"

	case T1571:
		return "d71"

	case T1581:
		return "d81"

	case T8050:
		return "d80"

	case T8250:
		return "d82"

	default:
		return ""
	}
}

// DefaultTracks is the track count of a standard image of this type.
func (t Type) DefaultTracks() int {

	switch t {

	case T1541:
		return 35

	case T1571:
		return 70

	case T1581:
		return 80

	case T8050:
		return 77

	case T8250:
		return 154

	default:
		return 0
	}
}

// Sides returns the number of disk sides the model uses.
func (t Type) Sides() int {
	if t == T1571 || t == T8250 {
		return 2
	}
	return 1
}

// SectorsOnTrack returns the number of sectors on the given track, or 0 if
// the track does not exist for this type. Extended 1541 images may have up to
// 42 tracks.
func (t Type) SectorsOnTrack(track int) int {

	if track < 1 {
		return 0
	}

	switch t {

	case T1541:
		if track > 42 {
			return 0
		}
		return sectorsInZone(zones1541, track)

	case T1571:
		if track > 70 {
			return 0
		}
		if track > 35 {
			track -= 35
		}
		return sectorsInZone(zones1541, track)

	case T1581:
		if track > 80 {
			return 0
		}
		return 40

	case T8050:
		if track > 77 {
			return 0
		}
		return sectorsInZone(zones8050, track)

	case T8250:
		if track > 154 {
			return 0
		}
		if track > 77 {
			track -= 77
		}
		return sectorsInZone(zones8050, track)
	}

	return 0
}

//
func sectorsInZone(zs []zone, track int) int {
	for _, z := range zs {
		if track <= z.lastTrack {
			return z.sectors
		}
	}
	return 0
}

// TotalSectors returns the number of sectors on an image of this type with
// the given number of tracks.
func (t Type) TotalSectors(tracks int) int {
	ret := 0
	for tr := 1; tr <= tracks; tr++ {
		ret += t.SectorsOnTrack(tr)
	}
	return ret
}

// GetType maps a type name or file extension to a Type, case insensitive.
func GetType(name string) Type {

	switch strings.ToLower(strings.TrimPrefix(name, ".")) {

	case "1541", "d64":
		return T1541

	case "1571", "d71":
		return T1571

	case "1581", "d81":
		return T1581

	case "8050", "d80":
		return T8050

	case "8250", "d82":
		return T8250

	default:
		return UNKNOWN
	}
}

// layout describes one recognized image size
type layout struct {
	typ       Type
	tracks    int
	errorInfo bool
}

// detectLayout determines type and track count from an image's size. When
// want is not UNKNOWN, the detected type has to match.
func detectLayout(size int, want Type) (*layout, error) {

	if size <= 0 {
		return nil, fmt.Errorf("empty image")
	}

	candidates := []layout{
		{T1541, 35, false}, {T1541, 40, false}, {T1541, 42, false},
		{T1571, 70, false}, {T1581, 80, false},
		{T8050, 77, false}, {T8250, 154, false},
	}

	for _, c := range candidates {
		if want != UNKNOWN && c.typ != want {
			continue
		}
		sectors := c.typ.TotalSectors(c.tracks)
		if size == sectors*SectorSize {
			ret := c
			return &ret, nil
		}
		if size == sectors*(SectorSize+1) {
			ret := c
			ret.errorInfo = true
			return &ret, nil
		}
	}

	if want != UNKNOWN {
		return nil, fmt.Errorf("unsupported size %d for %s image", size, want)
	}
	return nil, fmt.Errorf("unsupported image size %d", size)
}
