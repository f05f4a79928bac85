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
)

// access is the way a data channel is used
type access int

const (
	accessDefault access = iota
	accessRead
	accessWrite
	accessAppend
)

//
func (a access) String() string {
	switch a {
	case accessRead:
		return "read"
	case accessWrite:
		return "write"
	case accessAppend:
		return "append"
	default:
		return "default"
	}
}

// filename is a parsed file name as given to open or to a file command:
//
//	[@][drive:]name[,type][,access]
type filename struct {
	name         []byte
	drive        int
	overwrite    bool
	typ          FileType
	access       access
	recordLength int
}

// parseFilename parses raw. The name is clamped to 16 characters.
func parseFilename(raw []byte) (*filename, error) {

	ret := &filename{typ: anyType}

	if len(raw) > 0 && raw[0] == '@' {
		ret.overwrite = true
		raw = raw[1:]
	}

	if colon := bytes.IndexByte(raw, ':'); colon >= 0 {
		ret.drive = parseDrive(raw[:colon])
		raw = raw[colon+1:]
	}

	parts := bytes.Split(raw, []byte{','})
	ret.name = clamp(parts[0])

	for ix := 1; ix < len(parts); ix++ {

		p := parts[ix]
		if len(p) == 0 {
			continue
		}

		switch p[0] {
		case 'S':
			ret.typ = SEQ
		case 'P':
			ret.typ = PRG
		case 'U':
			ret.typ = USR
		case 'L':
			ret.typ = REL
			if ix+1 < len(parts) && len(parts[ix+1]) > 0 {
				ix++
				ret.recordLength = int(parts[ix][0])
			}
		case 'C':
			ret.typ = CBM
		case 'J':
			ret.typ = DIR
		case 'F':
			ret.typ = FIL
		case 'R':
			ret.access = accessRead
		case 'W':
			ret.access = accessWrite
		case 'A':
			ret.access = accessAppend
		default:
			return nil, SyntaxError
		}
	}

	if ret.access == accessAppend && ret.typ != anyType && ret.typ != SEQ {
		return nil, FileTypeMismatch
	}

	return ret, nil
}

// parseDrive returns the drive number from the part of a name before the
// colon, ignoring everything that is not a digit
func parseDrive(prefix []byte) int {
	ret := 0
	for _, c := range prefix {
		if '0' <= c && c <= '9' {
			ret = ret*10 + int(c-'0')
		}
	}
	return ret
}

//
func clamp(name []byte) []byte {
	if len(name) > nameLength {
		return name[:nameLength]
	}
	return name
}

// splitCommand splits the part of a file command after the colon at '=', as in
// R0:NEW=OLD or C0:DEST=SRC1,SRC2. ok is false if there is no '='.
func splitCommand(cmd []byte) (dst, src []byte, ok bool) {
	if colon := bytes.IndexByte(cmd, ':'); colon >= 0 {
		cmd = cmd[colon+1:]
	} else if len(cmd) > 0 {
		cmd = cmd[1:]
	}
	eq := bytes.IndexByte(cmd, '=')
	if eq < 0 {
		return nil, nil, false
	}
	return cmd[:eq], cmd[eq+1:], true
}

// stripDrive removes an optional drive prefix such as 0: from a name
func stripDrive(name []byte) []byte {
	if colon := bytes.IndexByte(name, ':'); colon >= 0 {
		return name[colon+1:]
	}
	return name
}
