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

// offsets within a 32 byte directory slot; bytes 0 & 1 of the first slot in a
// directory sector hold the link to the next directory sector
const (
	slotSize         = 32
	slotsPerSector   = 8
	slotType         = 2
	slotFirstTrack   = 3
	slotFirstSector  = 4
	slotName         = 5
	slotSideTrack    = 21
	slotSideSector   = 22
	slotRecordLength = 23
	slotBlocks       = 30

	nameLength = 16
	namePad    = 0xa0
)

//
const (
	flagReplace = 0x20
	flagLocked  = 0x40
	flagClosed  = 0x80
	typeMask    = 0x07
)

// FileType is the low nibble of a directory slot's type byte.
type FileType int

const (
	DEL FileType = iota
	SEQ
	PRG
	USR
	REL
	CBM
	DIR
	FIL

	// anyType is used when searching the directory without type filter
	anyType FileType = -1
)

var typeNames = []string{"DEL", "SEQ", "PRG", "USR", "REL", "CBM", "DIR", "FIL"}

//
func (t FileType) String() string {
	if 0 <= t && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "???"
}

// slot is an owned copy of one directory entry. Changes only reach the disk
// through writeSlot and a subsequent sector write.
type slot [slotSize]byte

// readSlot copies slot ix out of a directory sector
func readSlot(sector []byte, ix int) *slot {
	ret := &slot{}
	copy(ret[:], sector[ix*slotSize:(ix+1)*slotSize])
	return ret
}

// writeSlot copies the 30 trailing bytes of s into slot ix of a directory
// sector, leaving the sector link untouched
func writeSlot(sector []byte, ix int, s *slot) {
	off := ix * slotSize
	copy(sector[off+slotType:off+slotSize], s[slotType:])
}

//
func (s *slot) isEmpty() bool {
	return s[slotType] == 0
}

//
func (s *slot) fileType() FileType {
	return FileType(s[slotType] & typeMask)
}

//
func (s *slot) setFileType(t FileType) {
	s[slotType] = (s[slotType] &^ typeMask) | byte(t)&typeMask
}

//
func (s *slot) isClosed() bool {
	return s[slotType]&flagClosed != 0
}

//
func (s *slot) setClosed(c bool) {
	if c {
		s[slotType] |= flagClosed
	} else {
		s[slotType] &^= flagClosed
	}
}

//
func (s *slot) isLocked() bool {
	return s[slotType]&flagLocked != 0
}

//
func (s *slot) first() (int, int) {
	return int(s[slotFirstTrack]), int(s[slotFirstSector])
}

//
func (s *slot) setFirst(track, sector int) {
	s[slotFirstTrack] = byte(track)
	s[slotFirstSector] = byte(sector)
}

//
func (s *slot) sideSector() (int, int) {
	return int(s[slotSideTrack]), int(s[slotSideSector])
}

//
func (s *slot) recordLength() int {
	return int(s[slotRecordLength])
}

// name returns the file name without padding
func (s *slot) name() []byte {
	return unpad(s[slotName : slotName+nameLength])
}

//
func (s *slot) setName(n []byte) {
	pad(s[slotName:slotName+nameLength], n)
}

//
func (s *slot) blocks() int {
	return int(s[slotBlocks]) | int(s[slotBlocks+1])<<8
}

//
func (s *slot) setBlocks(b int) {
	s[slotBlocks] = byte(b)
	s[slotBlocks+1] = byte(b >> 8)
}

// unpad returns b up to the first padding byte
func unpad(b []byte) []byte {
	for ix, c := range b {
		if c == namePad {
			return b[:ix]
		}
	}
	return b
}

// pad copies src into dst and fills the rest of dst with padding bytes
func pad(dst, src []byte) {
	n := copy(dst, src)
	for ix := n; ix < len(dst); ix++ {
		dst[ix] = namePad
	}
}
