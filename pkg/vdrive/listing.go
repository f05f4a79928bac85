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
	"fmt"
	"strings"
)

//
const (
	listingLoadAddress = 0x0401
	reverseOn          = 0x12
)

// Listing is the directory of a disk.
type Listing struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	DOSType    string   `json:"dosType"`
	Files      []*Entry `json:"files"`
	BlocksFree int      `json:"blocksFree"`
}

// Entry is a file in a directory listing.
type Entry struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Blocks int    `json:"blocks"`
	Closed bool   `json:"closed"`
	Locked bool   `json:"locked"`
}

// Directory returns the directory of the attached disk. An empty pattern
// lists all files, otherwise only the files matching pattern. Patterns may
// carry a type filter, as in PRG*=P.
func (d *Drive) Directory(pattern string) (*Listing, error) {
	if d.img == nil {
		return nil, DriveNotReady
	}
	p, typ := parseListingPattern([]byte(pattern))
	return d.listing(p, typ), nil
}

// parseListingPattern splits a directory pattern into the name pattern and an
// optional type filter after '='
func parseListingPattern(p []byte) ([]byte, FileType) {

	typ := anyType
	if eq := bytes.IndexByte(p, '='); eq >= 0 {
		if eq+1 < len(p) {
			switch p[eq+1] {
			case 'D':
				typ = DEL
			case 'S':
				typ = SEQ
			case 'P':
				typ = PRG
			case 'U':
				typ = USR
			case 'R', 'L':
				typ = REL
			case 'C':
				typ = CBM
			}
		}
		p = p[:eq]
	}

	if len(p) == 0 {
		return nil, typ
	}
	return clamp(p), typ
}

//
func (d *Drive) listing(pattern []byte, typ FileType) *Listing {

	ret := &Listing{
		Name:       string(unpad(d.bam.diskName())),
		ID:         string(d.bam.diskID()),
		DOSType:    string(d.bam.dosType()),
		BlocksFree: d.bam.freeBlocks(),
	}

	for ref := d.dirFindFirst(pattern, typ); ref != nil; ref = d.dirFindNext() {
		s := ref.slot
		ret.Files = append(ret.Files, &Entry{
			Name:   string(s.name()),
			Type:   s.fileType().String(),
			Blocks: s.blocks(),
			Closed: s.isClosed(),
			Locked: s.isLocked(),
		})
	}

	return ret
}

// header returns the text of the listing's header line, without the reverse
// video control code
func (l *Listing) header() string {
	return fmt.Sprintf("\"%-16s\" %-2s %-2s", l.Name, l.ID, l.DOSType)
}

// line returns the text of an entry's line, following the block count
func (e *Entry) line() string {

	var sb strings.Builder

	switch {
	case e.Blocks < 10:
		sb.WriteString("   ")
	case e.Blocks < 100:
		sb.WriteString("  ")
	default:
		sb.WriteString(" ")
	}

	quoted := "\"" + e.Name + "\""
	sb.WriteString(fmt.Sprintf("%-18s", quoted))

	if e.Closed {
		sb.WriteByte(' ')
	} else {
		sb.WriteByte('*')
	}
	sb.WriteString(e.Type)
	if e.Locked {
		sb.WriteByte('<')
	}

	return sb.String()
}

// String renders the listing the way a BASIC LIST of the directory program
// shows it.
func (l *Listing) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("0 %s\n", l.header()))
	for _, e := range l.Files {
		sb.WriteString(fmt.Sprintf("%d%s\n", e.Blocks, e.line()))
	}
	sb.WriteString(fmt.Sprintf("%d BLOCKS FREE.\n", l.BlocksFree))
	return sb.String()
}

// Program renders the listing as the BASIC program the drive delivers when
// loading "$". The header line is shown in reverse video.
func (l *Listing) Program() []byte {

	var buf bytes.Buffer
	addr := listingLoadAddress

	buf.WriteByte(byte(addr))
	buf.WriteByte(byte(addr >> 8))

	line := func(number int, text []byte) {
		// link, line number, text, terminating zero
		addr += 4 + len(text) + 1
		buf.WriteByte(byte(addr))
		buf.WriteByte(byte(addr >> 8))
		buf.WriteByte(byte(number))
		buf.WriteByte(byte(number >> 8))
		buf.Write(text)
		buf.WriteByte(0)
	}

	line(0, append([]byte{reverseOn}, l.header()...))
	for _, e := range l.Files {
		line(e.Blocks, []byte(e.line()))
	}
	line(l.BlocksFree, []byte("BLOCKS FREE.             "))

	buf.WriteByte(0)
	buf.WriteByte(0)

	return buf.Bytes()
}
