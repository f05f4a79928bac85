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
	"io"

	log "github.com/sirupsen/logrus"
)

// copy concatenates one or more source files into a new file:
//
//	C[0]:DEST=SRC1[,SRC2...]
//
// The new file gets the type of the first source.
func (c *command) copy(d *Drive) error {

	if err := d.writable(); err != nil {
		return err
	}

	dst, src, ok := splitCommand(c.data)
	if !ok || len(dst) == 0 || len(src) == 0 {
		return SyntaxError
	}

	var sources [][]byte
	var typ FileType
	for ix, s := range bytes.Split(src, []byte{','}) {
		s = clamp(stripDrive(s))
		ref := d.findFile(s)
		if ref == nil {
			return FileNotFound
		}
		if ref.slot.fileType() == REL {
			return FileTypeMismatch
		}
		if ix == 0 {
			typ = ref.slot.fileType()
		}
		sources = append(sources, s)
	}

	out := &channel{}
	if err := d.openFile(out, withSuffix(clamp(dst), ",W"), 2); err != nil {
		return err
	}
	out.slot.setFileType(typ)

	for _, s := range sources {
		if err := d.copyFrom(out, s); err != nil {
			d.releaseBlocks(out)
			out.reset()
			return err
		}
	}

	d.log.WithFields(log.Fields{
		"destination": string(dst),
		"sources":     len(sources),
	}).Debug("files copied")

	return d.closeData(out)
}

// copyFrom appends the contents of file name to channel out
func (d *Drive) copyFrom(out *channel, name []byte) error {

	in := &channel{}
	if err := d.openFile(in, withSuffix(name, ",R"), 0); err != nil {
		return err
	}
	defer in.reset()

	for {
		b, err := d.readSequential(in)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := d.writeSequential(out, b); err != nil {
			return err
		}
	}
}

// withSuffix returns a copy of name with suffix appended
func withSuffix(name []byte, suffix string) []byte {
	ret := make([]byte, 0, len(name)+len(suffix))
	ret = append(ret, name...)
	return append(ret, suffix...)
}

// rename changes a file's name, and its type if one is given:
//
//	R[0]:NEW[,TYPE]=OLD
func (c *command) rename(d *Drive) error {

	if err := d.writable(); err != nil {
		return err
	}

	dst, src, ok := splitCommand(c.data)
	if !ok {
		return SyntaxError
	}

	fn, err := parseFilename(dst)
	if err != nil {
		return err
	}
	if len(fn.name) == 0 {
		return NoFileGiven
	}
	if hasWildcards(fn.name) {
		return InvalidFilename
	}

	if d.findFile(fn.name) != nil {
		return FileExists
	}

	ref := d.findFile(clamp(stripDrive(src)))
	if ref == nil {
		return FileNotFound
	}

	ref.slot.setName(fn.name)
	if fn.typ != anyType {
		ref.slot.setFileType(fn.typ)
	}

	return d.dirWriteSlot(ref)
}

// scratch deletes all files matching any of the given patterns; locked files
// are left alone:
//
//	S[0]:PATTERN[,PATTERN...]
//
// The number of deleted files is reported in the track field of the status.
func (c *command) scratch(d *Drive) error {

	if err := d.writable(); err != nil {
		return err
	}

	args := c.args(1)
	if len(args) == 0 {
		return NoFileGiven
	}

	count := 0

	for _, p := range bytes.Split(args, []byte{','}) {

		p = clamp(stripDrive(p))
		if len(p) == 0 {
			continue
		}

		// removing an entry invalidates the search, so it starts over after
		// each removal
		for ref := d.dirFindFirst(p, anyType); ref != nil; {
			if ref.slot.isLocked() {
				ref = d.dirFindNext()
				continue
			}
			if err := d.dirRemove(ref); err != nil {
				return err
			}
			count++
			ref = d.dirFindFirst(p, anyType)
		}
	}

	if count > 0 {
		if err := d.bam.write(); err != nil {
			return err
		}
	}

	d.log.WithField("count", count).Debug("files scratched")
	return errorAt(FilesScratched, count, 0)
}
