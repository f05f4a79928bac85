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
	"io"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
)

// MaxImageSize is the size of the largest supported image, an 8250 image
// with error info
var MaxImageSize = int64(T8250.TotalSectors(154) * (SectorSize + 1))

// Reader interface for reading in an image
type Reader interface {
	Read(in io.Reader, readOnly bool) (*Image, error)
}

// Writer interface for writing out an image
type Writer interface {
	Write(img *Image, out io.Writer) error
}

// ReaderWriter interface for reading/writing an image
type ReaderWriter interface {
	Reader
	Writer
}

// NewFormat returns a reader/writer for the given image type name or file
// extension. An empty name gives a reader that detects the type from the
// image size.
func NewFormat(typ string) (ReaderWriter, error) {

	if typ == "" {
		return &raw{typ: UNKNOWN}, nil
	}

	if t := GetType(typ); t != UNKNOWN {
		return &raw{typ: t}, nil
	}

	return nil, fmt.Errorf("unsupported image format: %s", typ)
}

// raw is the plain sector dump format used by all .dXX images
type raw struct {
	typ Type
}

//
func (r *raw) Read(in io.Reader, readOnly bool) (*Image, error) {

	data, err := ioutil.ReadAll(io.LimitReader(in, MaxImageSize+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > MaxImageSize {
		return nil, fmt.Errorf("image too large")
	}

	img, err := NewFromBytes(data, r.typ)
	if err != nil {
		return nil, err
	}

	img.SetReadOnly(readOnly)
	img.SetModified(false)
	return img, nil
}

//
func (r *raw) Write(img *Image, out io.Writer) error {

	if r.typ != UNKNOWN && img.Type() != r.typ {
		return fmt.Errorf("cannot write %s image as %s", img.Type(), r.typ)
	}

	n, err := out.Write(img.Bytes())
	if err != nil {
		return err
	}

	log.Debugf("%d bytes of image data written", n)
	return nil
}
