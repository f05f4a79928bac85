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

package repo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

//
const PrefixRepoRef = "repo://"

// newImageSource opens the disk image file at path for buffered reading.
// Only regular files qualify.
func newImageSource(path string) (*imageSource, error) {

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a disk image file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"path": path,
		"size": info.Size(),
	}).Debug("opened image from repository")

	return &imageSource{Reader: bufio.NewReader(f), file: f}, nil
}

// imageSource reads through a buffer, and closes the underlying file
type imageSource struct {
	io.Reader
	file *os.File
}

//
func (s *imageSource) Close() error {
	return s.file.Close()
}

/*
	Resolve opens the disk image referenced by ref. References have the form
	repo://path, with path relative to the repository folder repo. Paths are
	cleaned first, so that a reference cannot point outside of the folder.
*/
func Resolve(ref, repo string) (io.ReadCloser, error) {

	log.WithFields(log.Fields{
		"reference":  ref,
		"repository": repo,
	}).Debug("resolving ref")

	if !IsReference(ref) {
		return nil, fmt.Errorf("not a repository reference: %s", ref)
	}

	if repo == "" {
		return nil, fmt.Errorf("image repository is not enabled")
	}

	path := filepath.Clean("/" + strings.TrimPrefix(ref, PrefixRepoRef))
	return newImageSource(filepath.Join(repo, path))
}

//
func IsReference(r string) bool {
	return strings.HasPrefix(r, PrefixRepoRef)
}
