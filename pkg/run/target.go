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

package run

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
	"github.com/xelalexv/cbmdrive/pkg/vdrive"
)

// channels used for copying files
const (
	channelPut = 1
	channelGet = 2
)

// localTarget is a virtual drive of the shell's own, working on an image file
type localTarget struct {
	file     string
	format   image.ReaderWriter
	drive    *vdrive.Drive
	readOnly bool
}

//
func newLocalTarget(file string, readOnly bool) (*localTarget, error) {

	fm, err := image.NewFormat(getExtension(file))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := fm.Read(bufio.NewReader(f), readOnly)
	if err != nil {
		return nil, fmt.Errorf("cannot read image %s: %v", file, err)
	}

	d := vdrive.New(8)
	if err := d.Attach(img); err != nil {
		return nil, err
	}

	return &localTarget{file: file, format: fm, drive: d, readOnly: readOnly}, nil
}

//
func (l *localTarget) prompt() string {
	return fmt.Sprintf("%s> ", filepath.Base(l.file))
}

//
func (l *localTarget) execute(cmd string) (string, error) {
	for _, b := range []byte(cmd) {
		l.drive.Write(vdrive.CommandChannel, b)
	}
	l.drive.Flush(vdrive.CommandChannel)
	return l.drive.Status(), nil
}

//
func (l *localTarget) status() (string, error) {
	return l.drive.Status(), nil
}

//
func (l *localTarget) directory(pattern string) (string, error) {
	list, err := l.drive.Directory(pattern)
	if err != nil {
		return "", err
	}
	return list.String(), nil
}

// put copies a local file onto the disk
func (l *localTarget) put(src, name string) error {

	data, err := ioutil.ReadFile(src)
	if err != nil {
		return err
	}

	if err := l.drive.Open(channelPut, []byte(name)); err != nil {
		return l.driveError()
	}

	for _, b := range data {
		if err := l.drive.Write(channelPut, b); err != nil {
			l.drive.Close(channelPut)
			return l.driveError()
		}
	}

	if err := l.drive.Close(channelPut); err != nil {
		return l.driveError()
	}
	return nil
}

// get copies a file from the disk to a local file
func (l *localTarget) get(name, dst string) error {

	if err := l.drive.Open(channelGet, []byte(name)); err != nil {
		return l.driveError()
	}
	defer l.drive.Close(channelGet)

	var data []byte
	for {
		b, err := l.drive.Read(channelGet)
		if err == io.EOF {
			break
		}
		if err != nil {
			return l.driveError()
		}
		data = append(data, b)
	}

	return ioutil.WriteFile(dst, data, 0644)
}

// driveError turns the drive's error channel into an error
func (l *localTarget) driveError() error {
	return fmt.Errorf("%s", strings.TrimSpace(l.drive.Status()))
}

// close detaches the image, and writes it back if it was modified
func (l *localTarget) close() error {

	img := l.drive.Detach()
	if img == nil || l.readOnly || !img.IsModified() {
		return nil
	}

	log.Infof("writing back image %s", l.file)

	tmp := fmt.Sprintf("%s_", l.file)
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(f)
	if err := l.format.Write(img, out); err != nil {
		f.Close()
		return err
	}
	if err := out.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, l.file)
}

// remoteTarget is a unit of the daemon
type remoteTarget struct {
	runner *Runner
	unit   int
}

//
func (r *remoteTarget) prompt() string {
	return fmt.Sprintf("cbm:%d> ", r.unit)
}

//
func (r *remoteTarget) execute(cmd string) (string, error) {
	return r.runner.apiText("PUT",
		fmt.Sprintf("/drive/%d/command", r.unit), strings.NewReader(cmd))
}

//
func (r *remoteTarget) status() (string, error) {
	return r.runner.apiText("GET", fmt.Sprintf("/drive/%d/command", r.unit), nil)
}

//
func (r *remoteTarget) directory(pattern string) (string, error) {
	return r.runner.apiText("GET", fmt.Sprintf("/drive/%d/dir?pattern=%s",
		r.unit, url.QueryEscape(pattern)), nil)
}

//
func (r *remoteTarget) close() error {
	return nil
}
