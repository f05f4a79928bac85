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

package helper

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
const FlagModified = 0x01
const FlagReadOnly = 0x02
const AutoSaveVersion = 1

const ixVersion = 0
const ixType = 1
const ixFlags = 2

// AutoSave writes the image in unit to the unit's auto-save file, unless it
// has been auto-saved already since it was last modified.
func AutoSave(unit int, img *image.Image) error {

	if img == nil || img.IsAutoSaved() {
		return nil
	}

	start := time.Now()
	log.Infof("auto-saving unit %d", unit)

	fm, err := image.NewFormat(img.Type().Extension())
	if err != nil {
		return err
	}

	_, file, err := autoSavePath(unit, true)
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s_", file)

	fd, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(fd)

	preamble := make([]byte, 3)

	var flags byte = 0
	if img.IsModified() {
		flags |= FlagModified
	}
	if img.IsReadOnly() {
		flags |= FlagReadOnly
	}

	preamble[ixVersion] = AutoSaveVersion
	preamble[ixType] = byte(img.Type())
	preamble[ixFlags] = flags

	if err := writeRaw(preamble, out); err != nil {
		fd.Close()
		return err
	}

	if err := fm.Write(img, out); err != nil {
		fd.Close()
		return err
	}

	if err := out.Flush(); err != nil {
		fd.Close()
		return err
	}

	if err := fd.Sync(); err != nil {
		fd.Close()
		return err
	}

	if err := fd.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, file); err != nil {
		return err
	}

	img.SetAutoSaved(true)

	log.Debugf("auto-save took %v", time.Now().Sub(start))
	return nil
}

// AutoLoad reads the auto-save file of unit. If there is none, nil is
// returned without error.
func AutoLoad(unit int) (*image.Image, error) {

	log.Infof("loading auto-save for unit %d", unit)

	_, file, err := autoSavePath(unit, false)
	if err != nil {
		return nil, err
	}

	fd, err := os.Open(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Infof("no auto-save file for unit %d", unit)
		return nil, nil
	}
	defer fd.Close()

	in := bufio.NewReader(fd)

	preamble, err := readRaw(in, 64)
	if err != nil {
		return nil, fmt.Errorf("error reading preamble: %v", err)
	}

	if len(preamble) <= ixFlags {
		return nil, fmt.Errorf("auto-save preamble too short")
	}

	if preamble[ixVersion] != AutoSaveVersion {
		return nil, fmt.Errorf(
			"incompatible auto-save version, want %d, got %d",
			AutoSaveVersion, preamble[ixVersion])
	}

	typ := image.Type(preamble[ixType])
	fm, err := image.NewFormat(typ.Extension())
	if err != nil {
		return nil, err
	}

	img, err := fm.Read(in, preamble[ixFlags]&FlagReadOnly != 0)
	if err != nil {
		return nil, err
	}

	img.SetModified(preamble[ixFlags]&FlagModified != 0)
	img.SetAutoSaved(true)
	return img, nil
}

// AutoRemove deletes the auto-save file of unit, if there is one.
func AutoRemove(unit int) error {

	_, file, err := autoSavePath(unit, false)
	if err != nil {
		return err
	}

	if err := os.Remove(file); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	} else {
		log.Infof("removed auto-save for unit %d", unit)
	}

	return nil
}

//
func autoSavePath(unit int, create bool) (string, string, error) {

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	dir := filepath.Join(home, ".cbmdrive", fmt.Sprintf("%d", unit))

	if create {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", err
		}
	}

	return dir, filepath.Join(dir, "disk"), nil
}

//
func readRaw(in io.Reader, maxLen int) ([]byte, error) {

	buf := []byte{0, 0}
	if _, err := io.ReadFull(in, buf); err != nil {
		return nil, err
	}

	length := int(buf[0]) + 256*int(buf[1])

	if length > maxLen {
		return nil, fmt.Errorf("max length %d, but have %d", maxLen, length)
	}

	ret := make([]byte, length)
	if _, err := io.ReadFull(in, ret); err != nil {
		return nil, err
	}

	return ret, nil
}

//
func writeRaw(data []byte, out io.Writer) error {

	buf := []byte{byte(len(data) % 256), byte((len(data) >> 8))}

	if _, err := out.Write(buf); err != nil {
		return err
	}

	if _, err := out.Write(data); err != nil {
		return err
	}

	return nil
}
