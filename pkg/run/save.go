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
	"os"
)

//
func NewSave() *Save {

	s := &Save{}
	s.Runner = *NewRunner(
		`save [-u|--unit {unit}] -o|--output {file} [-f|--force] [-s|--server {host}]
      [-p|--port {port}]`,
		"get disk image from daemon and save",
		"\nUse the save command to get a disk image from the daemon and save it to a file.",
		"", `- The file extension of the output file needs to match the type of the image
  in the drive, i.e. one of .d64, .d71, .d81, .d80, or .d82. Without extension,
  the image is saved in whatever type it is.

- Saving clears the image's modified flag in the daemon.

`+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddHostSetting()
	s.AddSetting(&s.File, "output", "o", "", nil, "image output file", true)
	s.AddSetting(&s.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)
	s.AddSetting(&s.Force, "force", "f", "", false,
		"force overwriting output file", false)

	return s
}

//
type Save struct {
	//
	Runner
	//
	File  string
	Unit  int
	Force bool
}

//
func (s *Save) Run() error {

	s.ParseSettings()

	if err := validateUnit(s.Unit); err != nil {
		return err
	}

	if !s.Force {
		if _, err := os.Stat(s.File); err == nil &&
			!s.confirm("File exists, overwrite?") {
			return nil
		}
	}

	resp, err := s.apiCall("GET",
		fmt.Sprintf("/drive/%d?type=%s", s.Unit, getExtension(s.File)),
		false, nil)
	if err != nil {
		return err
	}

	defer resp.Close()

	f, err := os.Create(s.File)
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(f)
	defer out.Flush()

	if _, err := io.Copy(out, resp); err != nil {
		return err
	}

	fmt.Println("image saved")
	return nil
}
