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
	"fmt"
	"strconv"
)

//
func NewDetach() *Detach {

	d := &Detach{}
	d.Runner = *NewRunner(
		"detach [-u|--unit {unit}] [-f|--force] [-s|--server {host}] [-p|--port {port}]",
		"detach disk image from drive",
		`
Use the detach command to remove the disk image from one of the daemon's drives.
A modified image is only removed when forced, or after confirmation.`,
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddHostSetting()
	d.AddSetting(&d.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)
	d.AddSetting(&d.Force, "force", "f", "", false,
		"force detaching modified image", false)

	return d
}

//
type Detach struct {
	//
	Runner
	//
	Unit  int
	Force bool
}

//
func (d *Detach) Run() error {

	d.ParseSettings()

	if err := validateUnit(d.Unit); err != nil {
		return err
	}

	msg, err := d.confirmForced(d.Force,
		fmt.Sprintf("Image in unit %d is modified, discard changes?", d.Unit),
		func(force bool) (string, error) {
			return d.apiText("GET", fmt.Sprintf("/drive/%d/detach?force=%s",
				d.Unit, strconv.FormatBool(force)), nil)
		})
	if err != nil {
		return err
	}

	fmt.Printf("%s", msg)
	return nil
}
