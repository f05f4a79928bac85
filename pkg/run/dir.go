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
	"net/url"
)

//
func NewDir() *Dir {

	d := &Dir{}
	d.Runner = *NewRunner(
		"dir [-u|--unit {unit}] [pattern] [-s|--server {host}] [-p|--port {port}]",
		"show directory of disk in drive",
		"\nUse the dir command to show the directory of the disk in one of the daemon's drives.",
		"", `- The optional pattern may contain the wildcards * and ?, and a type filter
  after =, e.g. GAME*=P lists only program files starting with GAME.

`+runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddHostSetting()
	d.AddSetting(&d.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)

	return d
}

//
type Dir struct {
	//
	Runner
	//
	Unit int
}

//
func (d *Dir) Run() error {

	d.ParseSettings()

	if err := validateUnit(d.Unit); err != nil {
		return err
	}

	pattern := ""
	if len(d.Args) > 0 {
		pattern = d.Args[0]
	}

	list, err := d.apiText("GET", fmt.Sprintf("/drive/%d/dir?pattern=%s",
		d.Unit, url.QueryEscape(pattern)), nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s", list)
	return nil
}
