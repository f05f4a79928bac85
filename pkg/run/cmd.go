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
	"strings"
)

//
func NewCmd() *Cmd {

	c := &Cmd{}
	c.Runner = *NewRunner(
		"cmd [-u|--unit {unit}] [command] [-s|--server {host}] [-p|--port {port}]",
		"send DOS command to drive",
		`
Use the cmd command to send a DOS command to the command channel of one of the
daemon's drives, e.g. S0:OLDFILE to scratch a file, or V to validate the disk.
The drive's error channel is shown afterwards. Without a command, just the
error channel is read.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddHostSetting()
	c.AddSetting(&c.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)

	return c
}

//
type Cmd struct {
	//
	Runner
	//
	Unit int
}

//
func (c *Cmd) Run() error {

	c.ParseSettings()

	if err := validateUnit(c.Unit); err != nil {
		return err
	}

	path := fmt.Sprintf("/drive/%d/command", c.Unit)

	var msg string
	var err error

	if len(c.Args) == 0 {
		msg, err = c.apiText("GET", path, nil)
	} else {
		msg, err = c.apiText("PUT", path,
			strings.NewReader(strings.Join(c.Args, " ")))
	}

	if err != nil {
		return err
	}

	fmt.Printf("%s", msg)
	return nil
}
