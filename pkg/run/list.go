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
)

//
func NewList() *List {

	l := &List{}
	l.Runner = *NewRunner(
		"ls [-s|--server {host}] [-p|--port {port}]",
		"get drive list from daemon",
		"\nUse the ls command to get the list of drives from the daemon.",
		"", `- Modified images are marked with *, write protected ones with r.

`+runnerHelpEpilogue, l.Run)

	l.AddBaseSettings()
	l.AddHostSetting()

	return l
}

//
type List struct {
	Runner
}

//
func (l *List) Run() error {

	l.ParseSettings()

	list, err := l.apiText("GET", "/list", nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", list)
	return nil
}
