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
	"net/url"
	"os"
	"strconv"

	"github.com/xelalexv/cbmdrive/pkg/repo"
)

//
func NewAttach() *Attach {

	a := &Attach{}
	a.Runner = *NewRunner(
		`attach [-u|--unit {unit}] -i|--input {file|repo://{path}} [-t|--type {type}]
      [-r|--readonly] [-f|--force] [-s|--server {host}] [-p|--port {port}]`,
		"attach disk image to drive",
		"\nUse the attach command to insert a disk image into one of the daemon's drives.",
		"", `- Supported image types are d64, d71, d81, d80, and d82. If no type is given,
  it is taken from the file extension. If there is none, the type is detected
  from the image size.

- When the input is a reference starting with repo://, the image is loaded by
  the daemon from its image repository. This requires the daemon to be started
  with the --repo option.

`+runnerHelpEpilogue, a.Run)

	a.AddBaseSettings()
	a.AddHostSetting()
	a.AddSetting(&a.File, "input", "i", "", nil, "image input file", true)
	a.AddSetting(&a.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)
	a.AddSetting(&a.Type, "type", "t", "", nil, "image type", false)
	a.AddSetting(&a.ReadOnly, "readonly", "r", "", false,
		"attach image write protected", false)
	a.AddSetting(&a.Force, "force", "f", "", false,
		"force replacing modified image in daemon without asking", false)

	return a
}

//
type Attach struct {
	//
	Runner
	//
	Unit     int
	File     string
	Type     string
	ReadOnly bool
	Force    bool
}

//
func (a *Attach) Run() error {

	a.ParseSettings()

	if err := validateUnit(a.Unit); err != nil {
		return err
	}

	typ := a.Type
	if typ == "" {
		typ = getExtension(a.File)
	}

	msg, err := a.confirmForced(a.Force,
		fmt.Sprintf("Image in unit %d is modified, replace anyway?", a.Unit),
		func(force bool) (string, error) {
			return a.attach(typ, force)
		})
	if err != nil {
		return err
	}

	fmt.Printf("%s", msg)
	return nil
}

//
func (a *Attach) attach(typ string, force bool) (string, error) {

	path := fmt.Sprintf("/drive/%d?type=%s&force=%s&readonly=%s",
		a.Unit, url.QueryEscape(typ), strconv.FormatBool(force),
		strconv.FormatBool(a.ReadOnly))

	if repo.IsReference(a.File) {
		return a.apiText("PUT",
			fmt.Sprintf("%s&ref=%s", path, url.QueryEscape(a.File)), nil)
	}

	f, err := os.Open(a.File)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return a.apiText("PUT", path, bufio.NewReader(f))
}
