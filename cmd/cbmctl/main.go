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

package main

import (
	"fmt"
	"os"

	"github.com/xelalexv/cbmdrive/pkg/run"
)

//
var CBMDriveVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: cbmctl {serve|attach|detach|save|ls|dir|cmd|shell|version} ...

run 'cbmctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nCBMDrive %s\n\n", CBMDriveVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	switch action {

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "attach":
		run.DieOnError(run.NewAttach().Execute(args))

	case "detach":
		run.DieOnError(run.NewDetach().Execute(args))

	case "save":
		run.DieOnError(run.NewSave().Execute(args))

	case "ls":
		run.DieOnError(run.NewList().Execute(args))

	case "dir":
		run.DieOnError(run.NewDir().Execute(args))

	case "cmd":
		run.DieOnError(run.NewCmd().Execute(args))

	case "shell":
		run.DieOnError(run.NewShell().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
