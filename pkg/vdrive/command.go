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

package vdrive

import (
	"bytes"

	log "github.com/sirupsen/logrus"
)

//
const CmdCopy = 'C'       // copy & concatenate files
const CmdRename = 'R'     // rename file
const CmdScratch = 'S'    // delete files
const CmdInitialize = 'I' // re-read BAM
const CmdNew = 'N'        // format disk
const CmdValidate = 'V'   // rebuild BAM from directory
const CmdBlock = 'B'      // block commands, B-R, B-W, B-A, B-F, B-P
const CmdMemory = 'M'     // memory commands, M-R, M-W, M-E
const CmdUser = 'U'       // user commands
const CmdPosition = 'P'   // position in relative file

//
type command struct {
	data []byte
}

/*
	Execute runs a DOS command, and reports the result on the error channel.
	Any error still pending from an earlier command is discarded first.
*/
func (d *Drive) Execute(cmd []byte) ErrorCode {

	d.latch.clear()

	c := &command{data: trimCommand(cmd)}
	if len(c.data) == 0 {
		d.setError(OK, 0, 0)
		return OK
	}

	d.log.WithField("command", string(c.data)).Debug("executing command")

	code, track, sector := codeOf(c.dispatch(d))
	if code == codeMemoryRead {
		return OK
	}

	if code == InvalidCommand || code == SyntaxError {
		d.log.WithFields(log.Fields{
			"command": string(c.data),
			"code":    int(code),
		}).Warn("invalid command")
	}

	d.setError(code, track, sector)
	return code
}

//
func (c *command) dispatch(d *Drive) error {

	switch c.cmd() {

	case CmdCopy:
		return c.copy(d)

	case CmdRename:
		return c.rename(d)

	case CmdScratch:
		return c.scratch(d)

	case CmdInitialize:
		return c.initialize(d)

	case CmdNew:
		return c.format(d)

	case CmdValidate:
		return c.validate(d)

	case CmdBlock:
		return c.block(d)

	case CmdMemory:
		return c.memory(d)

	case CmdUser:
		return c.user(d)

	case CmdPosition:
		return c.position(d)
	}

	return InvalidCommand
}

//
func (c *command) cmd() byte {
	return c.data[0]
}

// sub returns the byte following the dash in commands like B-R, 0 if there is
// none
func (c *command) sub() byte {
	if dash := bytes.IndexByte(c.data, '-'); dash >= 0 && dash+1 < len(c.data) {
		return c.data[dash+1]
	}
	return 0
}

// args returns the parameter part of a command, i.e. everything after the
// colon, or, without colon, everything after the command word starting at
// from
func (c *command) args(from int) []byte {
	if colon := bytes.IndexByte(c.data, ':'); colon >= 0 {
		return c.data[colon+1:]
	}
	ix := from
	for ; ix < len(c.data); ix++ {
		b := c.data[ix]
		if !('A' <= b && b <= 'Z') && b != '-' {
			break
		}
	}
	return c.data[ix:]
}

// params parses the numeric parameters of a command. At least min numbers
// are expected, at most four are parsed.
func (c *command) params(from, min int) ([]int, error) {

	var ret []int
	num := -1

	for _, b := range c.args(from) {
		switch {
		case '0' <= b && b <= '9':
			if num < 0 {
				num = 0
			}
			num = num*10 + int(b-'0')
		case b == ' ' || b == ')' || b == ',' || b == '#' || b == ':':
			if num >= 0 {
				ret = append(ret, num)
				num = -1
			}
		default:
			return nil, SyntaxError
		}
		if len(ret) == 4 {
			break
		}
	}

	if num >= 0 && len(ret) < 4 {
		ret = append(ret, num)
	}

	if len(ret) < min {
		return nil, SyntaxError
	}
	return ret, nil
}

// ready checks that an image is attached
func (d *Drive) ready() error {
	if d.img == nil {
		return DriveNotReady
	}
	return nil
}
