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
	log "github.com/sirupsen/logrus"
)

// memory runs the memory commands. Only M-R is supported, which reads from the
// drive's memory map:
//
//	M-R <address low> <address high> [<count>]
//
// Without count, a single byte is read; a count of 0 reads 256 bytes. The
// bytes are delivered through the error channel.
func (c *command) memory(d *Drive) error {

	switch c.sub() {

	case 'R':
		args := c.data[3:]
		if len(args) < 2 {
			return SyntaxError
		}
		addr := int(args[0]) | int(args[1])<<8
		count := 1
		if len(args) > 2 {
			if count = int(args[2]); count == 0 {
				count = 256
			}
		}
		d.memoryRead(addr, count)
		return codeMemoryRead

	case 'W', 'E':
		log.WithField("unit", d.unit).Debugf(
			"memory command not supported: M-%c", c.sub())
		return Unimplemented
	}

	return InvalidCommand
}

// memoryRead places count bytes starting at addr in the command channel
func (d *Drive) memoryRead(addr, count int) {

	buf := make([]byte, count)
	for ix := range buf {
		buf[ix] = d.memory[(addr+ix)%memorySize]
	}

	d.latch.clear()
	d.cmd.buf = buf
	d.cmd.cursor = 0
	d.cmd.length = len(buf)
	d.cmd.access = accessRead
}
