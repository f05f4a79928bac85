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

// position would position a relative file's channel on a record:
//
//	P <channel> <record low> <record high> <position>
//
// Relative files can not be opened, so there never is a channel to position.
func (c *command) position(d *Drive) error {

	if len(c.data) < 2 {
		return SyntaxError
	}

	ch := int(c.data[1] & 0x0f)
	d.log.WithField("channel", ch).Debug("position on non-relative channel")
	return NoChannel
}
