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

// user runs the user commands. U1 & U2 are block read & write, U9 & UJ reset
// the drive. The remaining ones jump into drive memory, which is not
// supported.
func (c *command) user(d *Drive) error {

	if len(c.data) < 2 {
		return InvalidCommand
	}

	switch c.data[1] {

	case '1', 'A':
		p, err := c.params(2, 4)
		if err != nil {
			return err
		}
		return d.blockRead(p[0], p[2], p[3])

	case '2', 'B':
		p, err := c.params(2, 4)
		if err != nil {
			return err
		}
		return d.blockWrite(p[0], p[2], p[3])

	case '9', 'I':
		return d.reset(false)

	case ':', 'J':
		return d.reset(true)
	}

	if u := c.data[1]; '3' <= u && u <= '8' || 'C' <= u && u <= 'H' ||
		'K' <= u && u <= 'P' {
		return DriveNotReady
	}

	return InvalidCommand
}

// reset closes all channels and reports the DOS version. A cold reset also
// clears the drive memory and re-reads the BAM.
func (d *Drive) reset(cold bool) error {

	d.closeAll()

	if cold {
		d.initMemory()
		if d.bam != nil {
			if err := d.bam.read(); err != nil {
				d.log.Errorf("error reading BAM on reset: %v", err)
			}
		}
	}

	d.log.WithField("cold", cold).Debug("drive reset")
	return DOSVersion
}
