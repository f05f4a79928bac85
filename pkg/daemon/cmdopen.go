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

package daemon

import (
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/vdrive"
)

//
func (c *command) open(d *Daemon) error {

	name, err := d.conduit.receivePayload(int(c.arg(2)))
	if err != nil {
		return err
	}

	u, status := d.busUnit(c)
	if u == nil {
		return d.conduit.send([]byte{status})
	}
	defer u.release()

	d.mru.dropChannel(c.unit(), c.secondary())

	if err := u.drive.Open(c.secondary(), name); err != nil {
		status = StatusTimeout
	}

	log.WithFields(log.Fields{
		"unit":      c.unit(),
		"secondary": c.secondary(),
		"name":      string(name),
		"status":    status,
	}).Debug("OPEN")

	return d.conduit.send([]byte{status})
}

//
func (c *command) close(d *Daemon) error {

	u, status := d.busUnit(c)
	if u == nil {
		return d.conduit.send([]byte{status})
	}
	defer u.release()

	// closing the command channel closes all other channels, too
	if c.secondary() == vdrive.CommandChannel {
		d.mru.drop(c.unit())
	} else {
		d.mru.dropChannel(c.unit(), c.secondary())
	}

	if err := u.drive.Close(c.secondary()); err != nil {
		status = StatusTimeout
	}

	if img := u.drive.Image(); img != nil && img.IsModified() {
		d.autoSave(u)
	}

	log.WithFields(log.Fields{
		"unit":      c.unit(),
		"secondary": c.secondary(),
		"status":    status,
	}).Debug("CLOSE")

	return d.conduit.send([]byte{status})
}
