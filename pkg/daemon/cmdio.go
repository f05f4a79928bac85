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
)

// maximum number of bytes sent in reply to a single read command
const maxReadLength = 255

/*
	read sends up to the requested number of bytes from a channel. The reply
	starts with the byte count and the bus status, followed by the data. On
	the bus, the last byte of a file needs to be sent with EOI, so we read one
	byte ahead. That byte is kept in the MRU until the next read on the same
	channel. If not a single byte can be read, the status is timeout.
*/
func (c *command) read(d *Daemon) error {

	u, status := d.busUnit(c)
	if u == nil {
		return d.conduit.send([]byte{0, status})
	}
	defer u.release()

	nr, sec := c.unit(), c.secondary()

	max := int(c.arg(2))
	if max == 0 {
		max = maxReadLength
	}

	data := make([]byte, 0, max)
	var err error

	for len(data) < max {
		var b byte
		if b, err = d.readByte(u, sec); err != nil {
			break
		}
		data = append(data, b)
	}

	if err == nil {
		var b byte
		if b, err = u.drive.Read(sec); err == nil {
			d.mru.put(nr, sec, b)
		}
	}

	if err != nil {
		if len(data) == 0 {
			status = StatusTimeout
		} else {
			status = StatusEOI
		}
	}

	log.WithFields(log.Fields{
		"unit":      nr,
		"secondary": sec,
		"count":     len(data),
		"status":    status,
	}).Debug("READ")

	if err := d.conduit.send([]byte{byte(len(data)), status}); err != nil {
		return err
	}
	return d.conduit.send(data)
}

// readByte reads the next byte from channel sec, taking the byte read ahead
// into account
func (d *Daemon) readByte(u *unit, sec int) (byte, error) {
	if b, ok := d.mru.take(u.drive.Unit(), sec); ok {
		return b, nil
	}
	return u.drive.Read(sec)
}

//
func (c *command) write(d *Daemon) error {

	data, err := d.conduit.receivePayload(int(c.arg(2)))
	if err != nil {
		return err
	}

	u, status := d.busUnit(c)
	if u == nil {
		return d.conduit.send([]byte{status})
	}
	defer u.release()

	for _, b := range data {
		if err := u.drive.Write(c.secondary(), b); err != nil {
			status = StatusTimeout
			break
		}
	}

	log.WithFields(log.Fields{
		"unit":      c.unit(),
		"secondary": c.secondary(),
		"count":     len(data),
		"status":    status,
	}).Trace("WRITE")

	return d.conduit.send([]byte{status})
}

// flush signals the end of data sent to a channel. For the command channel,
// this executes the command.
func (c *command) flush(d *Daemon) error {

	u, status := d.busUnit(c)
	if u == nil {
		return d.conduit.send([]byte{status})
	}
	defer u.release()

	// a new command invalidates what was read ahead from the error channel
	d.mru.dropChannel(c.unit(), c.secondary())
	u.drive.Flush(c.secondary())

	if img := u.drive.Image(); img != nil && img.IsModified() {
		d.autoSave(u)
	}

	log.WithFields(log.Fields{
		"unit":      c.unit(),
		"secondary": c.secondary(),
	}).Debug("FLUSH")

	return d.conduit.send([]byte{status})
}
