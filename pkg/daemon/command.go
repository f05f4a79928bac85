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
	"bytes"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

//
const CmdHello = 'h'     // hello (send/receive to/from adapter)
const CmdPing = 'P'      // ping/pong (send/receive to/from adapter)
const CmdOpen = 'o'      // open channel, followed by name (receive from adapter)
const CmdClose = 'c'     // close channel (receive from adapter)
const CmdRead = 'r'      // talk, read bytes from channel (send to adapter)
const CmdWrite = 'w'     // listen, write bytes to channel (receive from adapter)
const CmdFlush = 'f'     // unlisten, end of data for channel
const CmdTimeStart = 't' // start stop watch
const CmdTimeEnd = 'q'   // stop stop watch
const CmdDebug = 'd'     // debug message (receive from adapter)

// bus status reported to the adapter
const StatusOK = 0x00
const StatusTimeout = 0x02
const StatusEOI = 0x40
const StatusNotPresent = 0x80

// time to wait for a unit being used by the API
const busTimeout = 50 * time.Millisecond

var ping = []byte("Ping")
var pong = []byte("Pong")

//
func newCommand(data []byte) *command {
	return &command{data: data}
}

/*
	A command frame is made up of four bytes: the command, the unit number,
	the secondary address, and an argument whose meaning depends on the
	command. Open & write frames are followed by as many payload bytes as the
	argument says.
*/
type command struct {
	data []byte
}

//
func (c *command) dispatch(d *Daemon) error {

	switch c.cmd() {

	case CmdHello:
		d.setSynced(false)
		return nil

	case CmdPing:
		if bytes.Equal(c.data, ping) {
			log.Debugf("ping from %s adapter", d.conduit.client)
			return d.conduit.send(pong)
		}
		return nil

	case CmdOpen:
		return c.open(d)

	case CmdClose:
		return c.close(d)

	case CmdRead:
		return c.read(d)

	case CmdWrite:
		return c.write(d)

	case CmdFlush:
		return c.flush(d)

	case CmdDebug:
		return c.debug(d)

	case CmdTimeStart:
		return c.timer(true, d)

	case CmdTimeEnd:
		return c.timer(false, d)
	}

	return fmt.Errorf("unknown command: %v", c.data)
}

//
func (c *command) cmd() byte {
	return c.data[0]
}

//
func (c *command) arg(ix int) byte {
	if 0 <= ix && ix < len(c.data)-1 {
		return c.data[ix+1]
	}
	return 0
}

//
func (c *command) unit() int {
	return int(c.arg(0))
}

// secondary returns the channel number, i.e. the low nibble of the secondary
// address
func (c *command) secondary() int {
	return int(c.arg(1) & 0x0f)
}

// busUnit returns the locked unit addressed by c. If there is no such unit,
// or it cannot be locked in time, nil is returned together with the bus
// status to report.
func (d *Daemon) busUnit(c *command) (*unit, byte) {
	u := d.getUnit(c.unit())
	if u == nil {
		return nil, StatusNotPresent
	}
	if !u.acquire(busTimeout) {
		return nil, StatusTimeout
	}
	return u, StatusOK
}
