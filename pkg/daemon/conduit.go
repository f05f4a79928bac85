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
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

//
const commandLength = 4
const maxNameLength = 255

//
var helloDaemon = []byte("hlod")
var helloBus = []byte("hlob")

// minimum time between two hellos from the adapter, for a hello to be
// considered live
var helloGap = 500 * time.Millisecond

//
const clientBus = "iec"

// conduit is the serial link to the IEC bus adapter
type conduit struct {
	client string
	port   io.ReadWriteCloser
}

//
func newConduit(port string) (*conduit, error) {
	p, err := openPort(port)
	if err != nil {
		return nil, err
	}
	return &conduit{port: p}, nil
}

//
var openPort = func(p string) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        p,
		BaudRate:        1000000,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
}

//
func (c *conduit) close() error {
	return c.port.Close()
}

//
func (c *conduit) syncOnHello() error {

	log.Info("syncing with adapter")
	hello := make([]byte, commandLength)

	for {
		if c.isHello(hello) {
			break
		}
		shiftLeft(hello)
		if err := c.receive(hello[len(hello)-1:]); err != nil {
			return err
		}
	}

	var cmd *command
	var err error

	for { // find last live hello from adapter
		start := time.Now()
		if cmd, err = c.receiveCommand(); err != nil {
			return err
		}
		if cmd.cmd() == CmdHello && time.Since(start) >= helloGap {
			break
		}
		log.Debugf("discarding command: %v", cmd.data)
	}

	if err := c.send(helloDaemon); err != nil {
		return fmt.Errorf("error sending daemon hello: %v", err)
	}

	log.Infof("synced with %s adapter", c.client)
	return nil
}

//
func (c *conduit) isHello(h []byte) bool {
	if bytes.Equal(h, helloBus) {
		c.client = clientBus
		return true
	}
	return false
}

//
func (c *conduit) receive(data []byte) error {
	_, err := io.ReadFull(c.port, data)
	return err
}

//
func (c *conduit) send(data []byte) error {
	_, err := c.port.Write(data)
	return err
}

//
func (c *conduit) receiveCommand() (*command, error) {
	data := make([]byte, commandLength)
	if err := c.receive(data); err != nil {
		return nil, err
	}
	return newCommand(data), nil
}

// receivePayload reads the n bytes following a command
func (c *conduit) receivePayload(n int) ([]byte, error) {
	if n > maxNameLength {
		return nil, fmt.Errorf("payload too long: %d", n)
	}
	data := make([]byte, n)
	if err := c.receive(data); err != nil {
		return nil, fmt.Errorf("error reading payload: %v", err)
	}
	return data, nil
}

//
func shiftLeft(buf []byte) {
	if len(buf) > 1 {
		for ix := 0; ix < len(buf)-1; ix++ {
			buf[ix] = buf[ix+1]
		}
	}
}
