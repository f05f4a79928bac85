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
	"sync"

	log "github.com/sirupsen/logrus"
)

// channel identifies a channel of a unit
type channel struct {
	unit      int
	secondary int
}

// mru keeps the most recently read ahead byte of each channel
type mru struct {
	ahead map[channel]byte
	mutex sync.Mutex
}

//
func newMRU() *mru {
	return &mru{ahead: make(map[channel]byte)}
}

//
func (m *mru) reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	log.Trace("MRU reset")
	m.ahead = make(map[channel]byte)
}

//
func (m *mru) put(unit, secondary int, b byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	log.WithFields(log.Fields{
		"unit": unit, "secondary": secondary}).Trace("MRU put")
	m.ahead[channel{unit, secondary}] = b
}

// take returns and removes the byte read ahead on a channel, if any
func (m *mru) take(unit, secondary int) (byte, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	key := channel{unit, secondary}
	b, ok := m.ahead[key]
	if ok {
		delete(m.ahead, key)
	}
	return b, ok
}

//
func (m *mru) dropChannel(unit, secondary int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.ahead, channel{unit, secondary})
}

// drop removes all bytes read ahead on unit
func (m *mru) drop(unit int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for key := range m.ahead {
		if key.unit == unit {
			delete(m.ahead, key)
		}
	}
}
