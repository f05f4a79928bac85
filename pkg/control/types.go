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

package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xelalexv/cbmdrive/pkg/daemon"
)

// longest command accepted through the API; the drive itself rejects
// anything above 256 bytes
const maxCommandLength = 1024

//
type Status struct {
	Client string   `json:"client"`
	Units  []string `json:"units"`
}

//
func (s *Status) Add(unit int, status string) {
	s.Units = append(s.Units, fmt.Sprintf("%d: %s", unit, status))
}

//
func (s *Status) String() string {
	ret := "\n"
	if s.Client != "" {
		ret = fmt.Sprintf("%sadapter: %s\n", ret, s.Client)
	}
	for _, u := range s.Units {
		ret = fmt.Sprintf("%s%s\n", ret, u)
	}
	return ret
}

//
type Unit struct {
	daemon.Info
}

//
func (u *Unit) String() string {

	if u.Status != daemon.StatusIdle {
		return fmt.Sprintf("%-4d <%s>", u.Unit, u.Status)
	}

	write := 'w'
	if u.ReadOnly {
		write = 'r'
	}

	mod := ' '
	if u.Modified {
		mod = '*'
	}

	return fmt.Sprintf("%-4d %-5s %-16s %-2s %5d  %c%c",
		u.Unit, u.Type, u.Name, u.ID, u.BlocksFree, write, mod)
}

//
func unitListsEqual(a, b []*Unit) bool {
	if len(a) != len(b) {
		return false
	}
	for ix := range a {
		if a[ix].Info != b[ix].Info {
			return false
		}
	}
	return true
}

//
type Change struct {
	Units  []*Unit `json:"units,omitempty"`
	Client string  `json:"client,omitempty"`
}

// ErrorChannel is a parsed error channel message
type ErrorChannel struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Track   int    `json:"track"`
	Sector  int    `json:"sector"`
}

// parseErrorChannel parses messages of the form code,message,track,sector
func parseErrorChannel(msg string) *ErrorChannel {

	parts := strings.Split(strings.TrimSuffix(msg, "\r"), ",")
	ret := &ErrorChannel{Message: strings.TrimSuffix(msg, "\r")}

	if len(parts) != 4 {
		return ret
	}

	ret.Code, _ = strconv.Atoi(parts[0])
	ret.Message = parts[1]
	ret.Track, _ = strconv.Atoi(parts[2])
	ret.Sector, _ = strconv.Atoi(parts[3])
	return ret
}
