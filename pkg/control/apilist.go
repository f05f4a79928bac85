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
	"net/http"

	"github.com/xelalexv/cbmdrive/pkg/daemon"
)

//
func (a *api) list(w http.ResponseWriter, req *http.Request) {

	list := a.getUnits()

	if wantsJSON(req) {
		sendJSONReply(list, http.StatusOK, w)

	} else {
		strList := "\nUNIT TYPE  DISK NAME        ID  FREE  STATE"
		for _, u := range list {
			strList += fmt.Sprintf("\n%s", u.String())
		}
		sendReply([]byte(strList), http.StatusOK, w)
	}
}

//
func (a *api) getUnits() []*Unit {

	var ret []*Unit

	for unit := daemon.UnitFirst; unit < daemon.UnitFirst+daemon.UnitCount; unit++ {
		if info, err := a.daemon.GetInfo(unit); err == nil {
			ret = append(ret, &Unit{Info: *info})
		}
	}

	return ret
}
