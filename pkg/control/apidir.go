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
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/xelalexv/cbmdrive/pkg/vdrive"
)

//
func (a *api) dir(w http.ResponseWriter, req *http.Request) {

	unit := getUnit(w, req)
	if unit == -1 {
		return
	}

	pattern, err := getArg(req, "pattern")
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	l, err := a.daemon.Directory(unit, pattern)
	if err == vdrive.DriveNotReady {
		handleError(err, http.StatusUnprocessableEntity, w)
		return
	}
	if handleDaemonError(err, unit, w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(l, http.StatusOK, w)
	} else {
		sendStreamReply(strings.NewReader(l.String()), http.StatusOK, w)
	}
}

//
func (a *api) command(w http.ResponseWriter, req *http.Request) {

	unit := getUnit(w, req)
	if unit == -1 {
		return
	}

	cmd, err := ioutil.ReadAll(io.LimitReader(req.Body, maxCommandLength+1))
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	msg, err := a.daemon.Execute(unit, strings.TrimRight(string(cmd), "\r\n"))
	if handleDaemonError(err, unit, w) {
		return
	}

	a.sendErrorChannel(msg, w, req)
}

//
func (a *api) errorChannel(w http.ResponseWriter, req *http.Request) {

	unit := getUnit(w, req)
	if unit == -1 {
		return
	}

	msg, err := a.daemon.Status(unit)
	if handleDaemonError(err, unit, w) {
		return
	}

	a.sendErrorChannel(msg, w, req)
}

//
func (a *api) sendErrorChannel(msg string, w http.ResponseWriter,
	req *http.Request) {
	if wantsJSON(req) {
		sendJSONReply(parseErrorChannel(msg), http.StatusOK, w)
	} else {
		sendReply([]byte(strings.TrimSuffix(msg, "\r")), http.StatusOK, w)
	}
}
