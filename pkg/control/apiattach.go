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
	"io"
	"net/http"

	"github.com/xelalexv/cbmdrive/pkg/image"
	"github.com/xelalexv/cbmdrive/pkg/repo"
)

//
func (a *api) attach(w http.ResponseWriter, req *http.Request) {

	unit := getUnit(w, req)
	if unit == -1 {
		return
	}

	var in io.Reader

	if ref, err := getRef(req); ref != "" {
		var rc io.ReadCloser
		if err == nil {
			rc, err = repo.Resolve(ref, a.repository)
		}
		if err != nil {
			handleError(err, http.StatusNotAcceptable, w)
			return
		}
		in = rc
		defer rc.Close()

	} else {
		in = io.LimitReader(req.Body, image.MaxImageSize+1)
	}

	reader := getFormat(w, req)
	if reader == nil {
		return
	}

	img, err := reader.Read(in, isFlagSet(req, "readonly"))
	if err != nil {
		handleError(fmt.Errorf("image corrupted: %v", err),
			http.StatusUnprocessableEntity, w)
		return
	}

	if handleError(req.Body.Close(), http.StatusInternalServerError, w) {
		return
	}

	if handleDaemonError(
		a.daemon.Attach(unit, img, isFlagSet(req, "force")), unit, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf(
		"attached %s image to unit %d", img.Type(), unit)), http.StatusOK, w)
}

//
func (a *api) detach(w http.ResponseWriter, req *http.Request) {

	unit := getUnit(w, req)
	if unit == -1 {
		return
	}

	if handleDaemonError(
		a.daemon.Detach(unit, isFlagSet(req, "force")), unit, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("detached unit %d", unit)), http.StatusOK, w)
}
