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
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xelalexv/cbmdrive/pkg/daemon"
	"github.com/xelalexv/cbmdrive/pkg/vdrive"
)

//
const sizeD64 = 174848

//
func newTestAPI(t *testing.T, repo string) *api {
	old := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { os.Setenv("HOME", old) })
	return newAPI("", repo, daemon.NewDaemon(""))
}

//
func call(a *api, method, path string, body io.Reader,
	asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if asJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, req)
	return rec
}

// attachFormatted attaches a blank 1541 image to unit 8, and formats it
func attachFormatted(t *testing.T, a *api) {

	rec := call(a, "PUT", "/drive/8?type=d64",
		bytes.NewReader(make([]byte, sizeD64)), false)
	if rec.Code != http.StatusOK {
		t.Fatalf("attach failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = call(a, "PUT", "/drive/8/command", strings.NewReader("N0:API,42"),
		false)
	if rec.Code != http.StatusOK || rec.Body.String() != "00, OK,00,00\n" {
		t.Fatalf("format failed: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAttachAndDirectory(t *testing.T) {

	a := newTestAPI(t, "")
	attachFormatted(t, a)

	rec := call(a, "GET", "/drive/8/dir", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("dir failed: %d %s", rec.Code, rec.Body.String())
	}

	var l vdrive.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &l); err != nil {
		t.Fatal(err)
	}
	if l.Name != "API" || l.ID != "42" || l.BlocksFree != 664 {
		t.Errorf("unexpected listing: %+v", l)
	}

	rec = call(a, "GET", "/drive/8/dir", nil, false)
	if !strings.HasSuffix(rec.Body.String(), "664 BLOCKS FREE.\n") {
		t.Errorf("unexpected listing: %q", rec.Body.String())
	}
}

func TestCommandErrors(t *testing.T) {

	a := newTestAPI(t, "")
	attachFormatted(t, a)

	rec := call(a, "PUT", "/drive/8/command", strings.NewReader("X"), true)
	var ec ErrorChannel
	if err := json.Unmarshal(rec.Body.Bytes(), &ec); err != nil {
		t.Fatal(err)
	}
	if ec.Code != 31 || ec.Message != "SYNTAX ERROR" {
		t.Errorf("unexpected error channel: %+v", ec)
	}

	long := strings.Repeat("S0:X,", 60)
	rec = call(a, "PUT", "/drive/8/command", strings.NewReader(long), false)
	if !strings.HasPrefix(rec.Body.String(), "32,") {
		t.Errorf("want long line error, got %q", rec.Body.String())
	}

	rec = call(a, "GET", "/drive/8/command", nil, false)
	if rec.Body.String() != "00, OK,00,00\n" {
		t.Errorf("want OK after reading error, got %q", rec.Body.String())
	}
}

func TestSaveAndDetach(t *testing.T) {

	a := newTestAPI(t, "")
	attachFormatted(t, a)

	rec := call(a, "GET", "/drive/8/detach", nil, false)
	if rec.Code != http.StatusConflict {
		t.Errorf("want conflict for modified image, got %d", rec.Code)
	}

	rec = call(a, "GET", "/drive/8?type=d64", nil, false)
	if rec.Code != http.StatusOK || rec.Body.Len() != sizeD64 {
		t.Fatalf("save failed: %d, %d bytes", rec.Code, rec.Body.Len())
	}

	rec = call(a, "GET", "/drive/8/detach", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("detach failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = call(a, "GET", "/drive/8/dir", nil, false)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("want %d for empty unit, got %d",
			http.StatusUnprocessableEntity, rec.Code)
	}

	rec = call(a, "GET", "/drive/8?type=d64", nil, false)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("want %d for saving empty unit, got %d",
			http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestForcedDetach(t *testing.T) {
	a := newTestAPI(t, "")
	attachFormatted(t, a)
	rec := call(a, "GET", "/drive/8/detach?force=true", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("forced detach failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestListAndStatus(t *testing.T) {

	a := newTestAPI(t, "")
	attachFormatted(t, a)

	rec := call(a, "GET", "/list", nil, true)
	var list []*Unit
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 units, got %d", len(list))
	}
	if list[0].Unit != 8 || list[0].Status != daemon.StatusIdle ||
		list[0].Name != "API" || !list[0].Modified {
		t.Errorf("unexpected unit 8: %+v", list[0].Info)
	}
	if list[1].Unit != 9 || list[1].Status != daemon.StatusEmpty {
		t.Errorf("unexpected unit 9: %+v", list[1].Info)
	}

	rec = call(a, "GET", "/status", nil, false)
	body := rec.Body.String()
	if !strings.Contains(body, "8: idle") || !strings.Contains(body, "9: empty") {
		t.Errorf("unexpected status: %q", body)
	}
}

func TestAttachByReference(t *testing.T) {

	repo := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(repo, "blank.d64"),
		make([]byte, sizeD64), 0644); err != nil {
		t.Fatal(err)
	}

	a := newTestAPI(t, repo)
	rec := call(a, "PUT", "/drive/9?ref=repo://blank.d64", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("attach by reference failed: %d %s",
			rec.Code, rec.Body.String())
	}

	a.repository = ""
	rec = call(a, "PUT", "/drive/9?ref=repo://blank.d64", nil, false)
	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("want %d without repository, got %d",
			http.StatusNotAcceptable, rec.Code)
	}
}

func TestAttachCorrupted(t *testing.T) {
	a := newTestAPI(t, "")
	rec := call(a, "PUT", "/drive/8", bytes.NewReader(make([]byte, 1000)),
		false)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("want %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestIllegalUnit(t *testing.T) {
	a := newTestAPI(t, "")
	if rec := call(a, "GET", "/drive/7/dir", nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("want %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDetectChange(t *testing.T) {

	a := newTestAPI(t, "")

	var list []*Unit
	var client string

	change := a.detectChange(&list, &client)
	if change == nil || len(change.Units) != 2 {
		t.Fatalf("want initial change, got %+v", change)
	}
	if change := a.detectChange(&list, &client); change != nil {
		t.Errorf("want no change, got %+v", change)
	}

	attachFormatted(t, a)
	if change := a.detectChange(&list, &client); change == nil {
		t.Error("attach not detected")
	}
}

func TestParseErrorChannel(t *testing.T) {

	ec := parseErrorChannel("62,FILE NOT FOUND,00,00\r")
	if ec.Code != 62 || ec.Message != "FILE NOT FOUND" || ec.Track != 0 {
		t.Errorf("unexpected result: %+v", ec)
	}

	ec = parseErrorChannel("garbage")
	if ec.Code != 0 || ec.Message != "garbage" {
		t.Errorf("unexpected result: %+v", ec)
	}
}
