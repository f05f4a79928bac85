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

package run

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

//
func newImageFile(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "work.d64")
	if err := ioutil.WriteFile(file, make([]byte, 174848), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

//
func shell(t *testing.T, target shellTarget, line, want string) {
	var out bytes.Buffer
	if processLine(target, line, &out) {
		t.Fatalf("%s: shell should not quit", line)
	}
	if want != "" && out.String() != want {
		t.Errorf("%s: want %q, got %q", line, want, out.String())
	}
}

func TestLocalShell(t *testing.T) {

	file := newImageFile(t)
	target, err := newLocalTarget(file, false)
	if err != nil {
		t.Fatal(err)
	}

	shell(t, target, "n0:work,42", "00, OK,00,00\n")

	src := filepath.Join(t.TempDir(), "prog")
	data := bytes.Repeat([]byte{0xa9, 0x00, 0x60}, 200)
	if err := ioutil.WriteFile(src, data, 0644); err != nil {
		t.Fatal(err)
	}

	shell(t, target, "put "+src+" prog", "file copied\n")
	shell(t, target, "put "+src, "error: put expects two arguments\n")
	shell(t, target, "put "+src+" prog", "")

	var out bytes.Buffer
	processLine(target, "$", &out)
	listing := out.String()
	if !strings.Contains(listing, `"PROG"`) ||
		!strings.Contains(listing, "661 BLOCKS FREE.") {
		t.Errorf("unexpected listing: %q", listing)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	shell(t, target, "get prog "+dst, "file copied\n")
	if copied, err := ioutil.ReadFile(dst); err != nil ||
		!bytes.Equal(copied, data) {
		t.Errorf("copied file differs: %v", err)
	}

	shell(t, target, "get nope "+dst, "error: 62,FILE NOT FOUND,00,00\n")
	shell(t, target, "@", "00, OK,00,00\n")

	if !processLine(target, "quit", &out) {
		t.Error("shell should quit")
	}
	if err := target.close(); err != nil {
		t.Fatalf("cannot write back image: %v", err)
	}

	target, err = newLocalTarget(file, true)
	if err != nil {
		t.Fatal(err)
	}
	defer target.close()

	listing, err = target.directory("P*")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(listing, `"PROG"`) ||
		!strings.Contains(listing, `"WORK `) {
		t.Errorf("image not written back: %q", listing)
	}

	shell(t, target, "s0:prog", "26,WRITE PROTECT ON,00,00\n")
}

func TestRemoteShell(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			switch {
			case req.Method == "PUT" && req.URL.Path == "/drive/9/command":
				body, _ := ioutil.ReadAll(req.Body)
				fmt.Fprintf(w, "cmd:%s\n", body)
			case req.Method == "GET" && req.URL.Path == "/drive/9/command":
				fmt.Fprint(w, "00, OK,00,00\n")
			case req.URL.Path == "/drive/9/dir":
				fmt.Fprintf(w, "dir:%s\n", req.URL.Query().Get("pattern"))
			default:
				w.WriteHeader(http.StatusLocked)
				fmt.Fprint(w, "unit 9 busy\n")
			}
		}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	r := &Runner{Port: port, Host: u.Hostname()}
	target := &remoteTarget{runner: r, unit: 9}

	shell(t, target, "v", "cmd:V\n")
	shell(t, target, "$0:a*=p", "dir:A*=P\n")
	shell(t, target, "@", "00, OK,00,00\n")
	shell(t, target, "put a b", "error: put only works on local images\n")

	if _, err := r.apiText("GET", "/list", nil); err == nil ||
		!strings.Contains(err.Error(), "423") ||
		!strings.Contains(err.Error(), "unit 9 busy") {
		t.Errorf("want busy error, got %v", err)
	}
}

func TestValidateUnit(t *testing.T) {
	for _, u := range []int{8, 9} {
		if err := validateUnit(u); err != nil {
			t.Errorf("unit %d: %v", u, err)
		}
	}
	for _, u := range []int{0, 7, 10} {
		if err := validateUnit(u); err == nil {
			t.Errorf("unit %d should be invalid", u)
		}
	}
}

func TestHelpers(t *testing.T) {

	if ext := getExtension("/tmp/Games.D64"); ext != "d64" {
		t.Errorf("want d64, got %s", ext)
	}
	if addr := apiAddress("", 8888); addr != ":8888" {
		t.Errorf("want :8888, got %s", addr)
	}
	if addr := apiAddress("localhost:9000", 8888); addr != "localhost:9000" {
		t.Errorf("want localhost:9000, got %s", addr)
	}
	if p := dirPattern("0:A*=P"); p != "A*=P" {
		t.Errorf("want A*=P, got %s", p)
	}
	if verb, args := splitLine("  put  a   b "); verb != "put" || len(args) != 2 {
		t.Errorf("unexpected split: %s %v", verb, args)
	}
}

func TestConfigureLogging(t *testing.T) {

	env := map[string]string{
		"LOG_FORMAT": "json",
		"LOG_LEVEL":  "debug",
	}
	getenv := func(k string) string { return env[k] }

	logger := log.New()
	if err := configureLogging(logger, getenv); err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("want debug level, got %v", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("want JSON formatter, got %T", logger.Formatter)
	}

	env["LOG_LEVEL"] = "chatty"
	if err := configureLogging(logger, getenv); err == nil {
		t.Error("want error for invalid level")
	}
}

func TestSettings(t *testing.T) {

	os.Setenv("CBMDRIVE_TEST_UNIT", "9")
	defer os.Unsetenv("CBMDRIVE_TEST_UNIT")

	var unit int
	var name string
	var c *Command

	c = NewCommand("test", "", "", "", "", func() error {
		c.ParseSettings()
		return nil
	})
	c.AddSetting(&unit, "testunit", "", "CBMDRIVE_TEST_UNIT", 8, "unit", false)
	c.AddSetting(&name, "testname", "", "", nil, "name", false)

	if err := c.Execute([]string{"--testname", "DISK", "extra"}); err != nil {
		t.Fatal(err)
	}
	if unit != 9 || name != "DISK" {
		t.Errorf("want 9 & DISK, got %d & %s", unit, name)
	}
	if len(c.Args) != 1 || c.Args[0] != "extra" {
		t.Errorf("unexpected args: %v", c.Args)
	}
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{
		"y\n": true, "YES\n": true, " y ": true,
		"n\n": false, "\n": false, "": false, "yep\n": false,
	} {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(answer), &out,
			"Sure?"); got != want {
			t.Errorf("%q: want %v, got %v", answer, want, got)
		}
		if out.String() != "Sure? [y/N] " {
			t.Errorf("unexpected prompt: %q", out.String())
		}
	}
}

//
func newDetachServer(t *testing.T, calls *[]string) (string, string) {

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			force := req.URL.Query().Get("force")
			*calls = append(*calls, force)
			if force != "true" {
				w.WriteHeader(http.StatusConflict)
				fmt.Fprint(w, "present image is modified\n")
				return
			}
			fmt.Fprint(w, "image detached\n")
		}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Hostname(), u.Port()
}

func TestDetachConfirmation(t *testing.T) {

	for _, tc := range []struct {
		answer string
		want   []string
		fails  bool
	}{
		{answer: "y\n", want: []string{"false", "true"}},
		{answer: "n\n", want: []string{"false"}, fails: true},
	} {
		var calls []string
		host, port := newDetachServer(t, &calls)

		d := NewDetach()
		var out bytes.Buffer
		d.in = strings.NewReader(tc.answer)
		d.out = &out

		err := d.Execute([]string{"-s", host, "-p", port, "-u", "9"})
		if tc.fails {
			if !isConflict(err) {
				t.Errorf("%q: want conflict, got %v", tc.answer, err)
			}
		} else if err != nil {
			t.Errorf("%q: %v", tc.answer, err)
		}

		if strings.Join(calls, ",") != strings.Join(tc.want, ",") {
			t.Errorf("%q: want calls %v, got %v", tc.answer, tc.want, calls)
		}
		if !strings.Contains(out.String(), "unit 9 is modified") {
			t.Errorf("%q: no confirmation prompt: %q", tc.answer, out.String())
		}
	}

	var calls []string
	host, port := newDetachServer(t, &calls)
	d := NewDetach()
	d.in = strings.NewReader("")
	if err := d.Execute(
		[]string{"-s", host, "-p", port, "-u", "8", "-f"}); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "true" {
		t.Errorf("forced detach should not ask, calls: %v", calls)
	}
}
