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

package repo

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "games"), 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "games", "elite.d64")
	if err := ioutil.WriteFile(file, []byte("IMAGE"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{
		"repo://games/elite.d64",
		"repo:///games/elite.d64",
		"repo://../games/../games/elite.d64",
	} {
		rc, err := Resolve(ref, root)
		if err != nil {
			t.Errorf("%s: %v", ref, err)
			continue
		}
		data, err := ioutil.ReadAll(rc)
		rc.Close()
		if err != nil || string(data) != "IMAGE" {
			t.Errorf("%s: want IMAGE, got %q, %v", ref, data, err)
		}
	}

	for ref, want := range map[string]string{
		"repo://games":           "not a disk image file",
		"repo://missing.d64":     "no such file",
		"/tmp/elite.d64":         "not a repository reference",
		"repo://../../etc/hosts": "no such file",
	} {
		if _, err := Resolve(ref, root); err == nil ||
			!strings.Contains(err.Error(), want) {
			t.Errorf("%s: want error containing '%s', got %v", ref, want, err)
		}
	}

	if _, err := Resolve("repo://games/elite.d64", ""); err == nil ||
		!strings.Contains(err.Error(), "not enabled") {
		t.Errorf("want repository disabled error, got %v", err)
	}
}

func TestIsReference(t *testing.T) {
	if !IsReference("repo://a.d64") || IsReference("a.d64") {
		t.Error("reference detection failed")
	}
}
