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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/sirupsen/logrus"
)

//
const shellHelp = `
Any line not listed below is sent to the drive's command channel, and the
resulting error channel message is shown. Letters are converted to upper case.

  $[pattern]          show directory, optionally filtered by pattern
  @                   read error channel
  put {file} {name}   copy local file onto disk (local image only)
  get {name} {file}   copy file from disk to local file (local image only)
  help                show this help
  quit, exit          leave shell

`

//
func NewShell() *Shell {

	s := &Shell{}
	s.Runner = *NewRunner(
		`shell [-i|--image {file}] [-r|--readonly] [-u|--unit {unit}] [-s|--server {host}]
      [-p|--port {port}]`,
		"interactive DOS shell",
		`
Use the shell command for working with a drive interactively. With an image file
given, the shell works on a virtual drive of its own, and writes the image back
when leaving, unless it was opened read-only. Without image file, the shell works
on a unit of the daemon.`,
		"", shellHelp+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddHostSetting()
	s.AddSetting(&s.Image, "image", "i", "", nil, "local image file", false)
	s.AddSetting(&s.ReadOnly, "readonly", "r", "", false,
		"do not write back local image", false)
	s.AddSetting(&s.Unit, "unit", "u", "", 8, "unit number (8 or 9)", false)

	return s
}

//
type Shell struct {
	//
	Runner
	//
	Image    string
	ReadOnly bool
	Unit     int
}

// shellTarget is the drive a shell works on
type shellTarget interface {
	prompt() string
	execute(cmd string) (string, error)
	status() (string, error)
	directory(pattern string) (string, error)
	close() error
}

//
func (s *Shell) Run() error {

	s.ParseSettings()

	var t shellTarget

	if s.Image != "" {
		local, err := newLocalTarget(s.Image, s.ReadOnly)
		if err != nil {
			return err
		}
		t = local

	} else {
		if err := validateUnit(s.Unit); err != nil {
			return err
		}
		t = &remoteTarget{runner: &s.Runner, unit: s.Unit}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          t.prompt(),
		HistoryFile:     historyFile(),
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		t.close()
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}
		if processLine(t, line, rl.Stdout()) {
			break
		}
	}

	return t.close()
}

//
func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("$"),
		readline.PcItem("@"),
		readline.PcItem("put", readline.PcItemDynamic(listFiles)),
		readline.PcItem("get"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

// listFiles lists the local files for completion
func listFiles(line string) []string {
	ret, err := filepath.Glob("*")
	if err != nil {
		log.Debugf("cannot list files: %v", err)
	}
	return ret
}

//
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".cbmdrive")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "shell_history")
}

// processLine handles a single line of shell input. It returns true when the
// shell should be left.
func processLine(t shellTarget, line string, out io.Writer) bool {

	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	verb, args := splitLine(line)
	var msg string
	var err error

	switch strings.ToLower(verb) {

	case "quit", "exit":
		return true

	case "help":
		fmt.Fprint(out, shellHelp)
		return false

	case "put", "get":
		local, ok := t.(*localTarget)
		if !ok {
			err = fmt.Errorf("%s only works on local images", verb)
		} else if len(args) != 2 {
			err = fmt.Errorf("%s expects two arguments", verb)
		} else if verb == "put" {
			err = local.put(args[0], strings.ToUpper(args[1]))
			msg = "file copied"
		} else {
			err = local.get(strings.ToUpper(args[0]), args[1])
			msg = "file copied"
		}

	default:
		line = strings.ToUpper(line)
		switch {
		case line[0] == '$':
			msg, err = t.directory(dirPattern(line[1:]))
		case line == "@":
			msg, err = t.status()
		default:
			msg, err = t.execute(line)
		}
	}

	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	} else {
		fmt.Fprintln(out, strings.TrimRight(msg, "\r\n"))
	}
	return false
}

// splitLine splits a line into the verb and its whitespace separated arguments
func splitLine(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// dirPattern strips the drive prefix from a directory pattern, as in $0:A*
func dirPattern(p string) string {
	if ix := strings.IndexByte(p, ':'); ix >= 0 {
		return p[ix+1:]
	}
	return p
}
