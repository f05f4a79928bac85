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
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xelalexv/cbmdrive/pkg/control"
	"github.com/xelalexv/cbmdrive/pkg/daemon"
)

//
const runnerHelpPrologue = ""
const runnerHelpEpilogue = `- When a flag can be set via environment variable, the variable name is given
  in parenthesis at the end of the flag explanation. Note however that a flag,
  when specified overrides an environment variable.
`

/*
	NewRunner creates a base runner for commands to use. The parameters are
	passed to the base command wrapped by this runner.
*/
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {
	return &Runner{
		Command: *NewCommand(
			use, short, long, helpPrologue, helpEpilogue, exec),
	}
}

//
type Runner struct {
	//
	Command
	//
	Port int
	Host string
}

//
func (r *Runner) AddBaseSettings() {
	// Implementation Note: This cannot be included in NewRunner, but rather has
	// to be called from the top level command type. Otherwise, we will confuse
	// Cobra/Viper and the settings will not be filled with their values.
	r.AddSetting(&r.Port, "port", "p", "CBMDRIVE_PORT", control.DefaultPort,
		"port of daemon's API server", false)
}

// AddHostSetting adds the setting for the host running the daemon, for
// commands that talk to the API server
func (r *Runner) AddHostSetting() {
	r.AddSetting(&r.Host, "server", "s", "CBMDRIVE_SERVER", "127.0.0.1",
		"host running the daemon's API server", false)
}

// apiCall sends a request to the API server. For a response with an error
// status, the response body becomes the error message.
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	host := r.Host
	if host == "" {
		host = "127.0.0.1"
	}

	client := &http.Client{}
	req, err := http.NewRequest(
		method, fmt.Sprintf("http://%s:%d%s", host, r.Port, path), body)
	if err != nil {
		return nil, err
	}

	if json {
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Accept", "application/json")
	} else {
		req.Header.Add("Content-Type", "text/plain")
		req.Header.Add("Accept", "text/plain")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &apiError{status: resp.Status, code: resp.StatusCode,
			msg: strings.TrimSpace(string(msg))}
	}

	return resp.Body, nil
}

// apiText sends a request to the API server, and returns the response body
func (r *Runner) apiText(method, path string, body io.Reader) (string, error) {
	resp, err := r.apiCall(method, path, false, body)
	if err != nil {
		return "", err
	}
	defer resp.Close()
	msg, err := ioutil.ReadAll(resp)
	return string(msg), err
}

// apiError is an error status returned by the API server
type apiError struct {
	status string
	code   int
	msg    string
}

//
func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.status, e.msg)
}

// isConflict determines whether err says that the image in a unit is
// modified and would get lost
func isConflict(err error) bool {
	var e *apiError
	return errors.As(err, &e) && e.code == http.StatusConflict
}

// confirmForced calls do with the given force, and if that fails because of a
// modified image, asks the user whether to repeat with force.
func (r *Runner) confirmForced(force bool, prompt string,
	do func(force bool) (string, error)) (string, error) {

	msg, err := do(force)
	if force || !isConflict(err) {
		return msg, err
	}
	if !r.confirm(prompt) {
		return "", err
	}
	return do(true)
}

//
func validateUnit(u int) error {
	last := daemon.UnitFirst + daemon.UnitCount - 1
	if u < daemon.UnitFirst || u > last {
		return fmt.Errorf(
			"invalid unit number: %d; valid numbers are %d through %d",
			u, daemon.UnitFirst, last)
	}
	return nil
}

//
func getExtension(file string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))
}
