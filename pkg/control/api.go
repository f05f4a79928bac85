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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/daemon"
	"github.com/xelalexv/cbmdrive/pkg/image"
)

//
const DefaultPort = 8888

//
type APIServer interface {
	Serve() error
	Stop() error
}

//
func NewAPIServer(addr, repo string, d *daemon.Daemon) APIServer {
	return newAPI(addr, repo, d)
}

//
func newAPI(addr, repo string, d *daemon.Daemon) *api {
	return &api{
		address:       addr,
		repository:    repo,
		daemon:        d,
		longPollQueue: make(chan chan *Change),
	}
}

//
type api struct {
	address    string
	repository string
	daemon     *daemon.Daemon
	server     *http.Server
	//
	longPollQueue chan chan *Change
	stop          chan bool
}

//
func (a *api) router() *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "watch", "GET", "/watch", a.watch)
	addRoute(router, "ls", "GET", "/list", a.list)
	addRoute(router, "attach", "PUT", "/drive/{unit:[89]}", a.attach)
	addRoute(router, "detach", "GET", "/drive/{unit:[89]}/detach", a.detach)
	addRoute(router, "save", "GET", "/drive/{unit:[89]}", a.save)
	addRoute(router, "dir", "GET", "/drive/{unit:[89]}/dir", a.dir)
	addRoute(router, "cmd", "PUT", "/drive/{unit:[89]}/command", a.command)
	addRoute(router, "errch", "GET", "/drive/{unit:[89]}/command", a.errorChannel)

	return router
}

//
func (a *api) Serve() error {

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:%d", a.address, DefaultPort)
	}

	log.Infof("CBMDrive API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: a.router()}

	a.stop = make(chan bool)
	go a.watchDaemon()

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {
	if a.server != nil {
		log.Info("API server stopping...")
		close(a.stop)
		err := a.server.Shutdown(context.Background())
		a.server = nil
		return err
	}
	return nil
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

//
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

//
func getUnit(w http.ResponseWriter, req *http.Request) int {
	vars := mux.Vars(req)
	unit, err := strconv.Atoi(vars["unit"])
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return -1
	}
	return unit
}

//
func getFormat(w http.ResponseWriter, req *http.Request) image.ReaderWriter {
	arg, err := getArg(req, "type")
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return nil
	}
	ret, err := image.NewFormat(arg)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return nil
	}
	return ret
}

// handleDaemonError translates errors from the daemon into status codes
func handleDaemonError(err error, unit int, w http.ResponseWriter) bool {

	if err == nil {
		return false
	}

	msg := err.Error()

	switch {
	case strings.Contains(msg, "could not lock"):
		handleError(fmt.Errorf("unit %d busy", unit), http.StatusLocked, w)
	case strings.Contains(msg, "is modified"):
		handleError(fmt.Errorf(
			"image in unit %d is modified", unit), http.StatusConflict, w)
	case strings.Contains(msg, "no image"):
		handleError(err, http.StatusUnprocessableEntity, w)
	default:
		handleError(err, http.StatusInternalServerError, w)
	}

	return true
}

//
func isFlagSet(req *http.Request, flag string) bool {
	arg, _ := getArg(req, flag)
	return arg == "true"
}

//
func getArg(req *http.Request, arg string) (string, error) {
	ret := req.URL.Query().Get(arg)
	if ret != "" {
		return url.QueryUnescape(ret)
	}
	return ret, nil
}

//
func getRef(req *http.Request) (string, error) {
	return getArg(req, "ref")
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendStreamReply(r io.Reader, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := io.Copy(w, r); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), true)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem writing error: %v", err)
	}
}

// FIXME: make more tolerant
func wantsJSON(req *http.Request) bool {
	return req.Header.Get("Content-Type") == "application/json"
}
