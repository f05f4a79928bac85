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

package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/cbmdrive/pkg/image"
	"github.com/xelalexv/cbmdrive/pkg/image/helper"
	"github.com/xelalexv/cbmdrive/pkg/vdrive"
)

//
const UnitFirst = 8
const UnitCount = 2

//
const StatusEmpty = "empty"
const StatusIdle = "idle"
const StatusBusy = "busy"

//
var ErrDaemonStopped = errors.New("daemon stopped")

// the daemon that hosts the virtual drives and connects them to the IEC bus
type Daemon struct {
	//
	units   []*unit
	conduit *conduit
	port    string
	synced  bool
	//
	mru        *mru
	debugStart time.Time
	//
	stop     chan bool
	stopping bool
	mutex    sync.Mutex
}

// unit is a drive together with the lock serializing access to it
type unit struct {
	drive *vdrive.Drive
	lock  chan bool
}

//
func (u *unit) acquire(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case u.lock <- true:
		return true
	case <-ctx.Done():
		log.WithField("unit", u.drive.Unit()).Debug("unit lock timed out")
		return false
	}
}

//
func (u *unit) release() {
	select {
	case <-u.lock:
	default:
		log.WithField("unit", u.drive.Unit()).Debug("unit was already unlocked")
	}
}

// NewDaemon creates a daemon for units 8 and 9. If port is empty, no serial
// adapter is used and the drives can only be reached through the API.
func NewDaemon(port string) *Daemon {
	ret := &Daemon{
		port: port,
		mru:  newMRU(),
		stop: make(chan bool),
	}
	for ix := 0; ix < UnitCount; ix++ {
		ret.units = append(ret.units, &unit{
			drive: vdrive.New(UnitFirst + ix),
			lock:  make(chan bool, 1),
		})
	}
	return ret
}

//
func (d *Daemon) Serve() error {

	d.autoLoad()

	if d.port == "" {
		log.Info("no adapter port configured, drives only reachable via API")
		<-d.stop
		return ErrDaemonStopped
	}

	return d.listen()
}

//
func (d *Daemon) listen() error {

	if err := d.ResetConduit(); err != nil {
		return err
	}

	var cmd *command
	var err error

	for ; ; cmd = nil {

		if d.isStopping() {
			return ErrDaemonStopped
		}

		if d.synced {
			if cmd, err = d.conduit.receiveCommand(); err != nil {
				log.Errorf("error receiving command: %v", err)
				d.setSynced(false)
			}

		} else {
			if err = d.conduit.syncOnHello(); err != nil {
				log.Errorf("error syncing with adapter: %v", err)
			} else {
				d.setSynced(true)
			}
		}

		if err != nil {
			d.mru.reset()
			if d.isStopping() {
				return ErrDaemonStopped
			}
			if err := d.ResetConduit(); err != nil {
				return err
			}

		} else if cmd != nil {
			if err = cmd.dispatch(d); err != nil {
				log.Errorf("error dispatching command: %v", err)
				d.setSynced(false)
			}
		}
	}
}

//
func (d *Daemon) ResetConduit() error {

	d.setSynced(false)

	if d.conduit != nil {
		log.Infof("closing port %s", d.port)
		if err := d.conduit.close(); err != nil {
			log.Errorf("error closing port: %v", err)
		}
		d.setConduit(nil)
	}

	maxBackoff := 15 * time.Second

	for backoff := time.Second; ; {
		log.Infof("opening port %s", d.port)
		if con, err := newConduit(d.port); err != nil {
			log.Errorf("cannot open serial port: %v", err)
			if backoff < maxBackoff {
				backoff *= 2
			}
			select {
			case <-d.stop:
				return ErrDaemonStopped
			case <-time.After(backoff):
			}
		} else {
			d.setConduit(con)
			return nil
		}
	}
}

// Stop stops the daemon. Files open on any of the units are closed, and
// attached images are auto-saved.
func (d *Daemon) Stop() error {

	d.mutex.Lock()
	if d.stopping {
		d.mutex.Unlock()
		return nil
	}
	d.stopping = true
	close(d.stop)
	d.mutex.Unlock()

	log.Info("daemon stopping...")

	d.mutex.Lock()
	con := d.conduit
	d.mutex.Unlock()

	if con != nil {
		if err := con.close(); err != nil {
			log.Errorf("error closing port: %v", err)
		}
	}

	var ret error
	for _, u := range d.units {
		if !u.acquire(5 * time.Second) {
			ret = fmt.Errorf("could not lock unit %d", u.drive.Unit())
			log.Errorf("%v, skipping auto-save", ret)
			continue
		}
		u.drive.Close(vdrive.CommandChannel)
		d.autoSave(u)
		u.release()
	}

	return ret
}

//
func (d *Daemon) isStopping() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stopping
}

//
func (d *Daemon) autoLoad() {
	for _, u := range d.units {
		img, err := helper.AutoLoad(u.drive.Unit())
		if err != nil {
			log.Errorf("auto-loading unit %d failed: %v", u.drive.Unit(), err)
			continue
		}
		if img != nil {
			if err := u.drive.Attach(img); err != nil {
				log.Errorf("attaching auto-saved image to unit %d failed: %v",
					u.drive.Unit(), err)
			}
		}
	}
}

//
func (d *Daemon) autoSave(u *unit) {
	if err := helper.AutoSave(u.drive.Unit(), u.drive.Image()); err != nil {
		log.Errorf("auto-saving unit %d failed: %v", u.drive.Unit(), err)
	}
}

// getUnit returns the unit with the given unit number, or nil if there is no
// such unit
func (d *Daemon) getUnit(nr int) *unit {
	if UnitFirst <= nr && nr < UnitFirst+len(d.units) {
		return d.units[nr-UnitFirst]
	}
	return nil
}

// lockUnit returns the locked unit with the given unit number
func (d *Daemon) lockUnit(nr int, timeout time.Duration) (*unit, error) {
	u := d.getUnit(nr)
	if u == nil {
		return nil, fmt.Errorf("illegal unit number: %d", nr)
	}
	if !u.acquire(timeout) {
		return nil, fmt.Errorf("could not lock unit %d", nr)
	}
	return u, nil
}

// Attach inserts img into unit nr. If the image present in the unit is
// modified, force is required for replacing it.
func (d *Daemon) Attach(nr int, img *image.Image, force bool) error {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return err
	}
	defer u.release()

	if present := u.drive.Image(); present != nil && !force &&
		present.IsModified() {
		return fmt.Errorf("present image is modified")
	}

	d.mru.drop(nr)
	u.drive.Detach()

	if err := u.drive.Attach(img); err != nil {
		return err
	}

	d.autoSave(u)
	return nil
}

// Detach removes the image from unit nr. If that image is modified, force is
// required.
func (d *Daemon) Detach(nr int, force bool) error {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return err
	}
	defer u.release()

	present := u.drive.Image()
	if present == nil {
		return nil
	}

	if !force && present.IsModified() {
		return fmt.Errorf("present image is modified")
	}

	d.mru.drop(nr)
	u.drive.Detach()

	if err := helper.AutoRemove(nr); err != nil {
		log.Errorf("removing auto-save of unit %d failed: %v", nr, err)
	}
	return nil
}

// Save writes the image in unit nr to out, using w, and clears the image's
// modified flag.
func (d *Daemon) Save(nr int, w image.Writer, out io.Writer) error {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return err
	}
	defer u.release()

	img := u.drive.Image()
	if img == nil {
		return fmt.Errorf("no image in unit %d", nr)
	}

	if err := w.Write(img, out); err != nil {
		return err
	}

	img.SetModified(false)
	return nil
}

// Execute sends a DOS command to the command channel of unit nr, and returns
// the resulting error channel message.
func (d *Daemon) Execute(nr int, cmd string) (string, error) {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return "", err
	}
	defer u.release()

	d.mru.dropChannel(nr, vdrive.CommandChannel)
	for _, b := range []byte(cmd) {
		u.drive.Write(vdrive.CommandChannel, b)
	}
	u.drive.Flush(vdrive.CommandChannel)

	ret := u.drive.Status()
	log.WithFields(log.Fields{
		"unit": nr, "command": cmd, "status": ret}).Debug("EXECUTE")

	if img := u.drive.Image(); img != nil && img.IsModified() {
		d.autoSave(u)
	}
	return ret, nil
}

// Status reads the error channel of unit nr, which clears the error.
func (d *Daemon) Status(nr int) (string, error) {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return "", err
	}
	defer u.release()

	d.mru.dropChannel(nr, vdrive.CommandChannel)
	return u.drive.Status(), nil
}

// Directory returns the directory of the disk in unit nr, filtered by
// pattern.
func (d *Daemon) Directory(nr int, pattern string) (*vdrive.Listing, error) {

	u, err := d.lockUnit(nr, time.Second)
	if err != nil {
		return nil, err
	}
	defer u.release()

	return u.drive.Directory(pattern)
}

// Info describes the state of a unit.
type Info struct {
	Unit       int    `json:"unit"`
	Status     string `json:"status"`
	Type       string `json:"type,omitempty"`
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	BlocksFree int    `json:"blocksFree"`
	ReadOnly   bool   `json:"readOnly"`
	Modified   bool   `json:"modified"`
}

// GetInfo returns the state of unit nr. A unit that cannot be locked in time
// is reported busy.
func (d *Daemon) GetInfo(nr int) (*Info, error) {

	u := d.getUnit(nr)
	if u == nil {
		return nil, fmt.Errorf("illegal unit number: %d", nr)
	}

	ret := &Info{Unit: nr, Status: StatusBusy}
	if !u.acquire(100 * time.Millisecond) {
		return ret, nil
	}
	defer u.release()

	if !u.drive.IsAttached() {
		ret.Status = StatusEmpty
		return ret, nil
	}

	img := u.drive.Image()
	ret.Status = StatusIdle
	ret.Type = img.Type().String()
	ret.ReadOnly = img.IsReadOnly()
	ret.Modified = img.IsModified()

	if l, err := u.drive.Directory(""); err == nil {
		ret.Name = l.Name
		ret.ID = l.ID
		ret.BlocksFree = l.BlocksFree
	}

	return ret, nil
}

// GetClient returns the name of the adapter the daemon is synced with, or
// an empty string if not synced.
func (d *Daemon) GetClient() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.synced && d.conduit != nil {
		return d.conduit.client
	}
	return ""
}

// setSynced records the sync state of the conduit; only the listen loop
// changes it, but API calls read it
func (d *Daemon) setSynced(s bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.synced = s
}

//
func (d *Daemon) setConduit(c *conduit) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.conduit = c
}
