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

package vdrive

import (
	"errors"
	"fmt"

	"github.com/xelalexv/cbmdrive/pkg/image"
)

// ErrorCode is a CBM DOS error number, as reported on the error channel.
type ErrorCode int

const (
	OK                ErrorCode = 0
	FilesScratched    ErrorCode = 1
	SelectedPartition ErrorCode = 2
	Unimplemented     ErrorCode = 3

	ReadErrorHeader        ErrorCode = 20
	ReadErrorSync          ErrorCode = 21
	ReadErrorData          ErrorCode = 22
	ReadErrorChecksum      ErrorCode = 23
	ReadErrorDecode        ErrorCode = 24
	WriteErrorVerify       ErrorCode = 25
	WriteProtectOn         ErrorCode = 26
	ReadErrorHeaderSum     ErrorCode = 27
	WriteErrorLongData     ErrorCode = 28
	DiskIDMismatch         ErrorCode = 29
	SyntaxError            ErrorCode = 30
	InvalidCommand         ErrorCode = 31
	LongLine               ErrorCode = 32
	InvalidFilename        ErrorCode = 33
	NoFileGiven            ErrorCode = 34
	CommandNotFound        ErrorCode = 39
	RecordNotPresent       ErrorCode = 50
	OverflowInRecord       ErrorCode = 51
	FileTooLarge           ErrorCode = 52
	WriteFileOpen          ErrorCode = 60
	FileNotOpen            ErrorCode = 61
	FileNotFound           ErrorCode = 62
	FileExists             ErrorCode = 63
	FileTypeMismatch       ErrorCode = 64
	NoBlock                ErrorCode = 65
	IllegalTrackOrSector   ErrorCode = 66
	IllegalSystemTrackOrSc ErrorCode = 67
	NoChannel              ErrorCode = 70
	DirError               ErrorCode = 71
	DiskFull               ErrorCode = 72
	DOSVersion             ErrorCode = 73
	DriveNotReady          ErrorCode = 74
	IllegalPartition       ErrorCode = 77
	DirectoryNotEmpty      ErrorCode = 80
	PermissionDenied       ErrorCode = 81
)

// codeMemoryRead is not a DOS error number; it marks the command channel
// buffer as holding the result of M-R rather than a status line
const codeMemoryRead ErrorCode = -1

var messages = map[ErrorCode]string{
	OK:                     " OK",
	FilesScratched:         "FILES SCRATCHED",
	SelectedPartition:      "SELECTED PARTITION",
	Unimplemented:          "UNIMPLEMENTED",
	ReadErrorHeader:        "READ ERROR",
	ReadErrorSync:          "READ ERROR",
	ReadErrorData:          "READ ERROR",
	ReadErrorChecksum:      "READ ERROR",
	ReadErrorDecode:        "READ ERROR",
	WriteErrorVerify:       "WRITE ERROR",
	WriteProtectOn:         "WRITE PROTECT ON",
	ReadErrorHeaderSum:     "READ ERROR",
	WriteErrorLongData:     "WRITE ERROR",
	DiskIDMismatch:         "DISK ID MISMATCH",
	SyntaxError:            "SYNTAX ERROR",
	InvalidCommand:         "SYNTAX ERROR",
	LongLine:               "SYNTAX ERROR",
	InvalidFilename:        "SYNTAX ERROR",
	NoFileGiven:            "SYNTAX ERROR",
	CommandNotFound:        "SYNTAX ERROR",
	RecordNotPresent:       "RECORD NOT PRESENT",
	OverflowInRecord:       "OVERFLOW IN RECORD",
	FileTooLarge:           "FILE TOO LARGE",
	WriteFileOpen:          "WRITE FILE OPEN",
	FileNotOpen:            "FILE NOT OPEN",
	FileNotFound:           "FILE NOT FOUND",
	FileExists:             "FILE EXISTS",
	FileTypeMismatch:       "FILE TYPE MISMATCH",
	NoBlock:                "NO BLOCK",
	IllegalTrackOrSector:   "ILLEGAL TRACK OR SECTOR",
	IllegalSystemTrackOrSc: "ILLEGAL SYSTEM T OR S",
	NoChannel:              "NO CHANNEL",
	DirError:               "DIR ERROR",
	DiskFull:               "DISK FULL",
	DriveNotReady:          "DRIVE NOT READY",
	IllegalPartition:       "SELECTED PARTITION ILLEGAL",
	DirectoryNotEmpty:      "DIRECTORY NOT EMPTY",
	PermissionDenied:       "PERMISSION DENIED",
}

// Message returns the error channel text for this code. DOSVersion has no
// fixed text, since it depends on the drive model.
func (c ErrorCode) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "UNKNOWN ERROR NUMBER"
}

//
func (c ErrorCode) Error() string {
	return fmt.Sprintf("%02d,%s", int(c), c.Message())
}

// Error is a DOS error with the track & sector it refers to.
type Error struct {
	Code   ErrorCode
	Track  int
	Sector int
}

//
func (e *Error) Error() string {
	return fmt.Sprintf("%02d,%s,%02d,%02d",
		int(e.Code), e.Code.Message(), e.Track, e.Sector)
}

//
func (e *Error) Unwrap() error {
	return e.Code
}

//
func errorAt(code ErrorCode, track, sector int) error {
	return &Error{Code: code, Track: track, Sector: sector}
}

// codeOf maps any error to a DOS error code plus track & sector. Errors from
// the sector store are converted to the closest disk error, everything else
// the drive cannot explain becomes DRIVE NOT READY.
func codeOf(err error) (ErrorCode, int, int) {

	if err == nil {
		return OK, 0, 0
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code, e.Track, e.Sector
	}

	var c ErrorCode
	if errors.As(err, &c) {
		return c, 0, 0
	}

	if errors.Is(err, image.ErrIllegal) {
		return IllegalTrackOrSector, 0, 0
	}

	if errors.Is(err, image.ErrReadOnly) {
		return WriteProtectOn, 0, 0
	}

	return DriveNotReady, 0, 0
}

// pendingError is an error waiting to be read from the error channel
type pendingError struct {
	code   ErrorCode
	track  int
	sector int
}

// errorLatch holds the first error of a command cycle. Later errors are
// dropped until the latch is cleared, either by reading the error channel to
// its end, or by the start of a new command.
type errorLatch struct {
	pending *pendingError
}

// offer latches the given error, if nothing is latched yet. OK always clears
// the latch. Returns whether the offered code was taken.
func (l *errorLatch) offer(code ErrorCode, track, sector int) bool {
	if code == OK {
		l.clear()
		return true
	}
	if l.pending != nil {
		return false
	}
	l.pending = &pendingError{code: code, track: track, sector: sector}
	return true
}

//
func (l *errorLatch) take() *pendingError {
	ret := l.pending
	l.pending = nil
	return ret
}

//
func (l *errorLatch) clear() {
	l.pending = nil
}

//
func (l *errorLatch) peek() *pendingError {
	return l.pending
}
