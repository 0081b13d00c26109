package model

import "github.com/pkg/errors"

// Error taxonomy shared by device, protocol and coordinator code.
var (
	// ErrPortNotFound means the serial device node does not exist.
	ErrPortNotFound = errors.New("serial port not found")
	// ErrOpenFailed means the device node exists but could not be opened.
	ErrOpenFailed = errors.New("serial open failed")
	// ErrBusyReply means the controller answered with the busy marker.
	ErrBusyReply = errors.New("controller busy")
	// ErrNoPhrase means the recognizer produced nothing usable.
	ErrNoPhrase = errors.New("no phrase recognized")
	// ErrNoMatch means the phrase matched no entry of the phrase table.
	ErrNoMatch = errors.New("no matching command")
	// ErrModeLocked means a mode was already chosen for this process.
	ErrModeLocked = errors.New("mode already selected")
	// ErrUnknownCommand means a payload or name maps to no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidZone means a zone id outside 1..MaxZone.
	ErrInvalidZone = errors.New("invalid zone")
)
