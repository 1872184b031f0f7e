// Package mgerr defines the error taxonomy shared across the host
// runtime and firmware simulation, so callers can errors.Is/As instead
// of matching on strings.
package mgerr

import "errors"

var (
	// ErrTransportLost means the writer queue was closed or the
	// reader stream returned EOF — "connection aborted" at the API
	// boundary.
	ErrTransportLost = errors.New("megabit: connection aborted")
	// ErrProtocolCorrupt means a decode failure or unexpected reply
	// opcode was seen. Dropped silently; callers should not treat
	// this as fatal.
	ErrProtocolCorrupt = errors.New("megabit: protocol corrupt")
	// ErrCommandFailure wraps a reply whose status byte was not
	// success.
	ErrCommandFailure = errors.New("megabit: command failed")
	// ErrRangeViolation means a screen buffer write fell outside the
	// buffer's bounds.
	ErrRangeViolation = errors.New("megabit: invalid input")
	// ErrSandboxTrap means guest code faulted inside a capability
	// call or setup()/run().
	ErrSandboxTrap = errors.New("megabit: sandbox trap")
	// ErrLoadFailure means an app manifest was invalid or its binary
	// was missing.
	ErrLoadFailure = errors.New("megabit: app load failure")
	// ErrNotConnected means a request method was invoked against a
	// transport whose writer queue has already been closed.
	ErrNotConnected = errors.New("megabit: not connected")
	// ErrNoMessage means an inbox wait exceeded its timeout without a
	// matching message arriving.
	ErrNoMessage = errors.New("megabit: no message")
)
