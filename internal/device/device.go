// Package device defines the serial channel used to talk to the motion controller.
// A channel is opened per operation, written with whole payloads and read for
// bounded windows, never line by line.
package device

import "time"

// Device is an open link to the motion controller.
type Device interface {
	// Write sends p in full and waits until it has left the output buffer.
	Write(p []byte) error

	// ReadFor accumulates whatever arrives until window elapses. It does not
	// stop at the first byte. Bytes gathered before an error are returned with it.
	ReadFor(window time.Duration) ([]byte, error)

	// Close releases the port. Closing twice is a no-op.
	Close() error
}

// Opener opens a fresh Device on port at baud.
type Opener func(port string, baud int) (Device, error)
