package device

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Loopback is an in-memory Device wired to an Arduino emulator.
// ReadFor returns pending replies immediately instead of waiting out the window.
type Loopback struct {
	fw *Arduino

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// NewLoopback returns a Device backed by fw.
func NewLoopback(fw *Arduino) *Loopback {
	return &Loopback{fw: fw}
}

// Write feeds p to the emulator and queues its reply.
func (l *Loopback) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("loopback closed")
	}
	l.pending = append(l.pending, l.fw.Feed(p)...)
	return nil
}

// ReadFor returns everything the emulator has replied so far.
func (l *Loopback) ReadFor(time.Duration) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("loopback closed")
	}
	out := append(l.pending, l.fw.Poll()...)
	l.pending = nil
	return out, nil
}

// Close marks the loopback closed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

// LoopbackOpener returns an Opener whose devices all share fw, the way
// repeated opens of one serial port reach the same board.
func LoopbackOpener(fw *Arduino) Opener {
	return func(string, int) (Device, error) {
		return NewLoopback(fw), nil
	}
}
