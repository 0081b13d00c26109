package device

import (
	"VoiceRover/internal/model"
	"bytes"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	serial "go.bug.st/serial"
)

const readChunk = 256

// port is the subset of serial.Port used by SerialDevice.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	Drain() error
}

// openPort is replaced in tests.
var openPort = func(dev string, baud int) (port, error) {
	return serial.Open(dev, &serial.Mode{BaudRate: baud})
}

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	port port
	dev  string
	baud int
	poll time.Duration
	idle time.Duration

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens dev at baud. poll bounds a single read inside ReadFor and
// idle is the pause after an empty read.
func OpenSerial(dev string, baud int, poll, idle time.Duration) (*SerialDevice, error) {
	if _, err := os.Stat(dev); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(model.ErrPortNotFound, dev)
		}
		return nil, errors.Wrapf(model.ErrOpenFailed, "%s: %v", dev, err)
	}
	p, err := openPort(dev, baud)
	if err != nil {
		return nil, errors.Wrapf(model.ErrOpenFailed, "%s: %v", dev, err)
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &SerialDevice{port: p, dev: dev, baud: baud, poll: poll, idle: idle}, nil
}

// SerialOpener returns an Opener that opens SerialDevices with the given read timings.
func SerialOpener(poll, idle time.Duration) Opener {
	return func(dev string, baud int) (Device, error) {
		return OpenSerial(dev, baud, poll, idle)
	}
}

// Name returns the device path.
func (s *SerialDevice) Name() string { return s.dev }

// Write writes p in full and drains the output buffer.
func (s *SerialDevice) Write(p []byte) error {
	if s.isClosed() {
		return errors.New("serial port not open")
	}
	n, err := s.port.Write(p)
	if err != nil {
		return errors.Wrapf(err, "write %s", s.dev)
	}
	if n != len(p) {
		return errors.Errorf("short write on %s: %d of %d bytes", s.dev, n, len(p))
	}
	return errors.Wrapf(s.port.Drain(), "drain %s", s.dev)
}

// ReadFor reads until window elapses, one bounded read at a time.
func (s *SerialDevice) ReadFor(window time.Duration) ([]byte, error) {
	if s.isClosed() {
		return nil, errors.New("serial port not open")
	}
	var buf bytes.Buffer
	chunk := make([]byte, readChunk)
	deadline := time.Now().Add(window)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf.Bytes(), nil
		}
		timeout := s.poll
		if remaining < timeout {
			timeout = remaining
		}
		if err := s.port.SetReadTimeout(timeout); err != nil {
			return buf.Bytes(), errors.Wrapf(err, "set read timeout on %s", s.dev)
		}
		n, err := s.port.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			return buf.Bytes(), errors.Wrapf(err, "read %s", s.dev)
		}
		if n == 0 && s.idle > 0 {
			pause := s.idle
			if r := time.Until(deadline); r < pause {
				pause = r
			}
			if pause > 0 {
				time.Sleep(pause)
			}
		}
	}
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func (s *SerialDevice) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
