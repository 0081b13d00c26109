package device

import (
	"VoiceRover/internal/model"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu       sync.Mutex
	reads    [][]byte
	readErr  error
	written  bytes.Buffer
	short    bool
	timeouts []time.Duration
	drains   int
	closes   int
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) > 0 {
		n := copy(p, f.reads[0])
		f.reads = f.reads[1:]
		return n, nil
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	return 0, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.short {
		p = p[:len(p)/2]
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, t)
	f.mu.Unlock()
	return nil
}

func (f *fakePort) Drain() error {
	f.mu.Lock()
	f.drains++
	f.mu.Unlock()
	return nil
}

// withFakePort makes OpenSerial return fp for an existing temp path.
func withFakePort(t *testing.T, fp *fakePort) string {
	t.Helper()
	orig := openPort
	openPort = func(string, int) (port, error) { return fp, nil }
	t.Cleanup(func() { openPort = orig })

	path := filepath.Join(t.TempDir(), "ttyFAKE0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestOpenSerialMissingPort(t *testing.T) {
	_, err := OpenSerial(filepath.Join(t.TempDir(), "ttyACM9"), 115200, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPortNotFound))
}

func TestOpenSerialDriverFailure(t *testing.T) {
	path := withFakePort(t, nil)
	openPort = func(string, int) (port, error) { return nil, errors.New("permission denied") }

	_, err := OpenSerial(path, 115200, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOpenFailed))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestReadForAccumulatesWholeWindow(t *testing.T) {
	fp := &fakePort{reads: [][]byte{[]byte("Already "), []byte("executing"), []byte("\r\n")}}
	dev, err := OpenSerial(withFakePort(t, fp), 115200, 10*time.Millisecond, time.Millisecond)
	require.NoError(t, err)

	window := 40 * time.Millisecond
	start := time.Now()
	got, err := dev.ReadFor(window)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), window)
	assert.Equal(t, "Already executing\r\n", string(got))
	for _, to := range fp.timeouts {
		assert.LessOrEqual(t, to, 10*time.Millisecond)
	}
}

func TestReadForReturnsPartialOnError(t *testing.T) {
	fp := &fakePort{reads: [][]byte{[]byte("ACK")}, readErr: io.ErrUnexpectedEOF}
	dev, err := OpenSerial(withFakePort(t, fp), 115200, 10*time.Millisecond, 0)
	require.NoError(t, err)

	got, err := dev.ReadFor(time.Second)
	assert.Error(t, err)
	assert.Equal(t, "ACK", string(got))
}

func TestWriteDrainsAndDetectsShortWrites(t *testing.T) {
	fp := &fakePort{}
	dev, err := OpenSerial(withFakePort(t, fp), 115200, 0, 0)
	require.NoError(t, err)

	require.NoError(t, dev.Write([]byte("CANCEL\n")))
	assert.Equal(t, "CANCEL\n", fp.written.String())
	assert.Equal(t, 1, fp.drains)

	fp.short = true
	assert.Error(t, dev.Write([]byte("FOLLOW\n")))
}

func TestCloseIsIdempotent(t *testing.T) {
	fp := &fakePort{}
	dev, err := OpenSerial(withFakePort(t, fp), 115200, 0, 0)
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	assert.Equal(t, 1, fp.closes)
	assert.Error(t, dev.Write([]byte("S")))
	_, err = dev.ReadFor(time.Millisecond)
	assert.Error(t, err)
}

func TestSerialOpenerReturnsDevice(t *testing.T) {
	fp := &fakePort{}
	path := withFakePort(t, fp)
	dev, err := SerialOpener(5*time.Millisecond, time.Millisecond)(path, 9600)
	require.NoError(t, err)
	sd, ok := dev.(*SerialDevice)
	require.True(t, ok)
	assert.Equal(t, path, sd.Name())
}
