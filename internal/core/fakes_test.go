package core

import (
	"VoiceRover/internal/device"
	"VoiceRover/internal/model"
	"context"
	"io"
	"sync"
	"time"
)

// fakeLink records every channel opened through its opener. Each write is
// answered with the next scripted reply, then with always.
type fakeLink struct {
	mu       sync.Mutex
	replies  []string
	always   string
	openErrs []error
	writeErr error

	writes []string
	opens  int
	closes int
}

func (f *fakeLink) opener() device.Opener {
	return func(string, int) (device.Device, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.opens++
		if len(f.openErrs) > 0 {
			err := f.openErrs[0]
			f.openErrs = f.openErrs[1:]
			if err != nil {
				return nil, err
			}
		}
		return &fakeDevice{link: f}, nil
	}
}

func (f *fakeLink) snapshot() (writes []string, opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...), f.opens, f.closes
}

type fakeDevice struct {
	link   *fakeLink
	reply  string
	closed bool
}

func (d *fakeDevice) Write(p []byte) error {
	f := d.link
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, string(p))
	if len(f.replies) > 0 {
		d.reply = f.replies[0]
		f.replies = f.replies[1:]
	} else {
		d.reply = f.always
	}
	return nil
}

func (d *fakeDevice) ReadFor(time.Duration) ([]byte, error) {
	r := d.reply
	d.reply = ""
	return []byte(r), nil
}

func (d *fakeDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.link.mu.Lock()
	d.link.closes++
	d.link.mu.Unlock()
	return nil
}

type sliceObservations struct {
	obs []model.Observation
	err error
}

func (s *sliceObservations) NextObservation(ctx context.Context) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return model.Observation{}, err
	}
	if len(s.obs) == 0 {
		if s.err != nil {
			return model.Observation{}, s.err
		}
		return model.Observation{}, io.EOF
	}
	o := s.obs[0]
	s.obs = s.obs[1:]
	return o, nil
}

type slicePhrases []string

func (s *slicePhrases) NextPhrase(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(*s) == 0 {
		return "", io.EOF
	}
	p := (*s)[0]
	*s = (*s)[1:]
	return p, nil
}

type recordingEmitter struct {
	cmds []model.Command
	err  error
}

func (r *recordingEmitter) Emit(cmd model.Command) error {
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

// fastProtocol has every delay set to zero.
func fastProtocol() model.ProtocolConfig {
	return model.ProtocolConfig{BusyMarker: "Already executing"}
}

func testSerial() model.SerialConfig {
	return model.SerialConfig{Port: "/dev/ttyTEST0", Baud: 115200, ReadPollMs: 10}
}
