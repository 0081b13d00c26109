package device

import (
	"VoiceRover/internal/parser"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Controller replies, as printed by the Arduino sketch.
const (
	ReplyBusy          = "Already executing — ignoring new command."
	ReplyCancelled     = "Execution cancelled by serial. Back to idle."
	ReplyNothingToStop = "No active execution to cancel."
	ReplyFollowOn      = "Follow mode enabled on Arduino."
	ReplyFollowOff     = "Follow mode disabled on Arduino. Back to idle."
	ReplyRunFinished   = "Timed run finished; now idle and listening for next command."
	ReplyReady         = "Serial-Fallback LFR + Follow ready."
)

// DefaultRunDurations are the timed line-follow runs per zone.
var DefaultRunDurations = map[uint8]time.Duration{
	1: 20 * time.Second,
	2: 25 * time.Second,
	3: 15 * time.Second,
}

// ArduinoState is a snapshot of the emulated controller.
type ArduinoState struct {
	Executing bool
	Zone      uint8
	Follow    bool
	Drive     byte // last steering byte, 0 before any
}

// Arduino emulates the motion controller sketch: timed zone runs, busy
// rejection, CANCEL, follow mode and immediate steering bytes.
//
// Bytes arriving in one chunk that are all single-byte commands execute
// immediately. Anything else is buffered until '\n' and handled as a line.
type Arduino struct {
	mu     sync.Mutex
	now    func() time.Time
	runs   map[uint8]time.Duration
	logger *zap.SugaredLogger

	state   ArduinoState
	runEnds time.Time
	line    []byte
}

// NewArduino creates an idle emulator. now may be nil for the wall clock.
func NewArduino(logger *zap.SugaredLogger, now func() time.Time) *Arduino {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	runs := make(map[uint8]time.Duration, len(DefaultRunDurations))
	for z, d := range DefaultRunDurations {
		runs[z] = d
	}
	return &Arduino{now: now, runs: runs, logger: logger}
}

// SetRunDuration overrides the run length of zone.
func (a *Arduino) SetRunDuration(zone uint8, d time.Duration) {
	a.mu.Lock()
	a.runs[zone] = d
	a.mu.Unlock()
}

// State returns a snapshot after applying any finished run.
func (a *Arduino) State() ArduinoState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expire(nil)
	return a.state
}

// Banner is what the sketch prints after reset.
func (a *Arduino) Banner() []byte {
	return []byte(ReplyReady + "\r\n")
}

// Feed processes one chunk of received bytes and returns the reply bytes.
func (a *Arduino) Feed(p []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out strings.Builder
	a.expire(&out)
	for _, c := range p {
		switch {
		case c == '\n' || c == '\r':
			if len(a.line) > 0 {
				a.handleLine(&out, string(a.line))
				a.line = a.line[:0]
			}
		case c >= 32 && c <= 126:
			a.line = append(a.line, c)
		}
	}
	if len(a.line) > 0 && allSingleByte(a.line) {
		for _, c := range a.line {
			a.handleByte(&out, c)
		}
		a.line = a.line[:0]
	}
	return []byte(out.String())
}

// Poll returns the completion notice of a timed run that has ended, if any.
func (a *Arduino) Poll() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out strings.Builder
	a.expire(&out)
	return []byte(out.String())
}

// Serve runs the emulator on dev until ctx ends or an I/O error occurs.
func (a *Arduino) Serve(ctx context.Context, dev Device, poll time.Duration) error {
	if err := dev.Write(a.Banner()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		in, err := dev.ReadFor(poll)
		if err != nil {
			return err
		}
		reply := a.Feed(in)
		reply = append(reply, a.Poll()...)
		if len(reply) == 0 {
			continue
		}
		if len(in) > 0 {
			a.logger.Debugw("rx", "bytes", fmt.Sprintf("%q", in))
		}
		a.logger.Debugw("tx", "bytes", fmt.Sprintf("%q", reply))
		if err := dev.Write(reply); err != nil {
			return err
		}
	}
}

func allSingleByte(b []byte) bool {
	for _, c := range b {
		if _, err := parser.DecodeByte(c); err != nil {
			return false
		}
	}
	return true
}

func writeln(out *strings.Builder, s string) {
	out.WriteString(s)
	out.WriteString("\r\n")
}

func (a *Arduino) expire(out *strings.Builder) {
	if !a.state.Executing || a.now().Before(a.runEnds) {
		return
	}
	a.state.Executing = false
	a.state.Zone = 0
	a.logger.Infow("timed run finished")
	if out != nil {
		writeln(out, ReplyRunFinished)
	}
}

func (a *Arduino) startRun(out *strings.Builder, zone uint8) {
	d, ok := a.runs[zone]
	if !ok {
		return
	}
	if a.state.Executing {
		writeln(out, ReplyBusy)
		return
	}
	a.state = ArduinoState{Executing: true, Zone: zone}
	a.runEnds = a.now().Add(d)
	a.logger.Infow("timed run started", "zone", zone, "duration", d)
	writeln(out, fmt.Sprintf("Started serial-run for index %d for %d s", zone, int(d/time.Second)))
}

func (a *Arduino) handleByte(out *strings.Builder, c byte) {
	cmd, err := parser.DecodeByte(c)
	if err != nil {
		return
	}
	if cmd.Zone != 0 {
		a.startRun(out, cmd.Zone)
	} else {
		// steering takes over from any timed run
		a.state = ArduinoState{Follow: true, Drive: c}
	}
	writeln(out, "ACK: "+string(c))
}

func (a *Arduino) handleLine(out *strings.Builder, raw string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "":
	case "1", "MILK", "GO TO MILK", "GOTOMILK":
		a.startRun(out, 1)
	case "2", "BREAD", "GO TO BREAD", "GOTOBREAD":
		a.startRun(out, 2)
	case "3", "PEN", "GO TO PEN", "GOTOPEN":
		a.startRun(out, 3)
	case parser.LineCancel:
		if !a.state.Executing {
			writeln(out, ReplyNothingToStop)
			return
		}
		a.state = ArduinoState{}
		a.logger.Infow("timed run cancelled")
		writeln(out, ReplyCancelled)
	case parser.LineFollow, "FOLLOW ME", "START FOLLOW":
		a.state = ArduinoState{Follow: true}
		writeln(out, ReplyFollowOn)
	case parser.LineStopFollow, "STOPFOLLOW", "END FOLLOW":
		a.state = ArduinoState{}
		writeln(out, ReplyFollowOff)
	default:
		writeln(out, "Unknown cmd (line): "+s)
	}
}
