// Package model defines shared configuration structures used to initialize the rover supervisor.
// It includes serial settings, protocol timings, tracking geometry and the phrase table.
package model

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config represents the root structure loaded from configs/rover.yml.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Tracking TrackingConfig `yaml:"tracking"`
	Feed     FeedConfig     `yaml:"feed"`
	Log      LogConfig      `yaml:"log"`
	Phrases  []PhraseConfig `yaml:"phrases"`
}

// SerialConfig describes the link to the motion controller.
type SerialConfig struct {
	Port        string `yaml:"port"`          // e.g. /dev/ttyACM0
	Baud        int    `yaml:"baud"`          // must match Serial.begin() on the board
	ReadPollMs  int    `yaml:"read_poll_ms"`  // bound of a single read inside an ack window
	IdleSleepMs int    `yaml:"idle_sleep_ms"` // pause after an empty read
}

// ProtocolConfig holds the timings of send, arbitration and notify exchanges.
type ProtocolConfig struct {
	SettleMs       int    `yaml:"settle_ms"`        // delay between open and the command write
	AckWindowMs    int    `yaml:"ack_window_ms"`    // listen window after a command
	CancelSettleMs int    `yaml:"cancel_settle_ms"` // delay before CANCEL
	CancelWindowMs int    `yaml:"cancel_window_ms"` // listen window after CANCEL
	ResendPauseMs  int    `yaml:"resend_pause_ms"`  // pause between CANCEL and the resend
	NotifySettleMs int    `yaml:"notify_settle_ms"` // delay before a mode notification
	NotifyWindowMs int    `yaml:"notify_window_ms"` // listen window after a mode notification
	StreamSettleMs int    `yaml:"stream_settle_ms"` // wait after opening the tracking stream (board reset)
	BusyMarker     string `yaml:"busy_marker"`      // reply substring meaning "already executing"
}

// TrackingConfig defines the frame geometry and dead-band of the follower.
type TrackingConfig struct {
	FrameWidth    int  `yaml:"frame_width"`
	CenterX       int  `yaml:"center_x"`        // 0 means FrameWidth/2
	DeadbandPx    int  `yaml:"deadband_px"`     // tolerance around CenterX
	ReleaseOnExit bool `yaml:"release_on_exit"` // send STOP FOLLOW when tracking ends
}

// FeedConfig configures the input adapters.
type FeedConfig struct {
	Addr         string `yaml:"addr"`          // websocket hub listen address
	QueueSize    int    `yaml:"queue_size"`    // buffered observations/phrases per hub
	CameraDevice int    `yaml:"camera_device"` // gocv capture index
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Development bool   `yaml:"development"` // console encoder instead of JSON
}

// PhraseConfig maps one spoken phrase to an action. Order in the file is match order.
type PhraseConfig struct {
	Phrase string `yaml:"phrase"`
	Action string `yaml:"action"` // "follow" or "zone"
	Zone   uint8  `yaml:"zone,omitempty"`
}

// Phrase actions.
const (
	ActionFollow = "follow"
	ActionZone   = "zone"
)

// DefaultConfig returns the constants the robot was tuned with.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			Baud:        115200,
			ReadPollMs:  100,
			IdleSleepMs: 20,
		},
		Protocol: ProtocolConfig{
			SettleMs:       100,
			AckWindowMs:    600,
			CancelSettleMs: 80,
			CancelWindowMs: 400,
			ResendPauseMs:  250,
			NotifySettleMs: 80,
			NotifyWindowMs: 400,
			StreamSettleMs: 2000,
			BusyMarker:     "Already executing",
		},
		Tracking: TrackingConfig{
			FrameWidth: 640,
			CenterX:    320,
			DeadbandPx: 50,
		},
		Feed: FeedConfig{
			Addr:      ":10000",
			QueueSize: 8,
		},
		Log: LogConfig{
			Level:       "info",
			Development: true,
		},
		Phrases: DefaultPhrases(),
	}
}

// DefaultPhrases is the phrase table of the voice listener. "follow me" is checked first.
func DefaultPhrases() []PhraseConfig {
	return []PhraseConfig{
		{Phrase: "follow me", Action: ActionFollow},
		{Phrase: "go to milk", Action: ActionZone, Zone: 1},
		{Phrase: "goto milk", Action: ActionZone, Zone: 1},
		{Phrase: "milk", Action: ActionZone, Zone: 1},
		{Phrase: "go to bread", Action: ActionZone, Zone: 2},
		{Phrase: "goto bread", Action: ActionZone, Zone: 2},
		{Phrase: "bread", Action: ActionZone, Zone: 2},
		{Phrase: "go to pen", Action: ActionZone, Zone: 3},
		{Phrase: "goto pen", Action: ActionZone, Zone: 3},
		{Phrase: "pen", Action: ActionZone, Zone: 3},
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Serial.Port == "" {
		err = multierr.Append(err, fmt.Errorf("serial.port is required"))
	}
	if c.Serial.Baud <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid serial.baud %d", c.Serial.Baud))
	}
	if c.Serial.ReadPollMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("serial.read_poll_ms must be positive"))
	}
	p := c.Protocol
	for name, v := range map[string]int{
		"settle_ms":        p.SettleMs,
		"ack_window_ms":    p.AckWindowMs,
		"cancel_settle_ms": p.CancelSettleMs,
		"cancel_window_ms": p.CancelWindowMs,
		"resend_pause_ms":  p.ResendPauseMs,
		"notify_settle_ms": p.NotifySettleMs,
		"notify_window_ms": p.NotifyWindowMs,
		"stream_settle_ms": p.StreamSettleMs,
	} {
		if v < 0 {
			err = multierr.Append(err, fmt.Errorf("protocol.%s must not be negative", name))
		}
	}
	if p.BusyMarker == "" {
		err = multierr.Append(err, fmt.Errorf("protocol.busy_marker is required"))
	}
	if c.Tracking.FrameWidth <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid tracking.frame_width %d", c.Tracking.FrameWidth))
	}
	if c.Tracking.CenterX < 0 {
		err = multierr.Append(err, fmt.Errorf("tracking.center_x must not be negative, use 0 for half the frame width"))
	}
	if c.Tracking.DeadbandPx < 0 {
		err = multierr.Append(err, fmt.Errorf("tracking.deadband_px must not be negative"))
	}
	if len(c.Phrases) == 0 {
		err = multierr.Append(err, fmt.Errorf("phrases table is empty"))
	}
	for i, ph := range c.Phrases {
		switch {
		case ph.Phrase == "":
			err = multierr.Append(err, fmt.Errorf("phrases[%d]: empty phrase", i))
		case ph.Action == ActionZone && (ph.Zone < 1 || ph.Zone > MaxZone):
			err = multierr.Append(err, fmt.Errorf("phrases[%d]: zone %d out of range 1..%d", i, ph.Zone, MaxZone))
		case ph.Action != ActionZone && ph.Action != ActionFollow:
			err = multierr.Append(err, fmt.Errorf("phrases[%d]: unknown action %q", i, ph.Action))
		}
	}
	return err
}

// Center returns the configured frame center, defaulting to half the frame width.
func (t TrackingConfig) Center() float64 {
	if t.CenterX > 0 {
		return float64(t.CenterX)
	}
	return float64(t.FrameWidth) / 2
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// ReadPoll bounds one read call inside an ack window.
func (s SerialConfig) ReadPoll() time.Duration { return ms(s.ReadPollMs) }

// IdleSleep is the pause after an empty read.
func (s SerialConfig) IdleSleep() time.Duration { return ms(s.IdleSleepMs) }

// Settle is the delay between open and a command write.
func (p ProtocolConfig) Settle() time.Duration { return ms(p.SettleMs) }

// AckWindow is the listen window after a command write.
func (p ProtocolConfig) AckWindow() time.Duration { return ms(p.AckWindowMs) }

// CancelSettle is the delay before writing CANCEL.
func (p ProtocolConfig) CancelSettle() time.Duration { return ms(p.CancelSettleMs) }

// CancelWindow is the listen window after CANCEL.
func (p ProtocolConfig) CancelWindow() time.Duration { return ms(p.CancelWindowMs) }

// ResendPause is the pause between the cancel exchange and the resend.
func (p ProtocolConfig) ResendPause() time.Duration { return ms(p.ResendPauseMs) }

// NotifySettle is the delay before a mode notification.
func (p ProtocolConfig) NotifySettle() time.Duration { return ms(p.NotifySettleMs) }

// NotifyWindow is the listen window after a mode notification.
func (p ProtocolConfig) NotifyWindow() time.Duration { return ms(p.NotifyWindowMs) }

// StreamSettle is the wait after opening the tracking stream.
func (p ProtocolConfig) StreamSettle() time.Duration { return ms(p.StreamSettleMs) }
