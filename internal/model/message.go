// Package model defines shared message structures for the rover supervisor.
package model

import "fmt"

// Op identifies one entry of the closed command set understood by the motion controller.
type Op int

const (
	OpMoveToZone Op = iota + 1
	OpLeft
	OpRight
	OpForward
	OpBackward
	OpStop
	OpCancel
	OpFollowEnter
	OpFollowExit
)

// MaxZone is the highest zone id the controller has a timed run for.
const MaxZone = 3

// Command is a single motion-controller instruction. Zone is only meaningful for OpMoveToZone.
type Command struct {
	Op   Op    `json:"op"`
	Zone uint8 `json:"zone,omitempty"`
}

// Predefined commands. Zones are built with MoveToZone.
var (
	Left            = Command{Op: OpLeft}
	Right           = Command{Op: OpRight}
	Forward         = Command{Op: OpForward}
	Backward        = Command{Op: OpBackward}
	Stop            = Command{Op: OpStop}
	Cancel          = Command{Op: OpCancel}
	FollowModeEnter = Command{Op: OpFollowEnter}
	FollowModeExit  = Command{Op: OpFollowExit}
)

// MoveToZone returns the navigation command for zone id.
func MoveToZone(id uint8) Command {
	return Command{Op: OpMoveToZone, Zone: id}
}

// AllCommands lists every valid command, zones first.
func AllCommands() []Command {
	cmds := make([]Command, 0, MaxZone+8)
	for z := uint8(1); z <= MaxZone; z++ {
		cmds = append(cmds, MoveToZone(z))
	}
	return append(cmds, Left, Right, Forward, Backward, Stop, Cancel, FollowModeEnter, FollowModeExit)
}

// String returns the CLI name of the command (zone-1, left, follow ...).
func (c Command) String() string {
	switch c.Op {
	case OpMoveToZone:
		return fmt.Sprintf("zone-%d", c.Zone)
	case OpLeft:
		return "left"
	case OpRight:
		return "right"
	case OpForward:
		return "forward"
	case OpBackward:
		return "backward"
	case OpStop:
		return "stop"
	case OpCancel:
		return "cancel"
	case OpFollowEnter:
		return "follow"
	case OpFollowExit:
		return "stop-follow"
	}
	return fmt.Sprintf("op(%d)", int(c.Op))
}

// Observation is what the external QR decoder saw in one frame.
// Found=false means no marker was detected (NoTarget).
type Observation struct {
	Found   bool    `json:"found"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Payload string  `json:"payload,omitempty"`
}

// Target builds an observation for a marker centered at (x, y).
func Target(x, y float64) Observation {
	return Observation{Found: true, X: x, Y: y}
}

// NoTarget builds an observation for a frame without any marker.
func NoTarget() Observation {
	return Observation{}
}

// Point is a pixel coordinate in frame space.
type Point struct {
	X float64
	Y float64
}

// Status classifies the result of a protocol send.
type Status int

const (
	// StatusSent: the controller accepted the command (or stayed silent).
	StatusSent Status = iota
	// StatusResent: the first attempt was busy, cancel + resend succeeded.
	StatusResent
	// StatusBusy: the single resend was still answered with the busy marker.
	StatusBusy
	// StatusFailed: the port was missing, could not be opened or an I/O error occurred.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusResent:
		return "resent"
	case StatusBusy:
		return "busy"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is returned by every protocol send. Reply holds the raw bytes of the last ack window.
type Outcome struct {
	Status  Status
	Command Command
	Reply   []byte
	Err     error
}

// OK reports whether the command reached the controller without a pending busy state.
func (o Outcome) OK() bool {
	return o.Status == StatusSent || o.Status == StatusResent
}

// Mode is the supervisor's operating mode. Transitions only leave ModeIdle.
type Mode int

const (
	ModeIdle Mode = iota
	ModePointCommand
	ModeTracking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePointCommand:
		return "point-command"
	case ModeTracking:
		return "tracking"
	}
	return "unknown"
}
