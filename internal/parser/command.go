// Package parser converts commands, controller replies, phrases and
// observations between their wire/text forms and model types.
//
// Serial wire format (supervisor -> motion controller):
//
//	1 2 3          zone runs (single byte, no terminator)
//	L R F B S      steering bytes
//	CANCEL\n       abort the active zone run
//	FOLLOW\n       enter follow mode
//	STOP FOLLOW\n  leave follow mode
package parser

import (
	"VoiceRover/internal/model"
	"strings"

	"github.com/pkg/errors"
)

// Line commands understood by the controller, without their terminator.
const (
	LineCancel     = "CANCEL"
	LineFollow     = "FOLLOW"
	LineStopFollow = "STOP FOLLOW"
)

var steering = map[model.Op]byte{
	model.OpLeft:     'L',
	model.OpRight:    'R',
	model.OpForward:  'F',
	model.OpBackward: 'B',
	model.OpStop:     'S',
}

var lines = map[model.Op]string{
	model.OpCancel:      LineCancel,
	model.OpFollowEnter: LineFollow,
	model.OpFollowExit:  LineStopFollow,
}

// Encode returns the wire payload of cmd.
func Encode(cmd model.Command) ([]byte, error) {
	if cmd.Op == model.OpMoveToZone {
		if cmd.Zone < 1 || cmd.Zone > model.MaxZone {
			return nil, errors.Wrapf(model.ErrInvalidZone, "zone %d", cmd.Zone)
		}
		return []byte{'0' + cmd.Zone}, nil
	}
	if b, ok := steering[cmd.Op]; ok {
		return []byte{b}, nil
	}
	if l, ok := lines[cmd.Op]; ok {
		return []byte(l + "\n"), nil
	}
	return nil, errors.Wrapf(model.ErrUnknownCommand, "op %d", int(cmd.Op))
}

// MustEncode is Encode for commands known to be valid.
func MustEncode(cmd model.Command) []byte {
	b, err := Encode(cmd)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode maps a wire payload back to its command.
func Decode(payload []byte) (model.Command, error) {
	if len(payload) == 1 {
		return DecodeByte(payload[0])
	}
	s := string(payload)
	if !strings.HasSuffix(s, "\n") {
		return model.Command{}, errors.Wrapf(model.ErrUnknownCommand, "payload %q", payload)
	}
	return DecodeLine(strings.TrimSuffix(s, "\n"))
}

// DecodeByte maps a single-byte payload to its command.
func DecodeByte(b byte) (model.Command, error) {
	if b >= '1' && b <= '0'+model.MaxZone {
		return model.MoveToZone(b - '0'), nil
	}
	for op, sb := range steering {
		if sb == b {
			return model.Command{Op: op}, nil
		}
	}
	return model.Command{}, errors.Wrapf(model.ErrUnknownCommand, "byte %q", b)
}

// DecodeLine maps a line command (without terminator) to its command.
func DecodeLine(line string) (model.Command, error) {
	for op, l := range lines {
		if l == line {
			return model.Command{Op: op}, nil
		}
	}
	return model.Command{}, errors.Wrapf(model.ErrUnknownCommand, "line %q", line)
}

// ParseCommandName parses the CLI name of a command (zone-2, left, stop-follow ...).
func ParseCommandName(name string) (model.Command, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, c := range model.AllCommands() {
		if c.String() == n {
			return c, nil
		}
	}
	return model.Command{}, errors.Wrapf(model.ErrUnknownCommand, "name %q", name)
}
