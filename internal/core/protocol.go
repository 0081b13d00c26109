// Package core contains the runtime logic of the rover supervisor: the serial
// command protocol, the tracking loop, the mode coordinator and the System that
// builds them from configuration.
package core

import (
	"VoiceRover/internal/device"
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Protocol sends commands to the motion controller. Every operation opens its
// own channel and closes it before returning.
type Protocol struct {
	open   device.Opener
	serial model.SerialConfig
	cfg    model.ProtocolConfig
	logger *zap.SugaredLogger
}

// NewProtocol creates a Protocol that opens channels with open.
func NewProtocol(open device.Opener, serial model.SerialConfig, cfg model.ProtocolConfig, logger *zap.SugaredLogger) *Protocol {
	return &Protocol{open: open, serial: serial, cfg: cfg, logger: logger.Named("protocol")}
}

// Send delivers cmd and classifies the acknowledgement window. A busy reply
// triggers one cancel and exactly one resend.
func (p *Protocol) Send(ctx context.Context, cmd model.Command) model.Outcome {
	payload, err := parser.Encode(cmd)
	if err != nil {
		return failed(cmd, nil, err)
	}
	reply, err := p.exchange(ctx, "send", payload, p.cfg.Settle(), p.cfg.AckWindow())
	if err != nil {
		return failed(cmd, reply, err)
	}
	if !parser.IsBusy(reply, p.cfg.BusyMarker) {
		return model.Outcome{Status: model.StatusSent, Command: cmd, Reply: reply}
	}
	p.logger.Warnw("controller busy, cancelling and resending", "command", cmd)
	return p.arbitrate(ctx, cmd, payload)
}

// arbitrate cancels the active run and resends payload once.
func (p *Protocol) arbitrate(ctx context.Context, cmd model.Command, payload []byte) model.Outcome {
	cancel := parser.MustEncode(model.Cancel)
	if _, err := p.exchange(ctx, "cancel", cancel, p.cfg.CancelSettle(), p.cfg.CancelWindow()); err != nil {
		return failed(cmd, nil, err)
	}
	if err := sleep(ctx, p.cfg.ResendPause()); err != nil {
		return failed(cmd, nil, err)
	}
	reply, err := p.exchange(ctx, "resend", payload, p.cfg.Settle(), p.cfg.AckWindow())
	if err != nil {
		return failed(cmd, reply, err)
	}
	if parser.IsBusy(reply, p.cfg.BusyMarker) {
		p.logger.Errorw("controller still busy after resend", "command", cmd)
		return model.Outcome{Status: model.StatusBusy, Command: cmd, Reply: reply, Err: model.ErrBusyReply}
	}
	return model.Outcome{Status: model.StatusResent, Command: cmd, Reply: reply}
}

// Notify sends a mode notification and logs the reply. It never arbitrates.
func (p *Protocol) Notify(ctx context.Context, cmd model.Command) error {
	payload, err := parser.Encode(cmd)
	if err != nil {
		return err
	}
	_, err = p.exchange(ctx, "notify", payload, p.cfg.NotifySettle(), p.cfg.NotifyWindow())
	return err
}

// OpenStream opens the channel held for a tracking session and waits for
// the board to settle after the open.
func (p *Protocol) OpenStream(ctx context.Context) (*Stream, error) {
	dev, err := p.open(p.serial.Port, p.serial.Baud)
	if err != nil {
		p.logger.Errorw("stream open failed", "port", p.serial.Port, "error", err)
		return nil, err
	}
	if err := sleep(ctx, p.cfg.StreamSettle()); err != nil {
		return nil, multierr.Append(err, dev.Close())
	}
	p.logger.Infow("stream opened", "port", p.serial.Port, "baud", p.serial.Baud)
	return &Stream{dev: dev, logger: p.logger.Named("stream")}, nil
}

// exchange runs open, settle, write, read window, close.
func (p *Protocol) exchange(ctx context.Context, op string, payload []byte, settle, window time.Duration) (reply []byte, err error) {
	dev, err := p.open(p.serial.Port, p.serial.Baud)
	if err != nil {
		p.logger.Errorw("open failed", "op", op, "port", p.serial.Port, "error", err)
		return nil, err
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, "close"))
		}
	}()

	if err := sleep(ctx, settle); err != nil {
		return nil, err
	}
	p.logger.Debugw("write", "op", op, "payload", fmt.Sprintf("%q", payload))
	if err := dev.Write(payload); err != nil {
		p.logger.Errorw("write failed", "op", op, "error", err)
		return nil, err
	}
	reply, err = dev.ReadFor(window)
	p.logReply(op, reply)
	if err != nil {
		p.logger.Errorw("read failed", "op", op, "error", err)
	}
	return reply, err
}

func (p *Protocol) logReply(op string, reply []byte) {
	if len(reply) == 0 {
		p.logger.Debugw("no reply", "op", op)
		return
	}
	p.logger.Infow("reply", "op", op, "raw", fmt.Sprintf("%q", reply), "text", parser.ReplyText(reply))
}

func failed(cmd model.Command, reply []byte, err error) model.Outcome {
	return model.Outcome{Status: model.StatusFailed, Command: cmd, Reply: reply, Err: err}
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stream is the channel held open for a tracking session. Emit does not read replies.
type Stream struct {
	dev    device.Device
	logger *zap.SugaredLogger
}

// Emit writes cmd to the controller.
func (s *Stream) Emit(cmd model.Command) error {
	payload, err := parser.Encode(cmd)
	if err != nil {
		return err
	}
	if err := s.dev.Write(payload); err != nil {
		return errors.Wrapf(err, "emit %v", cmd)
	}
	return nil
}

// Close closes the underlying channel.
func (s *Stream) Close() error {
	s.logger.Infow("stream closed")
	return s.dev.Close()
}
