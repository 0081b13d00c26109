package core

import (
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// PhraseSource yields recognized utterances. It returns io.EOF when exhausted.
type PhraseSource interface {
	NextPhrase(ctx context.Context) (string, error)
}

// Result describes what the coordinator did with an actionable phrase.
type Result struct {
	Mode    model.Mode
	Phrase  string
	Command model.Command
	Outcome model.Outcome // point-command mode only
	Ticks   uint64        // tracking mode only
}

// Coordinator selects one operating mode per process lifetime. The first
// actionable phrase moves it out of Idle and every later phrase is refused.
type Coordinator struct {
	table        *parser.PhraseTable
	proto        *Protocol
	tracking     model.TrackingConfig
	observations ObservationSource
	logger       *zap.SugaredLogger

	mu         sync.Mutex
	mode       model.Mode
	onDecision func(Decision)
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(table *parser.PhraseTable, proto *Protocol, tracking model.TrackingConfig, observations ObservationSource, logger *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		table:        table,
		proto:        proto,
		tracking:     tracking,
		observations: observations,
		logger:       logger.Named("coordinator"),
	}
}

// OnDecision forwards every tracking decision to fn.
func (c *Coordinator) OnDecision(fn func(Decision)) {
	c.mu.Lock()
	c.onDecision = fn
	c.mu.Unlock()
}

// Mode returns the current mode.
func (c *Coordinator) Mode() model.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Handle dispatches one recognized utterance.
func (c *Coordinator) Handle(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, model.ErrNoPhrase
	}
	m, ok := c.table.Lookup(text)
	if !ok {
		if mode := c.Mode(); mode != model.ModeIdle {
			return Result{Mode: mode}, model.ErrModeLocked
		}
		c.logger.Debugw("no matching phrase", "text", text)
		return Result{Mode: model.ModeIdle}, errors.Wrapf(model.ErrNoMatch, "%q", text)
	}
	next := model.ModePointCommand
	if m.Follow {
		next = model.ModeTracking
	}
	if err := c.enter(next); err != nil {
		return Result{Mode: c.Mode()}, err
	}
	c.logger.Infow("mode selected", "mode", next, "phrase", m.Phrase, "text", text)

	res := Result{Mode: next, Phrase: m.Phrase, Command: m.Command}
	if m.Follow {
		return c.track(ctx, res)
	}
	res.Outcome = c.proto.Send(ctx, m.Command)
	c.logger.Infow("command delivered", "command", m.Command, "status", res.Outcome.Status)
	return res, res.Outcome.Err
}

// Follow enters tracking mode without a phrase.
func (c *Coordinator) Follow(ctx context.Context) (Result, error) {
	if err := c.enter(model.ModeTracking); err != nil {
		return Result{Mode: c.Mode()}, err
	}
	return c.track(ctx, Result{Mode: model.ModeTracking, Command: model.FollowModeEnter})
}

// Run handles phrases until one is actionable, then returns its result.
// Unrecognized and unmatched phrases are skipped.
func (c *Coordinator) Run(ctx context.Context, phrases PhraseSource) (Result, error) {
	for {
		text, err := phrases.NextPhrase(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return Result{Mode: c.Mode()}, nil
			}
			return Result{Mode: c.Mode()}, errors.Wrap(err, "phrase source")
		}
		res, err := c.Handle(ctx, text)
		switch {
		case errors.Is(err, model.ErrNoPhrase):
			c.logger.Debugw("nothing recognized, listening again")
			continue
		case errors.Is(err, model.ErrNoMatch):
			c.logger.Infow("phrase ignored", "text", text)
			continue
		}
		return res, err
	}
}

func (c *Coordinator) enter(next model.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != model.ModeIdle {
		return errors.Wrapf(model.ErrModeLocked, "already in %s", c.mode)
	}
	c.mode = next
	return nil
}

func (c *Coordinator) track(ctx context.Context, res Result) (_ Result, err error) {
	if nerr := c.proto.Notify(ctx, model.FollowModeEnter); nerr != nil {
		c.logger.Warnw("follow notification failed, tracking anyway", "error", nerr)
	}
	stream, err := c.proto.OpenStream(ctx)
	if err != nil {
		return res, err
	}
	defer func() { err = multierr.Append(err, stream.Close()) }()

	tracker := NewTracker(c.tracking, stream, c.logger)
	c.mu.Lock()
	tracker.OnDecision(c.onDecision)
	c.mu.Unlock()

	err = tracker.Run(ctx, c.observations)
	res.Ticks = tracker.Ticks()
	if c.tracking.ReleaseOnExit {
		err = multierr.Append(err, stream.Emit(model.FollowModeExit))
	}
	return res, err
}
