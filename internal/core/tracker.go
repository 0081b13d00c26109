package core

import (
	"VoiceRover/internal/model"
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Emitter receives steering commands. *Stream implements it.
type Emitter interface {
	Emit(cmd model.Command) error
}

// ObservationSource yields one observation per frame. It returns io.EOF when exhausted.
type ObservationSource interface {
	NextObservation(ctx context.Context) (model.Observation, error)
}

// TrackState tells whether the last frame contained a target.
type TrackState int

const (
	TrackStarting TrackState = iota
	TrackTracking
	TrackLost
)

func (s TrackState) String() string {
	switch s {
	case TrackTracking:
		return "tracking"
	case TrackLost:
		return "lost"
	}
	return "starting"
}

// Decision is one tick of the tracking loop.
type Decision struct {
	Tick        uint64
	Observation model.Observation
	Command     model.Command
}

// Tracker maps observations to steering commands with a dead-band around
// the frame center. It never reads acknowledgements.
type Tracker struct {
	cfg     model.TrackingConfig
	emitter Emitter
	logger  *zap.SugaredLogger

	state      TrackState
	ticks      uint64
	onDecision func(Decision)
}

// NewTracker creates a tracker writing to emitter.
func NewTracker(cfg model.TrackingConfig, emitter Emitter, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{cfg: cfg, emitter: emitter, logger: logger.Named("tracker")}
}

// OnDecision registers fn to be called after every emitted command.
func (t *Tracker) OnDecision(fn func(Decision)) { t.onDecision = fn }

// Decide returns Left, Right or Forward for a target and Stop without one.
// A target exactly on the dead-band edge counts as centered.
func (t *Tracker) Decide(obs model.Observation) model.Command {
	return Decide(t.cfg, obs)
}

// Decide is the stateless steering rule.
func Decide(cfg model.TrackingConfig, obs model.Observation) model.Command {
	if !obs.Found {
		return model.Stop
	}
	center := cfg.Center()
	band := float64(cfg.DeadbandPx)
	switch {
	case obs.X < center-band:
		return model.Left
	case obs.X > center+band:
		return model.Right
	}
	return model.Forward
}

// Tick decides and emits exactly one command for obs.
func (t *Tracker) Tick(obs model.Observation) (model.Command, error) {
	cmd := t.Decide(obs)
	t.transition(obs.Found)
	if err := t.emitter.Emit(cmd); err != nil {
		return cmd, err
	}
	t.ticks++
	t.logger.Debugw("tick", "n", t.ticks, "found", obs.Found, "x", obs.X, "command", cmd)
	if t.onDecision != nil {
		t.onDecision(Decision{Tick: t.ticks, Observation: obs, Command: cmd})
	}
	return cmd, nil
}

// Run ticks once per observation until the source is exhausted, ctx ends
// or an emit fails.
func (t *Tracker) Run(ctx context.Context, src ObservationSource) error {
	t.logger.Infow("tracking started", "center", t.cfg.Center(), "deadband", t.cfg.DeadbandPx)
	defer func() { t.logger.Infow("tracking stopped", "ticks", t.ticks) }()
	for {
		if ctx.Err() != nil {
			return nil
		}
		obs, err := src.NextObservation(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "observation source")
		}
		if _, err := t.Tick(obs); err != nil {
			return err
		}
	}
}

// Ticks returns the number of commands emitted.
func (t *Tracker) Ticks() uint64 { return t.ticks }

// State returns the current tracking state.
func (t *Tracker) State() TrackState { return t.state }

func (t *Tracker) transition(found bool) {
	next := TrackLost
	if found {
		next = TrackTracking
	}
	if next == t.state {
		return
	}
	t.state = next
	if found {
		t.logger.Infow("target acquired")
	} else {
		t.logger.Infow("target lost, stopping")
	}
}
