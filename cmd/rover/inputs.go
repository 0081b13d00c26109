package main

import (
	"VoiceRover/internal/core"
	"VoiceRover/internal/feed"
	"VoiceRover/internal/model"
	"VoiceRover/internal/vision"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// inputs holds the adapters feeding the coordinator.
type inputs struct {
	phrases      core.PhraseSource
	observations core.ObservationSource

	hub    *feed.Hub
	lines  *feed.LineSource
	camera *vision.CameraSource
}

// openInputs builds the requested sources. An empty phraseKind opens no phrase source.
func openInputs(cfg model.Config, phraseKind, obsKind string, monitor bool, logger *zap.SugaredLogger) (*inputs, error) {
	if phraseKind == sourceStdin && obsKind == sourceStdin {
		return nil, errors.New("stdin can feed phrases or observations, not both")
	}
	in := &inputs{}
	if phraseKind == sourceWS || obsKind == sourceWS || monitor {
		in.hub = feed.NewHub(cfg.Feed.Addr, cfg.Feed.QueueSize, logger)
		go func() {
			if err := in.hub.Start(); err != nil {
				logger.Errorw("websocket hub stopped", "error", err)
			}
		}()
	}
	if phraseKind == sourceStdin || obsKind == sourceStdin {
		in.lines = feed.NewLineSource(os.Stdin, logger)
	}

	switch phraseKind {
	case "":
	case sourceStdin:
		in.phrases = in.lines
	case sourceWS:
		in.phrases = in.hub
	default:
		return nil, multierr.Append(errors.Errorf("unknown phrase source %q", phraseKind), in.close())
	}

	switch obsKind {
	case sourceStdin:
		in.observations = in.lines
	case sourceWS:
		in.observations = in.hub
	case sourceCamera:
		cam, err := vision.OpenCamera(cfg.Feed.CameraDevice, logger)
		if err != nil {
			return nil, multierr.Append(err, in.close())
		}
		in.camera = cam
		in.observations = cam
	default:
		return nil, multierr.Append(errors.Errorf("unknown observation source %q", obsKind), in.close())
	}
	return in, nil
}

func (in *inputs) close() error {
	var err error
	if in.hub != nil {
		err = multierr.Append(err, in.hub.Stop())
	}
	if in.lines != nil {
		err = multierr.Append(err, in.lines.Close())
	}
	if in.camera != nil {
		err = multierr.Append(err, in.camera.Close())
	}
	return err
}

func closeInputs(in *inputs, logger *zap.SugaredLogger) {
	if err := in.close(); err != nil {
		logger.Warnw("closing inputs", "error", err)
	}
}
