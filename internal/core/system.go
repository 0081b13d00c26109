package core

import (
	"VoiceRover/internal/device"
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadConfig overlays the YAML file at path onto DefaultConfig and validates
// the result. An empty path yields the defaults.
func LoadConfig(path string) (model.Config, error) {
	cfg := model.DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// System holds the components built from one configuration.
type System struct {
	Config   model.Config
	Phrases  *parser.PhraseTable
	Protocol *Protocol
	logger   *zap.SugaredLogger
}

// NewSystem builds the phrase table and protocol from cfg. open may be nil
// to use real serial ports.
func NewSystem(cfg model.Config, open device.Opener, logger *zap.SugaredLogger) (*System, error) {
	table, err := parser.NewPhraseTable(cfg.Phrases)
	if err != nil {
		return nil, errors.Wrap(err, "phrase table")
	}
	if open == nil {
		open = device.SerialOpener(cfg.Serial.ReadPoll(), cfg.Serial.IdleSleep())
	}
	logger.Infow("system configured",
		"port", cfg.Serial.Port,
		"baud", cfg.Serial.Baud,
		"phrases", table.Len(),
		"center", cfg.Tracking.Center(),
		"deadband", cfg.Tracking.DeadbandPx,
	)
	return &System{
		Config:   cfg,
		Phrases:  table,
		Protocol: NewProtocol(open, cfg.Serial, cfg.Protocol, logger),
		logger:   logger,
	}, nil
}

// Coordinator returns a fresh coordinator reading tracking frames from observations.
func (s *System) Coordinator(observations ObservationSource) *Coordinator {
	return NewCoordinator(s.Phrases, s.Protocol, s.Config.Tracking, observations, s.logger)
}
