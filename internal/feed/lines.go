// Package feed adapts external producers of phrases and observations (stdin
// lines, websocket clients) to the sources consumed by the coordinator.
package feed

import (
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LineSource reads newline-separated text from r in a background goroutine.
// It serves lines as phrases or parses them as observations.
type LineSource struct {
	lines  chan string
	done   chan struct{}
	logger *zap.SugaredLogger

	once sync.Once
	mu   sync.Mutex
	err  error
}

// NewLineSource starts reading r.
func NewLineSource(r io.Reader, logger *zap.SugaredLogger) *LineSource {
	s := &LineSource{
		lines:  make(chan string),
		done:   make(chan struct{}),
		logger: logger.Named("lines"),
	}
	go s.scan(r)
	return s
}

func (s *LineSource) scan(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case s.lines <- sc.Text():
		case <-s.done:
			return
		}
	}
	s.mu.Lock()
	s.err = sc.Err()
	s.mu.Unlock()
}

func (s *LineSource) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if ok {
			return line, nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// NextPhrase returns the next line, trimmed. Blank lines come back empty and
// count as nothing recognized.
func (s *LineSource) NextPhrase(ctx context.Context) (string, error) {
	line, err := s.next(ctx)
	return strings.TrimSpace(line), err
}

// NextObservation returns the next parseable observation line. Malformed
// lines are logged and skipped.
func (s *LineSource) NextObservation(ctx context.Context) (model.Observation, error) {
	for {
		line, err := s.next(ctx)
		if err != nil {
			return model.Observation{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		obs, err := parser.ParseObservation(line)
		if err != nil {
			s.logger.Warnw("bad observation line", "line", line, "error", err)
			continue
		}
		return obs, nil
	}
}

// Close stops the reader goroutine once its current line is consumed.
func (s *LineSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
