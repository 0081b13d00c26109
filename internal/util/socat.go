package util

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SocatManager manages lifecycle of socat-created virtual serial pairs.
type SocatManager struct {
	logger *zap.SugaredLogger
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
}

// NewSocatManager initializes an empty manager.
func NewSocatManager(logger *zap.SugaredLogger) *SocatManager {
	return &SocatManager{logger: logger.Named("virt-serial")}
}

// CreatePair starts a socat process that links two PTYs (bidirectional) and
// waits up to wait for both links to appear.
func (m *SocatManager) CreatePair(left, right string, wait time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := exec.Command(
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start socat")
	}
	m.logger.Infow("started socat", "pid", cmd.Process.Pid, "left", left, "right", right)
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	deadline := time.Now().Add(wait)
	for !exists(left) || !exists(right) {
		if time.Now().After(deadline) {
			return errors.Errorf("socat links %s, %s not ready after %s", left, right, wait)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// Cleanup stops all socat processes and removes created links.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			m.logger.Infow("killing socat", "pid", cmd.Process.Pid)
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}
	for _, path := range m.links {
		if _, err := os.Lstat(path); err == nil {
			_ = os.Remove(path)
			m.logger.Debugw("removed link", "path", path)
		}
	}
	m.logger.Infow("cleanup complete", "pairs", len(m.links)/2)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
