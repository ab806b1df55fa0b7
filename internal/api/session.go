package api

import (
	"sync"
	"time"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/preview"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// Session is one user's editable theme and its preview state.
type Session struct {
	ID      string
	Created time.Time

	mu      sync.Mutex
	cfg     *theme.Configuration
	preview *preview.Orchestrator
}

// Config returns a copy of the session's configuration.
func (s *Session) Config() *theme.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Update applies fn to a copy of the configuration and keeps the copy only
// when fn succeeds, so a rejected request changes nothing.
func (s *Session) Update(fn func(*theme.Configuration) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
