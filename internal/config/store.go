package config

import (
	"fmt"
	"sync"
)

// Store guards a Config shared between the UI loop and the session loop and
// persists every update to disk. An empty path keeps updates in memory.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

// NewStore wraps cfg. The store takes ownership of cfg.
func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current config.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.cfg
	c.Recognition.CustomTerms = append([]string(nil), s.cfg.Recognition.CustomTerms...)
	return c
}

// Update applies fn to the config and saves it. If saving fails the
// in-memory change is kept and the error is returned.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
	if s.path == "" {
		return nil
	}
	if err := s.cfg.Save(s.path); err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	return nil
}

// Translate reports whether translate mode is on.
func (s *Store) Translate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Recognition.Translate
}

// SetTranslate updates and persists translate mode.
func (s *Store) SetTranslate(on bool) error {
	return s.Update(func(c *Config) { c.Recognition.Translate = on })
}
