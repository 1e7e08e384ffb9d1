// Package config loads the reporting configuration and keeps the live copy
// consulted by the reporter.
package config

import (
	"sync"
)

// Store holds the active configuration. The configuration is created with
// defaults on first access, replaced wholesale by Replace and Reset, and only
// ever handed out as copies.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore returns a store seeded with cfg. A nil cfg is initialized lazily.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg != nil {
		s.cfg = cfg.Clone()
	}
	return s
}

// Get returns a copy of the active configuration.
func (s *Store) Get() *Config {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	if cfg != nil {
		return cfg.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		s.cfg = Default()
	}
	return s.cfg.Clone()
}

// Configure applies fn to a copy of the active configuration and swaps it in.
func (s *Store) Configure(fn func(*Config)) {
	next := s.Get()
	fn(next)
	s.Replace(next)
}

// Replace swaps in cfg.
func (s *Store) Replace(cfg *Config) {
	next := cfg.Clone()
	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()
}

// Reset discards the active configuration in favour of defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cfg = Default()
	s.mu.Unlock()
}
