package config

import (
	"sync"
	"time"

	"github.com/bep/debounce"

	"go-pianoroll/debug"
)

// DefaultTempoDelay is how long tempo edits settle before being written
const DefaultTempoDelay = 500 * time.Millisecond

// TempoSaver persists tempo edits once they stop changing
type TempoSaver struct {
	mu        sync.Mutex
	cfg       *Config
	save      func(*Config) error
	debounced func(func())
	dirty     bool
}

// NewTempoSaver writes cfg after delay without further edits
func NewTempoSaver(cfg *Config, delay time.Duration) *TempoSaver {
	return &TempoSaver{
		cfg:       cfg,
		save:      (*Config).Save,
		debounced: debounce.New(delay),
	}
}

// Set records a tempo and schedules a save
func (s *TempoSaver) Set(bpm float64) {
	s.mu.Lock()
	s.cfg.Tempo = bpm
	s.dirty = true
	s.mu.Unlock()
	s.debounced(func() {
		if err := s.Flush(); err != nil {
			debug.Log("config", "save tempo: %v", err)
		}
	})
}

// Flush writes the config now if a tempo is pending
func (s *TempoSaver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := s.save(s.cfg); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
