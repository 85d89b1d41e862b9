package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go-pianoroll/timing"
)

// AudioConfig locates the sounds
type AudioConfig struct {
	SamplePath string `json:"samplePath,omitempty"` // file or http(s) URL recorded at C4; silent when empty
	ClickPath  string `json:"clickPath,omitempty"`  // metronome sound; built-in blip when empty
}

// MIDIConfig defines the optional MIDI output
type MIDIConfig struct {
	OutPort string `json:"outPort,omitempty"`
	Channel int    `json:"channel,omitempty"` // 1-16
}

// UIConfig stores UI preferences
type UIConfig struct {
	Metronome bool   `json:"metronome,omitempty"`
	Follow    bool   `json:"follow,omitempty"`
	Palette   string `json:"palette,omitempty"` // GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Tempo float64     `json:"tempo"`
	Bars  int         `json:"bars"`
	Audio AudioConfig `json:"audio"`
	MIDI  MIDIConfig  `json:"midi,omitempty"`
	UI    UIConfig    `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo: timing.DefaultBPM,
		Bars:  timing.DefaultResolution().Bars,
		MIDI: MIDIConfig{
			Channel: 1,
		},
	}
}

// normalize fills in missing or unusable values
func (c *Config) normalize() {
	def := DefaultConfig()
	if !timing.ValidBPM(c.Tempo) {
		c.Tempo = def.Tempo
	}
	if c.Bars <= 0 {
		c.Bars = def.Bars
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		c.MIDI.Channel = def.MIDI.Channel
	}
}

// Resolution returns the grid for this config
func (c *Config) Resolution() timing.Resolution {
	res := timing.DefaultResolution()
	res.Bars = c.Bars
	return res
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pianoroll"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
