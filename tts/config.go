package tts

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/narrate/tts/sentence"
)

// Parameter bounds shared by the config validator and the engine backend.
const (
	MinRate   = 0.1
	MaxRate   = 4.0
	MinPitch  = 0.1
	MaxPitch  = 4.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// BackendAuto selects the highest-priority backend that initializes.
const BackendAuto = "auto"

// Config contains all narrate configuration options.
//
// Env tags carry no defaults: unset variables leave the values loaded
// from viper untouched.
type Config struct {
	// Backend is "auto", a kind name ("announcement", "engine") or a
	// registered backend name.
	Backend     string        `yaml:"backend" mapstructure:"backend" env:"BACKEND"`
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout" env:"INIT_TIMEOUT"`
	Debug       bool          `yaml:"debug" mapstructure:"debug" env:"DEBUG"`

	Announce AnnounceConfig `yaml:"announce" mapstructure:"announce" envPrefix:"ANNOUNCE_"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine" envPrefix:"ENGINE_"`
	Listen   ListenConfig   `yaml:"listen" mapstructure:"listen" envPrefix:"LISTEN_"`
}

// AnnounceConfig contains announcement backend settings.
type AnnounceConfig struct {
	// SuppressDuplicates makes repeated identical announcements distinct
	// so narrators that drop repeats still speak them.
	SuppressDuplicates bool          `yaml:"suppress_duplicates" mapstructure:"suppress_duplicates" env:"SUPPRESS_DUPLICATES"`
	DBusDest           string        `yaml:"dbus_dest" mapstructure:"dbus_dest" env:"DBUS_DEST"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout" env:"TIMEOUT"`
}

// EngineConfig contains engine backend settings.
type EngineConfig struct {
	SoftLimit int           `yaml:"soft_limit" mapstructure:"soft_limit" env:"SOFT_LIMIT"`
	Binary    string        `yaml:"binary" mapstructure:"binary" env:"BINARY"`
	Module    string        `yaml:"module" mapstructure:"module" env:"MODULE"`
	Voice     string        `yaml:"voice" mapstructure:"voice" env:"VOICE"`
	Language  string        `yaml:"language" mapstructure:"language" env:"LANGUAGE"`
	Rate      float32       `yaml:"rate" mapstructure:"rate" env:"RATE"`
	Pitch     float32       `yaml:"pitch" mapstructure:"pitch" env:"PITCH"`
	Volume    float32       `yaml:"volume" mapstructure:"volume" env:"VOLUME"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" env:"TIMEOUT"`
}

// ListenConfig contains settings for the listen command.
type ListenConfig struct {
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval" env:"MIN_INTERVAL"`
	MetricsAddr string        `yaml:"metrics_addr" mapstructure:"metrics_addr" env:"METRICS_ADDR"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendAuto,
		InitTimeout: 10 * time.Second,
		Debug:       false,

		Announce: AnnounceConfig{
			SuppressDuplicates: false,
			DBusDest:           "org.gnome.Orca.Service",
			Timeout:            2 * time.Second,
		},
		Engine: EngineConfig{
			SoftLimit: sentence.DefaultSoftLimit,
			Binary:    "spd-say",
			Rate:      1.0,
			Pitch:     1.0,
			Volume:    1.0,
			Timeout:   5 * time.Second,
		},
		Listen: ListenConfig{
			MinInterval: 250 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid. Name-like fields are
// normalized in place.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		return fmt.Errorf("backend cannot be empty: use %q, a kind or a backend name", BackendAuto)
	}

	if c.InitTimeout <= 0 {
		return fmt.Errorf("init_timeout must be positive, got %v", c.InitTimeout)
	}

	if err := c.Announce.Validate(); err != nil {
		return fmt.Errorf("announce config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if c.Listen.MinInterval < 0 {
		return fmt.Errorf("listen.min_interval cannot be negative, got %v", c.Listen.MinInterval)
	}

	return nil
}

// Validate checks if the announcement configuration is valid.
func (c *AnnounceConfig) Validate() error {
	if c.DBusDest == "" {
		return fmt.Errorf("dbus_dest cannot be empty")
	}
	if c.Timeout < 100*time.Millisecond {
		return fmt.Errorf("timeout must be at least 100ms, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the engine configuration is valid.
func (c *EngineConfig) Validate() error {
	if c.SoftLimit <= 0 {
		return fmt.Errorf("soft_limit must be positive, got %d", c.SoftLimit)
	}

	if c.Binary == "" {
		return fmt.Errorf("engine binary cannot be empty")
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("rate must be between %.1f and %.1f, got %f", MinRate, MaxRate, c.Rate)
	}

	if c.Pitch < MinPitch || c.Pitch > MaxPitch {
		return fmt.Errorf("pitch must be between %.1f and %.1f, got %f", MinPitch, MaxPitch, c.Pitch)
	}

	if c.Volume < MinVolume || c.Volume > MaxVolume {
		return fmt.Errorf("volume must be between %.1f and %.1f, got %f", MinVolume, MaxVolume, c.Volume)
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}

	return nil
}
