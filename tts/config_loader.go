package tts

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "NARRATE_"

// LoadConfigFromViper loads configuration from the global viper instance,
// applies NARRATE_* environment overrides and validates the result.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("backend") {
		cfg.Backend = viper.GetString("backend")
	}
	if viper.IsSet("init_timeout") {
		cfg.InitTimeout = viper.GetDuration("init_timeout")
	}
	if viper.IsSet("debug") {
		cfg.Debug = viper.GetBool("debug")
	}

	cfg.Announce = loadAnnounceConfig(cfg.Announce)
	cfg.Engine = loadEngineConfig(cfg.Engine)
	cfg.Listen = loadListenConfig(cfg.Listen)

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any NARRATE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	return nil
}

func loadAnnounceConfig(cfg AnnounceConfig) AnnounceConfig {
	if viper.IsSet("announce.suppress_duplicates") {
		cfg.SuppressDuplicates = viper.GetBool("announce.suppress_duplicates")
	}
	if viper.IsSet("announce.dbus_dest") {
		cfg.DBusDest = viper.GetString("announce.dbus_dest")
	}
	if viper.IsSet("announce.timeout") {
		cfg.Timeout = viper.GetDuration("announce.timeout")
	}
	return cfg
}

func loadEngineConfig(cfg EngineConfig) EngineConfig {
	if viper.IsSet("engine.soft_limit") {
		cfg.SoftLimit = viper.GetInt("engine.soft_limit")
	}
	if viper.IsSet("engine.binary") {
		cfg.Binary = viper.GetString("engine.binary")
	}
	if viper.IsSet("engine.module") {
		cfg.Module = viper.GetString("engine.module")
	}
	if viper.IsSet("engine.voice") {
		cfg.Voice = viper.GetString("engine.voice")
	}
	if viper.IsSet("engine.language") {
		cfg.Language = viper.GetString("engine.language")
	}
	if viper.IsSet("engine.rate") {
		cfg.Rate = float32(viper.GetFloat64("engine.rate"))
	}
	if viper.IsSet("engine.pitch") {
		cfg.Pitch = float32(viper.GetFloat64("engine.pitch"))
	}
	if viper.IsSet("engine.volume") {
		cfg.Volume = float32(viper.GetFloat64("engine.volume"))
	}
	if viper.IsSet("engine.timeout") {
		cfg.Timeout = viper.GetDuration("engine.timeout")
	}
	return cfg
}

func loadListenConfig(cfg ListenConfig) ListenConfig {
	if viper.IsSet("listen.min_interval") {
		cfg.MinInterval = viper.GetDuration("listen.min_interval")
	}
	if viper.IsSet("listen.metrics_addr") {
		cfg.MetricsAddr = viper.GetString("listen.metrics_addr")
	}
	return cfg
}

// SetDefaults sets default values in viper for every configuration key.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("backend", defaults.Backend)
	viper.SetDefault("init_timeout", defaults.InitTimeout.String())
	viper.SetDefault("debug", defaults.Debug)

	viper.SetDefault("announce.suppress_duplicates", defaults.Announce.SuppressDuplicates)
	viper.SetDefault("announce.dbus_dest", defaults.Announce.DBusDest)
	viper.SetDefault("announce.timeout", defaults.Announce.Timeout.String())

	viper.SetDefault("engine.soft_limit", defaults.Engine.SoftLimit)
	viper.SetDefault("engine.binary", defaults.Engine.Binary)
	viper.SetDefault("engine.module", defaults.Engine.Module)
	viper.SetDefault("engine.voice", defaults.Engine.Voice)
	viper.SetDefault("engine.language", defaults.Engine.Language)
	viper.SetDefault("engine.rate", defaults.Engine.Rate)
	viper.SetDefault("engine.pitch", defaults.Engine.Pitch)
	viper.SetDefault("engine.volume", defaults.Engine.Volume)
	viper.SetDefault("engine.timeout", defaults.Engine.Timeout.String())

	viper.SetDefault("listen.min_interval", defaults.Listen.MinInterval.String())
	viper.SetDefault("listen.metrics_addr", defaults.Listen.MetricsAddr)
}
