package loom

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the on-disk runtime configuration, TOML-encoded.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Logging LoggingConfig `toml:"logging"`
}

type EngineConfig struct {
	ThreadCount           int `toml:"thread_count"`
	MaxComponentTypes     int `toml:"max_component_types"`
	InitialEntityCapacity int `toml:"initial_entity_capacity"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// LoadConfig reads and parses a TOML config file, filling unset fields with
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			ThreadCount:           1,
			MaxComponentTypes:     MaxComponentTypes,
			InitialEntityCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// NewLogger builds a zap logger from the logging section.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// WithConfig applies the engine section and builds the configured logger.
// A logger construction failure falls back to the no-op logger.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg.Engine.ThreadCount > 0 {
			e.threadCount = cfg.Engine.ThreadCount
		}
		// MaxComponentTypes bounds bit positions in archetype masks, so the
		// configured value can only tighten the cap, never raise it.
		if n := cfg.Engine.MaxComponentTypes; n > 0 {
			if n > MaxComponentTypes {
				n = MaxComponentTypes
			}
			e.components.handles.maxCapacity = n
		}
		if cfg.Engine.InitialEntityCapacity > 0 {
			e.entities.reserve(cfg.Engine.InitialEntityCapacity)
		}
		if logger, err := NewLogger(cfg.Logging); err == nil {
			e.logger = logger
		}
	}
}
