package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/objc-runtime/guestmem"
)

// fileConfig is the optional TOML configuration file:
//
//	[memory]
//	initial_pages = 16
//	max_pages = 4096
//
//	[runtime]
//	panic_on_violation = false
//	disable_freed_tracking = false
//
//	[log]
//	level = "info"
//	format = "console"
type fileConfig struct {
	Memory  memoryConfig  `toml:"memory"`
	Runtime runtimeConfig `toml:"runtime"`
	Log     logConfig     `toml:"log"`
}

type memoryConfig struct {
	InitialPages uint32 `toml:"initial_pages"`
	MaxPages     uint32 `toml:"max_pages"`
}

type runtimeConfig struct {
	PanicOnViolation     bool `toml:"panic_on_violation"`
	DisableFreedTracking bool `toml:"disable_freed_tracking"`
}

type logConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		Log: logConfig{Level: "info", Format: "console"},
	}
}

// loadConfig reads a config file over the defaults. An empty path yields
// the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	return cfg, nil
}

// applyFlags overlays command-line overrides on cfg. pages 0 keeps the
// configured size.
func (cfg *fileConfig) applyFlags(pages uint, verbose bool) error {
	if pages > guestmem.MaxPages {
		return fmt.Errorf("-pages %d exceeds the %d page limit of a 32-bit guest", pages, guestmem.MaxPages)
	}
	if pages != 0 {
		cfg.Memory.InitialPages = uint32(pages)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return nil
}

func newLogger(cfg logConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
