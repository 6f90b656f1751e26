// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "spectrum/internal/log"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the runtime configuration, loaded from YAML.
type Config struct {
	LogLevel string        `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command  string        `yaml:"command,omitempty"` // One-off command instead of the visualizer (e.g. "list").
	Audio    AudioConfig   `yaml:"audio"`             // Capture settings.
	Display  DisplayConfig `yaml:"display"`           // Terminal rendering settings.
}

// AudioConfig selects where frames come from.
type AudioConfig struct {
	InputDevice int    `yaml:"input_device"` // PortAudio device index (-1 for default).
	InputFile   string `yaml:"input_file"`   // WAV file replayed instead of a device when set.
	Loop        bool   `yaml:"loop"`         // Restart the WAV file when it ends.
}

// DisplayConfig controls the analysis loop.
type DisplayConfig struct {
	Refresh time.Duration `yaml:"refresh"` // Period between frames.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice: DefaultDeviceID,
		},
		Display: DisplayConfig{
			Refresh: DefaultRefresh,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is empty,
// it looks for DefaultConfigFile in the working directory and falls back to
// built-in defaults when none exists. Environment overrides are applied last,
// then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("config: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tunable settings against their limits.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device must be >= %d, got %d", ErrInvalidConfig, MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.Loop && c.Audio.InputFile == "" {
		return fmt.Errorf("%w: audio.loop requires audio.input_file", ErrInvalidConfig)
	}
	if c.Display.Refresh < MinRefresh || c.Display.Refresh > MaxRefresh {
		return fmt.Errorf("%w: display.refresh must be within [%s, %s], got %s",
			ErrInvalidConfig, MinRefresh, MaxRefresh, c.Display.Refresh)
	}
	return nil
}

// applyEnvOverrides lets ENV_* variables override file values. Malformed
// values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(val)
		applog.Debugf("config: overriding log_level from env: %s", c.LogLevel)
	}

	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
			applog.Debugf("config: overriding audio.input_device from env: %d", id)
		} else {
			applog.Warnf("config: ignoring ENV_INPUT_DEVICE=%q: %v", val, err)
		}
	}

	// ENV_INPUT_FILE
	if val, ok := os.LookupEnv("ENV_INPUT_FILE"); ok {
		c.Audio.InputFile = val
		applog.Debugf("config: overriding audio.input_file from env: %s", val)
	}

	// ENV_REFRESH
	if val, ok := os.LookupEnv("ENV_REFRESH"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Display.Refresh = dur
			applog.Debugf("config: overriding display.refresh from env: %s", dur)
		} else {
			applog.Warnf("config: ignoring ENV_REFRESH=%q: %v", val, err)
		}
	}
}
