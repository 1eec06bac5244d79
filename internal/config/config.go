// Package config loads and validates the ipiped daemon configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bwHC-gko/ipipe"
)

// Config is the full daemon configuration.
type Config struct {
	// Listen is the admin API address; empty disables the API entirely.
	Listen string `mapstructure:"listen" yaml:"listen"`

	// DataDir is where relay sink files land. Defaults to ~/.ipiped.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	Log   Logging `mapstructure:"log" yaml:"log"`
	Pipes []Pipe  `mapstructure:"pipes" yaml:"pipes"`
}

// Logging configures the daemon logger.
type Logging struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       bool   `mapstructure:"file" yaml:"file"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
}

// Pipe configures one static pipe hosted by the daemon and the rotating
// sink file its bytes are relayed into.
type Pipe struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Sink       string `mapstructure:"sink" yaml:"sink"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Listen:  "127.0.0.1:8929",
		DataDir: "",
		Log: Logging{
			Level:      "info",
			File:       true,
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Pipes: []Pipe{
			{Name: "applog", Sink: "applog.out", MaxSizeMB: 10, MaxBackups: 3},
		},
	}
}

// Load reads the configuration from path, creating it with defaults when it
// does not exist yet. Environment variables prefixed IPIPED_ override file
// values (IPIPED_LISTEN, IPIPED_LOG_LEVEL, ...).
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "ipiped.yaml")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefault(path); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IPIPED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	return &cfg, nil
}

// DefaultDir returns the daemon's data directory, ~/.ipiped.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ipiped"), nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("listen", def.Listen)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
	v.SetDefault("log.compress", def.Log.Compress)
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config %s: %w", path, err)
	}
	return nil
}

// Validate checks the whole configuration, collecting every problem rather
// than stopping at the first.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			errs = append(errs, fmt.Errorf("listen %q: %w", c.Listen, err))
		}
	}
	seen := make(map[string]bool, len(c.Pipes))
	for i, p := range c.Pipes {
		if _, err := ipipe.PipePath(p.Name); err != nil {
			errs = append(errs, fmt.Errorf("pipes[%d]: %w", i, err))
		}
		if p.Sink == "" {
			errs = append(errs, fmt.Errorf("pipes[%d] (%s): sink is required", i, p.Name))
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("pipes[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
	}
	return errors.Join(errs...)
}

// SinkPath resolves a pipe's sink file against the data directory; absolute
// sinks are used as-is.
func (c *Config) SinkPath(p Pipe) string {
	if filepath.IsAbs(p.Sink) {
		return p.Sink
	}
	return filepath.Join(c.DataDir, p.Sink)
}
