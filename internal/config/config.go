// Package config loads the settings of the nwstore tool from a YAML file
// and NORTHWIND_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/provision"
)

// Config is the resolved tool configuration.
type Config struct {
	// PackagedPath is the sealed store shipped with the application.
	PackagedPath string `yaml:"packaged_path"`
	// DataDir receives the writable copy when no destination is given.
	DataDir   string `yaml:"data_dir"`
	FileName  string `yaml:"file_name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Environment variables override file values.
const (
	EnvPackagedPath = "NORTHWIND_PACKAGED_PATH"
	EnvDataDir      = "NORTHWIND_DATA_DIR"
	EnvFileName     = "NORTHWIND_FILE_NAME"
	EnvLogLevel     = "NORTHWIND_LOG_LEVEL"
	EnvLogFormat    = "NORTHWIND_LOG_FORMAT"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

// Default returns the built-in settings. DataDir is the per-user config
// directory when the platform has one, and empty otherwise.
func Default() Config {
	c := Config{
		FileName:  provision.DefaultFileName,
		LogLevel:  "info",
		LogFormat: "text",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		c.DataDir = filepath.Join(dir, "northwind")
	}
	return c
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file. Relative paths in the
// file are resolved against the file's directory.
func Load(path string, env LookupFunc) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Reject unknown fields so typos surface.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		base := filepath.Dir(path)
		c.PackagedPath = resolve(base, c.PackagedPath)
		c.DataDir = resolve(base, c.DataDir)
	}
	if env != nil {
		c.applyEnv(env)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (c *Config) applyEnv(env LookupFunc) {
	for name, dst := range map[string]*string{
		EnvPackagedPath: &c.PackagedPath,
		EnvDataDir:      &c.DataDir,
		EnvFileName:     &c.FileName,
		EnvLogLevel:     &c.LogLevel,
		EnvLogFormat:    &c.LogFormat,
	} {
		if v, ok := env(name); ok {
			*dst = v
		}
	}
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q: must be text or json", c.LogFormat)
	}
	if c.FileName == "" || strings.ContainsRune(c.FileName, filepath.Separator) {
		return fmt.Errorf("file_name %q: must be a plain file name", c.FileName)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}

// Logger builds the configured slog logger writing to w. Verbose forces the
// debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil || verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Provision returns the provisioner settings.
func (c *Config) Provision(log *slog.Logger, rec metrics.Recorder) provision.Config {
	return provision.Config{
		PackagedPath: c.PackagedPath,
		DefaultDir:   c.DataDir,
		FileName:     c.FileName,
		Logger:       log,
		Metrics:      rec,
	}
}
