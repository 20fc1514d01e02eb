// Package config implements Monkey configuration loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the working directory.
	ProjectFile = ".monkey.yml"
	// UserFile is looked up under the user's home directory.
	UserFile = ".monkey/config.yml"
)

// Config holds the settings shared by the REPL and the CLI commands.
type Config struct {
	Prompt      string           `yaml:"prompt"`
	HistoryFile string           `yaml:"history_file"`
	Pretty      bool             `yaml:"pretty"`
	LogLevel    string           `yaml:"log_level"`
	Budget      evaluator.Budget `yaml:"budget"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Error reports a config file that exists but cannot be used.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Prompt:   ">> ",
		LogLevel: "warn",
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".monkey", "history")
	}
	return cfg
}

// Load resolves configuration from project and user config files.
// Precedence: project (.monkey.yml) → user (~/.monkey/config.yml) → defaults.
// The first file found wins as a whole; fields it omits keep their defaults.
func Load(projectDir string) (*Config, error) {
	// Try project config
	projectPath := filepath.Join(projectDir, ProjectFile)
	if cfg, err := LoadFile(projectPath); !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	// Try user config
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, filepath.FromSlash(UserFile))
		if cfg, err := LoadFile(userPath); !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	return Default(), nil
}

// LoadFile reads a single YAML config file layered over the defaults.
// Unknown keys are rejected. A missing file yields an error matching
// fs.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg.Path = path
	return cfg, nil
}

func (c *Config) validate() error {
	var issues []string
	if _, ok := levels[strings.ToLower(c.LogLevel)]; !ok {
		issues = append(issues, fmt.Sprintf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.Budget.MaxDepth < -1 {
		issues = append(issues, "budget.max_depth must be -1 (unlimited), 0 (default) or positive")
	}
	if c.Budget.MaxSteps < 0 {
		issues = append(issues, "budget.max_steps must not be negative")
	}
	if c.Budget.TimeMs < 0 {
		issues = append(issues, "budget.time_ms must not be negative")
	}
	if len(issues) > 0 {
		return errors.New(strings.Join(issues, "; "))
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level returns the slog level named by LogLevel, defaulting to warn.
func (c *Config) Level() slog.Level {
	if lvl, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelWarn
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: encoder close: %w", err)
	}
	return buf.Bytes(), nil
}
