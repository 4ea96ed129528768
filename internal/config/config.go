// Package config handles loading and managing aliasvault configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/wesm/aliasvault/internal/fileutil"
)

// ServiceConfig holds connection settings for the alias service.
type ServiceConfig struct {
	BaseURL      string  `toml:"base_url"`
	SessionFile  string  `toml:"session_file"` // File holding the Cookie header
	DSID         string  `toml:"dsid"`
	ClientBuild  string  `toml:"client_build"`
	RateLimitQPS float64 `toml:"rate_limit_qps"`
}

// ExecutionConfig holds pacing and preview settings.
type ExecutionConfig struct {
	ItemDelay              string  `toml:"item_delay"` // Go duration, e.g. "3s"
	PreviewLimit           int     `toml:"preview_limit"`
	SecondsPerItemEstimate float64 `toml:"seconds_per_item_estimate"`
}

// UIConfig holds terminal settings.
type UIConfig struct {
	Forms bool `toml:"forms"` // Use huh forms on a terminal
}

// JournalConfig controls the optional run journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config represents the aliasvault configuration.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Execution ExecutionConfig `toml:"execution"`
	UI        UIConfig        `toml:"ui"`
	Journal   JournalConfig   `toml:"journal"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// DefaultHome returns the default aliasvault home directory.
// Respects ALIASVAULT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("ALIASVAULT_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aliasvault"
	}
	return filepath.Join(home, ".aliasvault")
}

// NewDefaultConfig returns a configuration with defaults rooted at homeDir.
func NewDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir:    homeDir,
		ConfigPath: filepath.Join(homeDir, "config.toml"),
		Service: ServiceConfig{
			SessionFile:  filepath.Join(homeDir, "session.txt"),
			RateLimitQPS: 1,
		},
		Execution: ExecutionConfig{
			ItemDelay:              "3s",
			PreviewLimit:           50,
			SecondsPerItemEstimate: 3,
		},
		UI: UIConfig{
			Forms: true,
		},
		Journal: JournalConfig{
			Dir: filepath.Join(homeDir, "journal"),
		},
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.toml under homeDir (or DefaultHome) is read if present. When an
// explicit path is given without homeDir, the file's directory is the home.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	switch {
	case homeDir != "":
		homeDir = expandPath(homeDir)
	case explicit:
		homeDir = filepath.Dir(expandPath(path))
	default:
		homeDir = DefaultHome()
	}

	cfg := NewDefaultConfig(homeDir)
	if explicit {
		cfg.ConfigPath = expandPath(path)
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return nil, fmt.Errorf("config file not found: %s", cfg.ConfigPath)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if _, err := toml.DecodeFile(cfg.ConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w%s", cfg.ConfigPath, err, backslashHint(err))
	}

	// Expand ~ in paths
	cfg.Service.SessionFile = expandPath(cfg.Service.SessionFile)
	cfg.Journal.Dir = expandPath(cfg.Journal.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backslashHint explains the usual cause of escape errors in Windows paths.
func backslashHint(err error) string {
	msg := err.Error()
	if !strings.Contains(msg, "escape") && !strings.Contains(msg, "hexadecimal digits") {
		return ""
	}
	return "\nhint: use forward slashes (C:/Users/me) or single quotes ('C:\\Users\\me') for paths"
}

// Validate checks value ranges. Errors name the offending key.
func (c *Config) Validate() error {
	if c.Service.RateLimitQPS <= 0 {
		return fmt.Errorf("service.rate_limit_qps must be positive, got %v", c.Service.RateLimitQPS)
	}
	if _, err := c.ItemDelay(); err != nil {
		return err
	}
	if c.Execution.PreviewLimit < 0 {
		return fmt.Errorf("execution.preview_limit must not be negative, got %d", c.Execution.PreviewLimit)
	}
	if c.Execution.SecondsPerItemEstimate < 0 {
		return fmt.Errorf("execution.seconds_per_item_estimate must not be negative, got %v", c.Execution.SecondsPerItemEstimate)
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		return errors.New("journal.dir must be set when journal.enabled is true")
	}
	return nil
}

// ItemDelay parses execution.item_delay. Empty means no delay.
func (c *Config) ItemDelay() (time.Duration, error) {
	if c.Execution.ItemDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Execution.ItemDelay)
	if err != nil {
		return 0, fmt.Errorf("execution.item_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("execution.item_delay must not be negative, got %s", d)
	}
	return d, nil
}

// PerItemEstimate is the pace used for large-operation estimates.
func (c *Config) PerItemEstimate() time.Duration {
	if c.Execution.SecondsPerItemEstimate > 0 {
		return time.Duration(c.Execution.SecondsPerItemEstimate * float64(time.Second))
	}
	d, _ := c.ItemDelay()
	return d
}

// EnsureHomeDir creates the home directory if it doesn't exist. It holds
// the session cookie, so it is owner-only.
func (c *Config) EnsureHomeDir() error {
	return fileutil.MkdirPrivate(c.HomeDir)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
