// ABOUTME: Configuration management for feedwatch
// ABOUTME: Loads the JSON config file, applies environment overrides and opens the SQLite store

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/feedwatch/internal/fetch"
	"github.com/harper/feedwatch/internal/logger"
	"github.com/harper/feedwatch/internal/storage"
)

// Environment variables that override file values.
const (
	EnvDataDir   = "FEEDWATCH_DATA_DIR"
	EnvLogLevel  = "FEEDWATCH_LOG_LEVEL"
	EnvUserAgent = "FEEDWATCH_USER_AGENT"
)

// Config stores feedwatch configuration.
type Config struct {
	// DataDir is the directory holding feedwatch.db.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/feedwatch.
	DataDir string `json:"data_dir,omitempty"`

	// DefaultTTL is the poll interval in seconds given to newly added feeds.
	DefaultTTL int `json:"default_ttl,omitempty"`

	UserAgent           string `json:"user_agent,omitempty"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds,omitempty"`

	// Style selects announcement decoration: plain, irc or terminal.
	Style string `json:"style,omitempty"`

	Log logger.Config `json:"log"`

	AllowPrivateHosts bool `json:"allow_private_hosts,omitempty"`
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		DefaultTTL:          DefaultTTLSeconds,
		UserAgent:           fetch.DefaultUserAgent,
		FetchTimeoutSeconds: int(DefaultHTTPTimeout / time.Second),
		Style:               DefaultStyle,
		Log:                 logger.Config{Level: DefaultLogLevel},
	}
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDefaultTTL returns the TTL for new feeds, falling back when out of range.
func (c *Config) GetDefaultTTL() int {
	if c.DefaultTTL < MinTTLSeconds || c.DefaultTTL > MaxTTLSeconds {
		return DefaultTTLSeconds
	}
	return c.DefaultTTL
}

// FetchOptions converts the fetch settings into fetcher options.
func (c *Config) FetchOptions() fetch.Options {
	timeout := DefaultHTTPTimeout
	if c.FetchTimeoutSeconds > 0 {
		timeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	}
	return fetch.Options{
		UserAgent:    c.UserAgent,
		Timeout:      timeout,
		AllowPrivate: c.AllowPrivateHosts,
	}
}

// GetStyle returns the configured announcement style name.
func (c *Config) GetStyle() string {
	if c.Style == "" {
		return DefaultStyle
	}
	return c.Style
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), DBFilename)
}

// OpenStorage opens the SQLite store in the data directory.
func (c *Config) OpenStorage() (storage.Store, error) {
	return storage.NewSQLiteStore(c.DBPath())
}

// ApplyEnv overrides file values with any FEEDWATCH_* variables that are set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserAgent)); v != "" {
		c.UserAgent = v
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "feedwatch", "config.json")
}

// Load reads config from disk, writing the defaults on first run.
// Environment overrides are applied to the result but never saved.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := Default()
		if saveErr := cfg.Save(); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
		}
		cfg.ApplyEnv()
		return cfg, nil
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes config to disk, replacing the file atomically.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPerms); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// defaultDataDir returns the standard XDG data directory for feedwatch.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "feedwatch")
}
