// ABOUTME: Tests for config loading, saving and environment overrides
// ABOUTME: Uses temporary XDG directories so the real user config is never touched

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvUserAgent, "")
	return dir
}

func TestLoadCreatesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetDefaultTTL() != DefaultTTLSeconds {
		t.Errorf("expected default TTL %d, got %d", DefaultTTLSeconds, cfg.GetDefaultTTL())
	}
	if cfg.GetStyle() != "irc" {
		t.Errorf("expected irc style, got %q", cfg.GetStyle())
	}
	if _, err := os.Stat(filepath.Join(dir, "config", "feedwatch", "config.json")); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}
	want := filepath.Join(dir, "data", "feedwatch", "feedwatch.db")
	if cfg.DBPath() != want {
		t.Errorf("expected db path %q, got %q", want, cfg.DBPath())
	}
}

func TestSaveAndReload(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.DataDir = "/srv/feedwatch"
	cfg.DefaultTTL = 900
	cfg.Style = "plain"
	cfg.AllowPrivateHosts = true
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.GetDataDir() != "/srv/feedwatch" {
		t.Errorf("expected data dir /srv/feedwatch, got %q", loaded.GetDataDir())
	}
	if loaded.GetDefaultTTL() != 900 {
		t.Errorf("expected TTL 900, got %d", loaded.GetDefaultTTL())
	}
	if loaded.GetStyle() != "plain" {
		t.Errorf("expected plain style, got %q", loaded.GetStyle())
	}
	if !loaded.FetchOptions().AllowPrivate {
		t.Error("expected private hosts to be allowed")
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	isolate(t)

	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(map[string]any{"style": "terminal"})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetStyle() != "terminal" {
		t.Errorf("expected terminal style, got %q", cfg.GetStyle())
	}
	if cfg.FetchOptions().Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.FetchOptions().Timeout)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	isolate(t)

	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("expected an error for malformed config")
	}
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDataDir, "/tmp/fw")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvUserAgent, "custom-agent/2.0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetDataDir() != "/tmp/fw" {
		t.Errorf("expected /tmp/fw, got %q", cfg.GetDataDir())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.FetchOptions().UserAgent != "custom-agent/2.0" {
		t.Errorf("expected custom user agent, got %q", cfg.FetchOptions().UserAgent)
	}

	// Overrides are not persisted.
	data, err := os.ReadFile(GetConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.DataDir != "" {
		t.Errorf("expected data dir override to stay off disk, got %q", onDisk.DataDir)
	}
}

func TestGetDefaultTTLFloor(t *testing.T) {
	cfg := &Config{DefaultTTL: 10}
	if cfg.GetDefaultTTL() != DefaultTTLSeconds {
		t.Errorf("expected TTL below the minimum to fall back to %d, got %d", DefaultTTLSeconds, cfg.GetDefaultTTL())
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/feeds", filepath.Join(home, "feeds")},
		{"/abs/path", "/abs/path"},
		{"rel~/x", "rel~/x"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestOpenStorage(t *testing.T) {
	dir := isolate(t)
	cfg := &Config{DataDir: filepath.Join(dir, "store")}

	store, err := cfg.OpenStorage()
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dir, "store", DBFilename)); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}

func TestGetDefaultTTLBounds(t *testing.T) {
	tests := []struct {
		ttl  int
		want int
	}{
		{0, DefaultTTLSeconds},
		{MinTTLSeconds - 1, DefaultTTLSeconds},
		{MinTTLSeconds, MinTTLSeconds},
		{MaxTTLSeconds, MaxTTLSeconds},
		{MaxTTLSeconds + 1, DefaultTTLSeconds},
	}

	for _, tt := range tests {
		cfg := &Config{DefaultTTL: tt.ttl}
		if got := cfg.GetDefaultTTL(); got != tt.want {
			t.Errorf("GetDefaultTTL with %d: expected %d, got %d", tt.ttl, tt.want, got)
		}
	}
}
