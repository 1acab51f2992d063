package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when no config file exists.
func TestDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/test")
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 20 {
		t.Errorf("Server.RateLimit = %v, want 20", cfg.Server.RateLimit)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.FileName != "data.txt" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.DataDir != "/var/lib/test/ecoswap" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if !cfg.AI.Enabled || cfg.AI.Backend != "openai" || cfg.AI.Model != "google/gemma-3-4b" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.7 || cfg.AI.Timeout != 15*time.Second {
		t.Errorf("AI sampling = %v, %v", cfg.AI.Temperature, cfg.AI.Timeout)
	}
	if cfg.Cache.TTL != 5*time.Minute || cfg.Cache.Capacity != 512 || cfg.Cache.KeyMode != "prefix" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Places.RadiusM != 5000 || cfg.Places.Limit != 10 {
		t.Errorf("Places = %+v", cfg.Places)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestYAMLParsing verifies that nested YAML sections map onto dotted keys.
func TestYAMLParsing(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9000
  rate_limit: 0
storage:
  backend: sqlite
  data_dir: /tmp/ecoswap-test
ai:
  enabled: false
  backend: ollama
  base_url: http://localhost:11434
  model: llama3.2
  temperature: 0.2
  timeout: 30s
cache:
  ttl: 1m
  capacity: 64
  key_mode: sha256
places:
  radius_m: 2500
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 0 {
		t.Errorf("Server.RateLimit = %v, want 0", cfg.Server.RateLimit)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.DataDir != "/tmp/ecoswap-test" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.AI.Enabled {
		t.Error("AI.Enabled = true, want false")
	}
	if cfg.AI.Backend != "ollama" || cfg.AI.BaseURL != "http://localhost:11434" || cfg.AI.Model != "llama3.2" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.2 || cfg.AI.Timeout != 30*time.Second {
		t.Errorf("AI sampling = %v, %v", cfg.AI.Temperature, cfg.AI.Timeout)
	}
	if cfg.Cache.TTL != time.Minute || cfg.Cache.Capacity != 64 || cfg.Cache.KeyMode != "sha256" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Places.RadiusM != 2500 {
		t.Errorf("Places.RadiusM = %d", cfg.Places.RadiusM)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 9000\n")

	t.Setenv("ECOSWAP_SERVER_PORT", "9100")
	t.Setenv("ECOSWAP_AI_API_KEY", "env-key")
	t.Setenv("ECOSWAP_CACHE_TTL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Errorf("AI.APIKey = %q, want env-key", cfg.AI.APIKey)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Cache.TTL)
	}
}

func TestEnvOverride_UnparseableIgnored(t *testing.T) {
	t.Setenv("ECOSWAP_CACHE_CAPACITY", "lots")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cache.Capacity != 512 {
		t.Errorf("Cache.Capacity = %d, want default 512", cfg.Cache.Capacity)
	}
}

// TestSecretsNotReadFromFile verifies API keys only come from the environment.
func TestSecretsNotReadFromFile(t *testing.T) {
	path := writeTempConfig(t, "ai:\n  api_key: file-key\nplaces:\n  api_key: file-key\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AI.APIKey != "" || cfg.Places.APIKey != "" {
		t.Errorf("secrets read from file: ai=%q places=%q", cfg.AI.APIKey, cfg.Places.APIKey)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown storage backend", "storage:\n  backend: mongo\n", "storage.backend"},
		{"non-numeric port", "server:\n  port: abc\n", "server.port"},
		{"port out of range", "server:\n  port: 70000\n", "server.port"},
		{"bad duration", "ai:\n  timeout: soon\n", "ai.timeout"},
		{"unknown key mode", "cache:\n  key_mode: md5\n", "cache.key_mode"},
		{"file name with path", "storage:\n  file_name: a/b.txt\n", "storage.file_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSetKeyAndUnsetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoswap", "config.yaml")

	if err := SetKey(path, "server.port", "9200"); err != nil {
		t.Fatalf("SetKey server.port: %v", err)
	}
	if err := SetKey(path, "ai.timeout", "45s"); err != nil {
		t.Fatalf("SetKey ai.timeout: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 || cfg.AI.Timeout != 45*time.Second {
		t.Errorf("after set: port=%d timeout=%v", cfg.Server.Port, cfg.AI.Timeout)
	}

	if err := UnsetKey(path, "server.port"); err != nil {
		t.Fatalf("UnsetKey: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("after unset: port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Errorf("unset removed sibling key: timeout = %v", cfg.AI.Timeout)
	}
}

func TestSetKey_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	tests := []struct {
		key, value string
	}{
		{"ai.api_key", "secret"},
		{"no.such_key", "x"},
		{"server.port", "eighty"},
		{"ai.backend", "gpt"},
		{"ai.enabled", "maybe"},
	}
	for _, tt := range tests {
		if err := SetKey(path, tt.key, tt.value); err == nil {
			t.Errorf("SetKey(%s=%s) succeeded, want error", tt.key, tt.value)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("rejected values were written to %s", path)
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.AI.APIKey = "hidden"
	cfg.Places.APIKey = "hidden"
	cfg.Server.Token = "hidden"

	for _, k := range ShowAll(cfg) {
		if strings.HasSuffix(k.Key, "api_key") || k.Key == "server.token" || k.Value == "hidden" {
			t.Errorf("secret exposed: %+v", k)
		}
	}
	if len(ShowAll(cfg)) != len(ValidKeys()) {
		t.Errorf("ShowAll lists %d keys, ValidKeys %d", len(ShowAll(cfg)), len(ValidKeys()))
	}
}
