package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	AI      AIConfig
	Cache   CacheConfig
	Places  PlacesConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	// RateLimit is requests per second across all clients; 0 disables it.
	RateLimit float64
	// Token, when set, guards POST /v1/items.
	Token string
}

type StorageConfig struct {
	Backend  string
	DataDir  string
	FileName string
}

type AIConfig struct {
	Enabled     bool
	Backend     string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

type CacheConfig struct {
	TTL      time.Duration
	Capacity int
	KeyMode  string
}

type PlacesConfig struct {
	APIKey     string
	BaseURL    string
	RadiusM    int
	Limit      int
	RatePerSec float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:      8000,
			RateLimit: 20,
		},
		Storage: StorageConfig{
			Backend:  "file",
			DataDir:  defaultDataDir(),
			FileName: "data.txt",
		},
		AI: AIConfig{
			Enabled:     true,
			Backend:     "openai",
			BaseURL:     "http://localhost:1234/v1",
			Model:       "google/gemma-3-4b",
			Temperature: 0.7,
			Timeout:     15 * time.Second,
		},
		Cache: CacheConfig{
			TTL:      5 * time.Minute,
			Capacity: 512,
			KeyMode:  "prefix",
		},
		Places: PlacesConfig{
			BaseURL:    "https://api.geoapify.com",
			RadiusM:    5000,
			Limit:      10,
			RatePerSec: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML file at path (or DefaultPath when
// path is empty), then applies ECOSWAP_* environment overrides. Secrets are
// only read from the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	b, err := newFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range or unknown value at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port: %d out of range", c.Server.Port)
	check(c.Server.RateLimit >= 0, "server.rate_limit: must not be negative")
	check(oneOf(c.Storage.Backend, "file", "sqlite"), "storage.backend: %q (want file or sqlite)", c.Storage.Backend)
	check(c.Storage.DataDir != "", "storage.data_dir: required")
	check(c.Storage.FileName != "" && !strings.ContainsRune(c.Storage.FileName, filepath.Separator),
		"storage.file_name: %q must be a plain file name", c.Storage.FileName)
	check(oneOf(c.AI.Backend, "openai", "ollama", "langchain"), "ai.backend: %q (want openai, ollama or langchain)", c.AI.Backend)
	check(c.AI.Temperature >= 0 && c.AI.Temperature <= 2, "ai.temperature: %v out of range [0, 2]", c.AI.Temperature)
	check(c.AI.Timeout > 0, "ai.timeout: must be positive")
	check(c.Cache.TTL > 0, "cache.ttl: must be positive")
	check(c.Cache.Capacity > 0, "cache.capacity: must be positive")
	check(oneOf(c.Cache.KeyMode, "prefix", "sha256"), "cache.key_mode: %q (want prefix or sha256)", c.Cache.KeyMode)
	check(c.Places.RadiusM > 0, "places.radius_m: must be positive")
	check(c.Places.Limit > 0, "places.limit: must be positive")
	check(c.Places.RatePerSec > 0, "places.rate_per_sec: must be positive")
	check(oneOf(c.Log.Level, "debug", "info", "warn", "error"), "log.level: %q (want debug, info, warn or error)", c.Log.Level)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel maps log.level onto a slog level.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// DefaultPath is $XDG_CONFIG_HOME/ecoswap/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "ecoswap", "config.yaml")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "ecoswap-data"
		}
	}
	return filepath.Join(dir, "ecoswap")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
