package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ECOSWAP_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.rate_limit", typ: kFloat, env: "ECOSWAP_SERVER_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Server.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.Server.RateLimit },
	},
	{
		key: "server.token", typ: kString, env: "ECOSWAP_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "storage.backend", typ: kString, env: "ECOSWAP_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ECOSWAP_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.file_name", typ: kString, env: "ECOSWAP_STORAGE_FILE_NAME",
		apply:   func(cfg *Config, v any) { cfg.Storage.FileName = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.FileName },
	},
	{
		key: "ai.enabled", typ: kBool, env: "ECOSWAP_AI_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.AI.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.AI.Enabled },
	},
	{
		key: "ai.backend", typ: kString, env: "ECOSWAP_AI_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.AI.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.Backend },
	},
	{
		key: "ai.base_url", typ: kString, env: "ECOSWAP_AI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.AI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.BaseURL },
	},
	{
		key: "ai.model", typ: kString, env: "ECOSWAP_AI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.AI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.Model },
	},
	{
		key: "ai.api_key", typ: kString, env: "ECOSWAP_AI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.AI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.APIKey },
	},
	{
		key: "ai.temperature", typ: kFloat, env: "ECOSWAP_AI_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.AI.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.AI.Temperature },
	},
	{
		key: "ai.timeout", typ: kDuration, env: "ECOSWAP_AI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.AI.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.AI.Timeout },
	},
	{
		key: "cache.ttl", typ: kDuration, env: "ECOSWAP_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Cache.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cache.TTL },
	},
	{
		key: "cache.capacity", typ: kInt, env: "ECOSWAP_CACHE_CAPACITY",
		apply:   func(cfg *Config, v any) { cfg.Cache.Capacity = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.Capacity },
	},
	{
		key: "cache.key_mode", typ: kString, env: "ECOSWAP_CACHE_KEY_MODE",
		apply:   func(cfg *Config, v any) { cfg.Cache.KeyMode = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.KeyMode },
	},
	{
		key: "places.api_key", typ: kString, env: "ECOSWAP_PLACES_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Places.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Places.APIKey },
	},
	{
		key: "places.base_url", typ: kString, env: "ECOSWAP_PLACES_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Places.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Places.BaseURL },
	},
	{
		key: "places.radius_m", typ: kInt, env: "ECOSWAP_PLACES_RADIUS_M",
		apply:   func(cfg *Config, v any) { cfg.Places.RadiusM = v.(int) },
		extract: func(cfg Config) any { return cfg.Places.RadiusM },
	},
	{
		key: "places.limit", typ: kInt, env: "ECOSWAP_PLACES_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Places.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Places.Limit },
	},
	{
		key: "places.rate_per_sec", typ: kFloat, env: "ECOSWAP_PLACES_RATE_PER_SEC",
		apply:   func(cfg *Config, v any) { cfg.Places.RatePerSec = v.(float64) },
		extract: func(cfg Config) any { return cfg.Places.RatePerSec },
	},
	{
		key: "log.level", typ: kString, env: "ECOSWAP_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw into the Go type of s.
func parseValue(s keySpec, raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			return fmt.Errorf("reading %s=%q: %w", s.key, raw, err)
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
