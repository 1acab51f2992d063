package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/cache"
	"github.com/kalambet/ecoswap/internal/config"
	"github.com/kalambet/ecoswap/internal/engine"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/pipeline"
	"github.com/kalambet/ecoswap/internal/places"
	"github.com/kalambet/ecoswap/internal/relevance"
	"github.com/kalambet/ecoswap/internal/storage"
	"github.com/kalambet/ecoswap/internal/transport"
)

// app is the fully wired service graph shared by the start and mcp commands.
type app struct {
	cfg     config.Config
	store   storage.Store
	engine  engine.Engine // nil when AI is disabled
	advisor *advisor.Advisor
	service *pipeline.Service
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// setupLogging installs the default slog handler on stderr. stdout stays
// free for the MCP stdio transport.
func setupLogging(cfg config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

func buildApp(cfg config.Config) (*app, error) {
	store, err := storage.Open(storage.Options{
		Backend:  cfg.Storage.Backend,
		DataDir:  cfg.Storage.DataDir,
		FileName: cfg.Storage.FileName,
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{cfg: cfg, store: store}

	var ai *transport.Transport
	if cfg.AI.Enabled {
		eng, err := engine.New(engine.Config{
			Backend: cfg.AI.Backend,
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating ai engine: %w", err)
		}
		c, err := cache.New(cache.Options{
			TTL:      cfg.Cache.TTL,
			Capacity: cfg.Cache.Capacity,
			KeyMode:  cache.KeyMode(cfg.Cache.KeyMode),
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating response cache: %w", err)
		}
		a.engine = eng
		ai = transport.New(eng, c, transport.Config{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	}

	// A nil *transport.Transport must not leak into the interfaces below.
	var completer relevance.Completer
	var helper advisor.Completer
	if ai != nil {
		completer, helper = ai, ai
	}
	a.advisor = advisor.New(helper)

	a.service = pipeline.NewService(pipeline.Deps{
		Store:       store,
		ItemFilter:  relevance.New[items.Candidate](completer, cfg.AI.Enabled),
		PlaceFilter: relevance.New[places.Place](completer, cfg.AI.Enabled),
		Advisor:     a.advisor,
		Places: places.NewClient(places.Config{
			APIKey:     cfg.Places.APIKey,
			BaseURL:    cfg.Places.BaseURL,
			RadiusM:    cfg.Places.RadiusM,
			Limit:      cfg.Places.Limit,
			RatePerSec: cfg.Places.RatePerSec,
		}),
	})
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
