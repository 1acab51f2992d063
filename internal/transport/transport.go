// Package transport sends prompts to the configured AI backend, memoizing
// responses in a TTL cache and collapsing concurrent identical requests.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/ecoswap/internal/cache"
	"github.com/kalambet/ecoswap/internal/engine"
)

// ErrAIUnavailable wraps every failure to obtain a usable AI response:
// network errors, non-success statuses, timeouts, empty or unparseable bodies.
var ErrAIUnavailable = errors.New("ai unavailable")

const (
	DefaultModel       = "google/gemma-3-4b"
	DefaultTemperature = 0.7
	DefaultTimeout     = 15 * time.Second
)

// Config configures a Transport.
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Transport is the single gateway to the AI backend. It is safe for
// concurrent use.
type Transport struct {
	engine      engine.Engine
	cache       *cache.Cache
	model       string
	temperature float64
	timeout     time.Duration

	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Transport. c may be nil to disable caching.
func New(e engine.Engine, c *cache.Cache, cfg Config) *Transport {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Transport{
		engine:      e,
		cache:       c,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      slog.Default().With("component", "transport"),
	}
}

// Complete returns the model's answer to prompt with code fences removed.
// A fresh cached answer is returned without contacting the backend, and
// concurrent calls for the same cache key share one backend request. Only
// successful answers are cached. Every failure wraps ErrAIUnavailable.
func (t *Transport) Complete(ctx context.Context, prompt string) (string, error) {
	if t.cache != nil {
		if resp, ok := t.cache.Get(prompt); ok {
			t.logger.Debug("cache hit", "prompt_len", len(prompt))
			return resp, nil
		}
	}

	key := prompt
	if t.cache != nil {
		key = t.cache.Key(prompt)
	}

	// The shared call must not die with the first caller's context; each
	// caller still stops waiting when its own context ends.
	ch := t.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		return t.call(callCtx, prompt)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (t *Transport) call(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	raw, err := t.engine.Chat(ctx, t.model, []engine.Message{
		{Role: engine.RoleUser, Content: prompt},
	}, engine.ChatOptions{Temperature: t.temperature})
	if err != nil {
		t.logger.Warn("ai request failed", "model", t.model, "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	text := StripFences(raw)
	if text == "" {
		t.logger.Warn("ai returned empty response", "model", t.model)
		return "", fmt.Errorf("%w: empty response", ErrAIUnavailable)
	}

	if t.cache != nil {
		t.cache.Put(prompt, text)
	}
	t.logger.Debug("ai request completed", "model", t.model, "elapsed", time.Since(start))
	return text, nil
}

// CompleteJSON runs Complete and decodes the answer into v.
func (t *Transport) CompleteJSON(ctx context.Context, prompt string, v any) error {
	text, err := t.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	return DecodeJSON(text, v)
}

var (
	jsonFence = regexp.MustCompile("```json\\s*")
	anyFence  = regexp.MustCompile("```\\s*")
)

// StripFences removes every markdown code fence marker (```json and ```)
// and trims surrounding whitespace.
func StripFences(s string) string {
	s = jsonFence.ReplaceAllString(s, "")
	s = anyFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// DecodeJSON strips code fences from s and unmarshals it into v. Parse
// failures wrap ErrAIUnavailable.
func DecodeJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(StripFences(s)), v); err != nil {
		return fmt.Errorf("%w: malformed json: %v", ErrAIUnavailable, err)
	}
	return nil
}
