// Package cache memoizes AI responses by prompt for a bounded time.
//
// Entries expire lazily: an expired entry is dropped when it is next looked
// up. Capacity is bounded with an LRU so a long-running server cannot grow
// without limit.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is how long a cached response stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds the number of live entries.
	DefaultCapacity = 512
	// PrefixLen is the number of leading runes used as key in KeyPrefix mode.
	PrefixLen = 100
)

// KeyMode selects how prompts are mapped to cache keys.
type KeyMode string

const (
	// KeyPrefix keys by the first PrefixLen runes of the prompt. Prompts that
	// share a long common prefix collide and reuse each other's response.
	KeyPrefix KeyMode = "prefix"
	// KeyDigest keys by a SHA-256 digest of the whole prompt.
	KeyDigest KeyMode = "sha256"
)

// ParseKeyMode validates a configured key mode. Empty means KeyPrefix.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case "", KeyPrefix:
		return KeyPrefix, nil
	case KeyDigest:
		return KeyDigest, nil
	default:
		return "", fmt.Errorf("unknown cache key mode %q (want %q or %q)", s, KeyPrefix, KeyDigest)
	}
}

// Entry is one cached response.
type Entry struct {
	Key       string
	Response  string
	Timestamp time.Time
}

// Options configures a Cache. Zero values take the defaults above.
type Options struct {
	TTL      time.Duration
	Capacity int
	KeyMode  KeyMode
	// Now is the clock used for expiry; tests inject a fake.
	Now func() time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl  time.Duration
	mode KeyMode
	now  func() time.Time

	mu      sync.Mutex
	entries *lru.Cache[string, Entry]
}

// New creates a Cache.
func New(opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	mode, err := ParseKeyMode(string(opts.KeyMode))
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	entries, err := lru.New[string, Entry](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	return &Cache{ttl: opts.TTL, mode: mode, now: opts.Now, entries: entries}, nil
}

// Key maps a prompt to its cache key.
func (c *Cache) Key(prompt string) string {
	if c.mode == KeyDigest {
		sum := sha256.Sum256([]byte(prompt))
		return hex.EncodeToString(sum[:])
	}
	r := []rune(prompt)
	if len(r) > PrefixLen {
		r = r[:PrefixLen]
	}
	return string(r)
}

// Get returns the cached response for prompt if one exists and is younger
// than the TTL. An expired entry is removed.
func (c *Cache) Get(prompt string) (string, bool) {
	key := c.Key(prompt)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(e.Timestamp) >= c.ttl {
		c.entries.Remove(key)
		return "", false
	}
	return e.Response, true
}

// Put stores response for prompt, replacing any existing entry under the
// same key.
func (c *Cache) Put(prompt, response string) {
	key := c.Key(prompt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, Entry{Key: key, Response: response, Timestamp: c.now()})
}

// Len reports the number of stored entries, including expired ones not yet
// looked up.
func (c *Cache) Len() int {
	return c.entries.Len()
}
