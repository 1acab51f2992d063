package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clk.Now
	c, err := New(opts)
	require.NoError(t, err)
	return c, clk
}

func TestCache_HitWithinTTL(t *testing.T) {
	c, clk := newTestCache(t, Options{})

	c.Put("hello", "world")
	clk.Advance(4*time.Minute + 59*time.Second)

	got, ok := c.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "world", got)
}

func TestCache_ExpiresAtTTL(t *testing.T) {
	c, clk := newTestCache(t, Options{})

	c.Put("hello", "world")
	clk.Advance(DefaultTTL)

	_, ok := c.Get("hello")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry should be dropped on lookup")
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	_, ok := c.Get("never stored")
	assert.False(t, ok)
}

func TestCache_PutRefreshesTimestamp(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	c.Put("p", "old")
	clk.Advance(50 * time.Second)
	c.Put("p", "new")
	clk.Advance(50 * time.Second)

	got, ok := c.Get("p")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestCache_PrefixKeyCollides(t *testing.T) {
	c, _ := newTestCache(t, Options{KeyMode: KeyPrefix})

	shared := strings.Repeat("a", PrefixLen)
	c.Put(shared+" first tail", "first")

	got, ok := c.Get(shared + " second tail")
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestCache_PrefixKeyCountsRunes(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	prompt := strings.Repeat("é", PrefixLen+20)
	assert.Equal(t, strings.Repeat("é", PrefixLen), c.Key(prompt))
}

func TestCache_DigestKeyDistinguishesTails(t *testing.T) {
	c, _ := newTestCache(t, Options{KeyMode: KeyDigest})

	shared := strings.Repeat("a", PrefixLen)
	c.Put(shared+" first tail", "first")

	_, ok := c.Get(shared + " second tail")
	assert.False(t, ok)
	assert.Len(t, c.Key("x"), 64)
}

func TestCache_CapacityEvictsLeastRecent(t *testing.T) {
	c, _ := newTestCache(t, Options{Capacity: 2})

	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestParseKeyMode(t *testing.T) {
	m, err := ParseKeyMode("")
	require.NoError(t, err)
	assert.Equal(t, KeyPrefix, m)

	m, err = ParseKeyMode("sha256")
	require.NoError(t, err)
	assert.Equal(t, KeyDigest, m)

	_, err = ParseKeyMode("md5")
	assert.Error(t, err)
}
