package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	cfg.Dir = t.TempDir()
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGetInvalidate(t *testing.T) {
	c := newTestCache(t, Config{})

	_, ok := c.Get("hash1")
	assert.False(t, ok)

	c.Set("hash1", []byte("preview bytes"))
	data, ok := c.Get("hash1")
	require.True(t, ok)
	assert.Equal(t, []byte("preview bytes"), data)

	c.Invalidate("hash1")
	_, ok = c.Get("hash1")
	assert.False(t, ok)
}

func TestOversizedEntrySkipped(t *testing.T) {
	c := newTestCache(t, Config{MaxEntryBytes: 4})

	c.Set("big", []byte("too large for the cache"))
	_, ok := c.Get("big")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := newTestCache(t, Config{TTL: 50 * time.Millisecond})

	c.Set("soon-gone", []byte("x"))
	_, ok := c.Get("soon-gone")
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok = c.Get("soon-gone")
	assert.False(t, ok)
}
