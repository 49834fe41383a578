// Package cache provides a bounded on-disk preview cache keyed by content
// hash.
//
// Preview downloads hit the same small set of blobs repeatedly (thumbnails
// and images rendered by listings), so serving them from a Badger store
// with TTL eviction keeps the blob backend, which may be S3, out of the
// hot path. Entries expire on their own; Badger value-log GC reclaims the
// space during Close and on a background tick.
package cache

import (
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
)

// Config holds preview cache settings.
type Config struct {
	// Dir is the Badger database directory.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// TTL is how long a cached preview stays valid.
	// Default: 1h
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// MaxEntryBytes caps the size of a single cached preview. Larger
	// blobs bypass the cache entirely. Default: 8 MiB
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes" yaml:"max_entry_bytes"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
	if c.MaxEntryBytes == 0 {
		c.MaxEntryBytes = 8 << 20
	}
}

// Cache is a TTL-bounded preview cache backed by Badger.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	maxLen int64
	stopGC chan struct{}
}

// New opens the cache at cfg.Dir.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	cfg.ApplyDefaults()

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		db:     db,
		ttl:    cfg.TTL,
		maxLen: cfg.MaxEntryBytes,
		stopGC: make(chan struct{}),
	}
	go c.gcLoop()
	return c, nil
}

// Get returns the cached preview bytes for a hash, if present and fresh.
func (c *Cache) Get(hash string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores preview bytes for a hash. Oversized blobs are skipped;
// failures are logged and swallowed, a cache miss is never an error.
func (c *Cache) Set(hash string, data []byte) {
	if int64(len(data)) > c.maxLen {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(hash), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		logger.Warn("failed to cache preview", logger.KeyHash, hash, logger.KeyError, err)
	}
}

// Invalidate drops a cached preview. Used when the last reference to a
// blob is deleted.
func (c *Cache) Invalidate(hash string) {
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(hash))
	})
}

// gcLoop periodically reclaims value-log space from expired entries.
func (c *Cache) gcLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			// Badger asks callers to retry while GC makes progress.
			for c.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// Close stops the GC loop and closes the database.
func (c *Cache) Close() error {
	close(c.stopGC)
	return c.db.Close()
}
