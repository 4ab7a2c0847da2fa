// Package ristretto implements the cache port on dgraph-io/ristretto. It
// fronts the stats and relationship stores during assignment scoring, where
// every tick reads one small JSON snapshot per candidate agent.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/AgentForge/internal/config"
)

const (
	defaultMaxSize = 64 << 20 // bytes
	defaultTTL     = 30 * time.Second

	// Scoring snapshots are a few hundred bytes each; size the admission
	// counters for that entry profile rather than for raw byte cost.
	estimatedEntrySize = 256
)

// Cache is the in-process scoring cache.
type Cache struct {
	c          *ristretto.Cache[string, []byte]
	defaultTTL time.Duration
}

// New creates a ristretto-backed cache sized from config.
func New(cfg config.Cache) (*Cache, error) {
	maxCost := cfg.MaxSizeMB << 20
	if maxCost <= 0 {
		maxCost = defaultMaxSize
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / estimatedEntrySize * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, defaultTTL: ttl}, nil
}

// Get retrieves a snapshot. A miss is not an error.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a snapshot. Non-positive ttl falls back to the configured
// default. The write is flushed through ristretto's buffers before
// returning, so a scoring pass sees the snapshot it just stored.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	c.c.Wait()
	return nil
}

// Delete drops a snapshot, used when an execution record invalidates the
// cached stats for an agent.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
