// Package jsonstore implements the persistence ports over plain files: one
// JSON array per collection, rewritten whole behind a debounced quiet
// period, and newline-delimited JSON logs for append-only channel history.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/AgentForge/internal/debounce"
	"github.com/Strob0t/AgentForge/internal/domain"
)

// collection holds one entity type in memory, keyed by id, and persists the
// whole set as a sorted JSON array. Writes are coalesced by a trailing-edge
// debounce so a burst of mutations costs one disk write.
type collection[T any] struct {
	path  string
	keyOf func(*T) string
	log   *slog.Logger

	mu    sync.RWMutex
	items map[string]*T
	timer *debounce.Timer
}

func openCollection[T any](path string, quiet time.Duration, keyOf func(*T) string, log *slog.Logger) (*collection[T], error) {
	c := &collection[T]{
		path:  path,
		keyOf: keyOf,
		log:   log,
		items: make(map[string]*T),
	}
	c.timer = debounce.New(quiet, c.save, func(err error) {
		log.Error("collection flush failed", "path", path, "error", err)
	})

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *collection[T]) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse %s: %w", c.path, err)
	}
	for i := range items {
		item := items[i]
		c.items[c.keyOf(&item)] = &item
	}
	return nil
}

// save rewrites the whole collection atomically: marshal to a sibling temp
// file, then rename over the target.
func (c *collection[T]) save() error {
	c.mu.RLock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]T, 0, len(keys))
	for _, k := range keys {
		items = append(items, *c.items[k])
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *collection[T]) get(key string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (c *collection[T]) put(item *T) {
	copied := *item
	c.mu.Lock()
	c.items[c.keyOf(&copied)] = &copied
	c.mu.Unlock()
	c.timer.Schedule()
}

func (c *collection[T]) delete(key string) error {
	c.mu.Lock()
	if _, ok := c.items[key]; !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(c.items, key)
	c.mu.Unlock()
	c.timer.Schedule()
	return nil
}

// all returns copies of every item, ordered by key.
func (c *collection[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]T, 0, len(keys))
	for _, k := range keys {
		items = append(items, *c.items[k])
	}
	return items
}

// mutate applies fn to the stored item under the write lock, creating it
// with create() when absent (or failing with ErrNotFound when create is
// nil). fn sees and edits the live stored copy.
func (c *collection[T]) mutate(key string, create func() *T, fn func(*T) error) (*T, error) {
	c.mu.Lock()
	item, ok := c.items[key]
	if !ok {
		if create == nil {
			c.mu.Unlock()
			return nil, domain.ErrNotFound
		}
		item = create()
		c.items[key] = item
	}
	if err := fn(item); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	copied := *item
	c.mu.Unlock()

	c.timer.Schedule()
	return &copied, nil
}

// flush forces any pending write to disk. Called at shutdown.
func (c *collection[T]) flush() {
	c.timer.FlushNow()
}
