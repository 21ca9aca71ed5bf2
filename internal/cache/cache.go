// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores final answers under their cache keys.
//
// MemoryCache keeps answers in a bounded in-process LRU. SQLiteCache keeps
// them on disk so they survive across CLI invocations. Both honor a
// per-entry time-to-live.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// Stats describes cache occupancy.
type Stats struct {
	Backend string `json:"backend" yaml:"backend"`
	Entries int    `json:"entries" yaml:"entries"`
	Expired int    `json:"expired" yaml:"expired"`
}

type entry struct {
	answer    types.CachedAnswer
	expiresAt time.Time
}

// MemoryCache is an in-process answer cache bounded by entry count.
type MemoryCache struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemoryCache returns a cache holding at most size entries (default 1024).
// Entries never outlive maxTTL regardless of the ttl passed to Set.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get returns the answer stored under key, if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (types.CachedAnswer, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return types.CachedAnswer{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return types.CachedAnswer{}, false, nil
	}
	return e.answer, true, nil
}

// Set stores answer under key for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, answer types.CachedAnswer, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if answer.StoredAt.IsZero() {
		answer.StoredAt = c.now()
	}
	c.lru.Add(key, entry{answer: answer, expiresAt: c.now().Add(ttl)})
	return nil
}

// Stats reports the number of held entries.
func (c *MemoryCache) Stats(context.Context) (Stats, error) {
	return Stats{Backend: "memory", Entries: c.lru.Len()}, nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}
