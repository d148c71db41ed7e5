// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package movies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultCacheTTL is how long a downloaded payload stays valid.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "dataset/"

// Cache stores raw dataset payloads in BadgerDB keyed by URI.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions are
// isolated.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewCache wraps an open database. ttl <= 0 uses DefaultCacheTTL.
func NewCache(db *badger.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{db: db, ttl: ttl}
}

// Get returns the cached payload for uri.
//
// Outputs:
//
//	[]byte - The payload. Nil on miss.
//	bool - True on hit. Expired entries are misses.
//	error - Non-nil only for storage failures.
func (c *Cache) Get(uri string) ([]byte, bool, error) {
	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + uri))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry for %s: %w", uri, err)
	}
	return payload, true, nil
}

// Put stores payload for uri with the cache TTL.
func (c *Cache) Put(uri string, payload []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(cacheKeyPrefix+uri), payload).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("write cache entry for %s: %w", uri, err)
	}
	return nil
}

// CachedFetcher serves payloads from a Cache and falls through to Inner
// on a miss.
type CachedFetcher struct {
	Inner Fetcher
	Cache *Cache
}

// NewCachedFetcher wraps inner with cache.
func NewCachedFetcher(inner Fetcher, cache *Cache) (*CachedFetcher, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	return &CachedFetcher{Inner: inner, Cache: cache}, nil
}

// Fetch implements Fetcher.
//
// Cache read and write failures are logged and never fail the fetch;
// the cache only ever saves a download.
func (f *CachedFetcher) Fetch(ctx context.Context) ([]byte, error) {
	uri := f.Inner.URI()

	payload, hit, err := f.Cache.Get(uri)
	if err != nil {
		slog.Warn("dataset cache read failed", slog.String("uri", uri), slog.String("error", err.Error()))
	}
	if hit {
		slog.Debug("dataset cache hit", slog.String("uri", uri), slog.Int("bytes", len(payload)))
		return payload, nil
	}

	payload, err = f.Inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.Cache.Put(uri, payload); err != nil {
		slog.Warn("dataset cache write failed", slog.String("uri", uri), slog.String("error", err.Error()))
	}
	return payload, nil
}

// URI implements Fetcher.
func (f *CachedFetcher) URI() string { return f.Inner.URI() }
