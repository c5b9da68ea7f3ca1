// Package memorystore provides an in-process document cache plugin backed
// by an expirable LRU. It serves reads, writes and validation for both
// document kinds and exposes a "cache.stats" custom function.
package memorystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/evannetwork/vade/pkg/vade"
)

// StatsFunction is the custom function name answered by this plugin.
const StatsFunction = "cache.stats"

// Config holds cache sizing and expiry settings.
type Config struct {
	// MaxEntries bounds the cache; least recently used documents are
	// evicted first.
	MaxEntries int
	// TTL expires documents after the given duration. Zero means no
	// expiry.
	TTL time.Duration
}

// DefaultConfig returns a config suitable for tests and small deployments.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 1024,
		TTL:        0,
	}
}

// Store is an in-memory document plugin. It caches documents of any kind
// and is always applicable for writes; reads and checks decline when the
// document is not cached, so a later plugin can answer instead.
type Store struct {
	cache *lru.LRU[string, string]

	hits   atomic.Uint64
	misses atomic.Uint64
	writes atomic.Uint64
}

// New creates a memory store plugin. A nil config uses DefaultConfig.
func New(config *Config) *Store {
	if config == nil {
		config = DefaultConfig()
	}
	maxEntries := config.MaxEntries
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{
		cache: lru.NewLRU[string, string](maxEntries, nil, config.TTL),
	}
}

// Name implements vade.Plugin.
func (s *Store) Name() string {
	return "memorystore"
}

// ReadDocument returns the cached document or declines on a miss.
func (s *Store) ReadDocument(ctx context.Context, kind vade.Kind, key string) (vade.Result, error) {
	payload, ok := s.cache.Get(cacheKey(kind, key))
	if !ok {
		s.misses.Add(1)
		return vade.NotApplicable(), nil
	}
	s.hits.Add(1)
	return vade.Success(payload), nil
}

// WriteDocument stores the document, replacing any cached copy.
func (s *Store) WriteDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	s.cache.Add(cacheKey(kind, key), payload)
	s.writes.Add(1)
	return vade.Done(), nil
}

// CheckDocument confirms the document when the cached copy matches the
// submitted payload. A cached copy that differs is an active failure; an
// uncached document is declined.
func (s *Store) CheckDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	stored, ok := s.cache.Get(cacheKey(kind, key))
	if !ok {
		return vade.NotApplicable(), nil
	}
	if stored != payload {
		return vade.Result{}, fmt.Errorf("cached document for %q does not match submitted payload", key)
	}
	return vade.Done(), nil
}

// RunFunction answers the cache.stats function with a JSON snapshot of
// cache counters.
func (s *Store) RunFunction(ctx context.Context, name string, args []string) (vade.Result, error) {
	if name != StatsFunction {
		return vade.NotApplicable(), nil
	}
	stats := struct {
		Entries uint64 `json:"entries"`
		Hits    uint64 `json:"hits"`
		Misses  uint64 `json:"misses"`
		Writes  uint64 `json:"writes"`
	}{
		Entries: uint64(s.cache.Len()),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Writes:  s.writes.Load(),
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return vade.Result{}, fmt.Errorf("failed to marshal cache stats: %w", err)
	}
	return vade.Success(string(data)), nil
}

func cacheKey(kind vade.Kind, key string) string {
	return string(kind) + "/" + key
}
