// Package redisstore provides a Redis-backed document plugin. It is
// responsible only for keys matching its configured prefixes, so multiple
// instances can partition the identifier space by method.
package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/evannetwork/vade/pkg/vade"
)

// Config holds Redis connection and responsibility settings.
type Config struct {
	// URL is a redis:// connection URL.
	URL string
	// Password overrides the URL password when set.
	Password string
	// DB overrides the URL database when >= 0.
	DB int
	// PoolSize bounds the connection pool when > 0.
	PoolSize int

	// KeyPrefixes restricts the plugin to document keys with one of the
	// given prefixes (e.g. "did:evan"). Empty means all keys.
	KeyPrefixes []string
	// TTL expires stored documents. Zero means no expiry.
	TTL time.Duration
}

// Store is a Redis-backed document plugin.
type Store struct {
	client   *redis.Client
	prefixes []string
	ttl      time.Duration
}

// New connects to Redis and returns a store plugin. The connection is
// verified with a ping before the plugin is handed out.
func New(config Config) (*Store, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB >= 0 {
		opts.DB = config.DB
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, config.KeyPrefixes, config.TTL), nil
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client *redis.Client, prefixes []string, ttl time.Duration) *Store {
	return &Store{
		client:   client,
		prefixes: prefixes,
		ttl:      ttl,
	}
}

// Name implements vade.Plugin.
func (s *Store) Name() string {
	return "redisstore"
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// ReadDocument fetches the document from Redis. Keys outside the
// configured prefixes and unknown keys are declined.
func (s *Store) ReadDocument(ctx context.Context, kind vade.Kind, key string) (vade.Result, error) {
	if !s.handles(key) {
		return vade.NotApplicable(), nil
	}
	payload, err := s.client.Get(ctx, storageKey(kind, key)).Result()
	if err == redis.Nil {
		return vade.NotApplicable(), nil
	} else if err != nil {
		return vade.Result{}, fmt.Errorf("redis get failed: %w", err)
	}
	return vade.Success(payload), nil
}

// WriteDocument stores the document, applying the configured TTL.
func (s *Store) WriteDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	if !s.handles(key) {
		return vade.NotApplicable(), nil
	}
	if err := s.client.Set(ctx, storageKey(kind, key), payload, s.ttl).Err(); err != nil {
		return vade.Result{}, fmt.Errorf("redis set failed: %w", err)
	}
	return vade.Done(), nil
}

// CheckDocument confirms the document when the stored copy matches the
// submitted payload.
func (s *Store) CheckDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	if !s.handles(key) {
		return vade.NotApplicable(), nil
	}
	stored, err := s.client.Get(ctx, storageKey(kind, key)).Result()
	if err == redis.Nil {
		return vade.NotApplicable(), nil
	} else if err != nil {
		return vade.Result{}, fmt.Errorf("redis get failed: %w", err)
	}
	if stored != payload {
		return vade.Result{}, fmt.Errorf("stored document for %q does not match submitted payload", key)
	}
	return vade.Done(), nil
}

func (s *Store) handles(key string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func storageKey(kind vade.Kind, key string) string {
	return fmt.Sprintf("vade:doc:%s:%s", kind, key)
}
