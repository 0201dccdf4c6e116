package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/telemetry"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultTTL = 5 * time.Minute
)

// Config selects the cache backend and freshness window.
type Config struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// Entry is a cached upstream payload and the time it was stored.
type Entry struct {
	Payload    []byte    `json:"payload"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Store is the (key) -> (value, insertedAt) contract behind PageCache.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// NewStore builds the configured backend.
func NewStore(ctx context.Context, c *Config) (Store, error) {
	switch c.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		ttl := c.TTL
		if ttl <= 0 {
			ttl = DefaultTTL
		}
		return NewRedis(ctx, &c.Redis, 2*ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}

// PageCache serves upstream pages from a Store while they are fresh.
type PageCache struct {
	store Store
	ttl   time.Duration
	clock dependency.Clock
}

// New creates a PageCache. A non-positive ttl means DefaultTTL.
func New(store Store, ttl time.Duration, clock dependency.Clock) *PageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = dependency.SystemClock{}
	}
	return &PageCache{
		store: store,
		ttl:   ttl,
		clock: clock,
	}
}

// Key builds the cache key of an endpoint and its query string.
func Key(endpoint, query string) string {
	return endpoint + "?" + query
}

// Fetch returns the cached payload for (endpoint, query) when it is younger
// than the ttl, otherwise calls fetch and stores the result. The boolean
// reports a cache hit. Store failures are logged and never fail the fetch.
func (c *PageCache) Fetch(ctx context.Context, endpoint, query string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	key := Key(endpoint, query)

	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Default().WarnContext(ctx, "can't read order cache",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
	}
	if ok && c.clock.Now().Sub(e.InsertedAt) < c.ttl {
		telemetry.ObserveCacheRequest(telemetry.ResultHit)
		return e.Payload, true, nil
	}
	telemetry.ObserveCacheRequest(telemetry.ResultMiss)

	payload, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.store.Set(ctx, key, Entry{Payload: payload, InsertedAt: c.clock.Now()}); err != nil {
		slog.Default().WarnContext(ctx, "can't write order cache",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
	}
	return payload, false, nil
}

// Memory is a process-wide, unbounded in-memory Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
