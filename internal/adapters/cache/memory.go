package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/flowsense/internal/domain/model"
)

// Memory cache defaults.
const (
	defaultMemorySize = 10_000
	defaultMaxTTL     = 6 * time.Hour
)

type entry struct {
	report    model.InsightsReport
	expiresAt time.Time
}

// Memory is an in-process LRU cache. Entries leave when evicted, when the
// cache-wide TTL passes, or when their own expiry passes.
type Memory struct {
	counters
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	size   int
	maxTTL time.Duration
	now    func() time.Time
}

// WithSize bounds the number of cached reports.
func WithSize(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithMaxTTL caps how long any report stays cached.
func WithMaxTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.maxTTL = d
		}
	}
}

// WithClock sets the time source used for per-entry expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemory creates a Memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	cfg := memoryConfig{size: defaultMemorySize, maxTTL: defaultMaxTTL, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory{
		counters: counters{backend: BackendMemory},
		lru:      expirable.NewLRU[string, entry](cfg.size, nil, cfg.maxTTL),
		now:      cfg.now,
	}
}

func (m *Memory) Get(_ context.Context, key Key) (model.InsightsReport, bool) {
	k := key.String()
	e, ok := m.lru.Get(k)
	if !ok {
		m.miss()
		return model.InsightsReport{}, false
	}
	if !m.now().Before(e.expiresAt) {
		m.lru.Remove(k)
		m.miss()
		return model.InsightsReport{}, false
	}
	m.hit()
	return e.report, true
}

func (m *Memory) Set(_ context.Context, key Key, report model.InsightsReport, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	m.lru.Add(key.String(), entry{report: report, expiresAt: m.now().Add(ttl)})
	m.sets.Add(1)
	return nil
}

// Len returns the number of cached reports.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
