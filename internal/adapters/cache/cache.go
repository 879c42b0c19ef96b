// Package cache holds computed insights reports keyed by user, window and
// data version.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/metrics"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Key identifies one cached report. A write to the user's data bumps
// Version, so stale reports are never looked up again.
type Key struct {
	UserID  string
	Start   time.Time
	End     time.Time
	Version uint64
}

// String renders the key as a flat cache key. The user id is quoted so
// separators inside it cannot shift the window fields.
func (k Key) String() string {
	return fmt.Sprintf("%q:%d:%d:v%d", k.UserID, k.Start.UnixNano(), k.End.UnixNano(), k.Version)
}

// ReportCache stores reports until their expiry.
type ReportCache interface {
	// Get returns the report for key if present and not expired.
	Get(ctx context.Context, key Key) (model.InsightsReport, bool)
	// Set stores report for at most ttl.
	Set(ctx context.Context, key Key, report model.InsightsReport, ttl time.Duration) error
	Backend() string
	Stats() Stats
	Close() error
}

// Stats counts cache outcomes.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
	Sets   uint64 `json:"sets"`
}

// counters is embedded by every backend.
type counters struct {
	backend                    string
	hits, misses, errors, sets atomic.Uint64
}

func (c *counters) hit() {
	c.hits.Add(1)
	metrics.RecordCacheLookup(c.backend, "hit")
}

func (c *counters) miss() {
	c.misses.Add(1)
	metrics.RecordCacheLookup(c.backend, "miss")
}

func (c *counters) fail() {
	c.errors.Add(1)
	metrics.RecordCacheLookup(c.backend, "error")
	metrics.RecordErrorByComponent("cache", c.backend)
}

func (c *counters) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
		Sets:   c.sets.Load(),
	}
}

func (c *counters) Backend() string {
	return c.backend
}

// noop never stores anything.
type noop struct {
	counters
}

// NewNoop returns a cache that always misses.
func NewNoop() ReportCache {
	return &noop{counters: counters{backend: BackendNone}}
}

func (n *noop) Get(context.Context, Key) (model.InsightsReport, bool) {
	n.miss()
	return model.InsightsReport{}, false
}

func (n *noop) Set(context.Context, Key, model.InsightsReport, time.Duration) error {
	return nil
}

func (n *noop) Close() error { return nil }
