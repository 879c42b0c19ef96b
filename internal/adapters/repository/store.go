// Package repository stores cycle records and biometric samples and serves
// them to the analytics engine by user and date range.
package repository

import (
	"context"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
)

// Reader is the read side consumed by the insights composer. Results are
// ordered by date, then id. Ranges are inclusive on both ends.
type Reader interface {
	CyclesInRange(ctx context.Context, userID string, start, end time.Time) ([]model.CycleRecord, error)
	BiometricSamples(ctx context.Context, userID string, start, end time.Time, types ...model.BiometricType) ([]model.BiometricSample, error)

	// Version changes every time the user's data changes. Report caches
	// key on it.
	Version(ctx context.Context, userID string) (uint64, error)
}

// Writer stores records. Writes are upserts by id; records without an id
// get a generated one.
type Writer interface {
	SaveCycle(ctx context.Context, rec model.CycleRecord) (model.CycleRecord, error)
	// SaveSamples validates every sample before storing any of them.
	SaveSamples(ctx context.Context, userID string, samples []model.BiometricSample) ([]model.BiometricSample, error)
}

// Counts summarises what a store holds.
type Counts struct {
	Users   int `json:"users"`
	Cycles  int `json:"cycles"`
	Samples int `json:"samples"`
}

// Store is a full read/write record store.
type Store interface {
	Reader
	Writer

	// Users returns every user id with data, sorted.
	Users(ctx context.Context) ([]string, error)
	Counts(ctx context.Context) (Counts, error)
	Close() error
}
