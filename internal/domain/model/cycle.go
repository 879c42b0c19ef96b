// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// CycleRecord describes one menstrual cycle as read from storage.
// The engine only ever reads immutable snapshots of it.
type CycleRecord struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitzero"`
	CycleLength   int        `json:"cycle_length,omitempty"` // days; 0 means unknown or ongoing
	PeriodLength  int        `json:"period_length,omitempty"`
	OvulationDate *time.Time `json:"ovulation_date,omitzero"`
	Complete      bool       `json:"complete"`
}

// HasLength reports whether the record carries a usable cycle length.
func (c CycleRecord) HasLength() bool {
	return c.CycleLength > 0
}

// Validate checks the record invariants.
func (c CycleRecord) Validate() error {
	switch {
	case c.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", ErrInvalidCycle)
	case c.CycleLength < 0:
		return fmt.Errorf("%w: cycle length must be positive, got %d", ErrInvalidCycle, c.CycleLength)
	case c.PeriodLength < 0:
		return fmt.Errorf("%w: period length must not be negative, got %d", ErrInvalidCycle, c.PeriodLength)
	case c.EndDate != nil && !c.EndDate.After(c.StartDate):
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidCycle)
	}
	return nil
}

// CycleStats holds descriptive statistics over historical cycle lengths.
// A zero value with Count == 0 means there was no usable history.
type CycleStats struct {
	Mean             float64   `json:"mean"`
	Variance         float64   `json:"variance"`
	StdDev           float64   `json:"stddev"`
	Min              float64   `json:"min"`
	Max              float64   `json:"max"`
	Count            int       `json:"count"`
	MeanPeriodLength float64   `json:"mean_period_length,omitempty"`
	LastStart        time.Time `json:"last_start,omitzero"`
}

// MinReliableCycles is the history size from which statistics are meaningful.
const MinReliableCycles = 3

// Reliable reports whether enough cycles were seen for the statistics to be
// trusted.
func (s CycleStats) Reliable() bool {
	return s.Count >= MinReliableCycles
}

// Tier is a qualitative risk level.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Irregularity is the bounded cycle variability score.
type Irregularity struct {
	Score float64 `json:"score"` // in [0,1]
	Tier  Tier    `json:"tier"`
}

// TrendDirection names the drift of cycle lengths over time.
type TrendDirection string

const (
	TrendUnknown     TrendDirection = "unknown"
	TrendStable      TrendDirection = "stable"
	TrendLengthening TrendDirection = "lengthening"
	TrendShortening  TrendDirection = "shortening"
)

// CycleTrend is the least-squares drift of cycle length per cycle.
type CycleTrend struct {
	Slope     float64        `json:"slope"` // days per cycle
	Intercept float64        `json:"intercept"`
	RSquared  float64        `json:"r_squared"`
	Points    int            `json:"points"`
	Direction TrendDirection `json:"direction"`
}
