package model

import "time"

// PredictionKind names what a prediction forecasts.
type PredictionKind string

const (
	KindNextPeriod    PredictionKind = "next_period"
	KindOvulation     PredictionKind = "ovulation"
	KindFertileWindow PredictionKind = "fertile_window"
)

// Prediction is a forecast date or window with a confidence in [0,1].
// Sufficient is false when there was not enough history; such predictions
// carry zero confidence and zero dates.
type Prediction struct {
	Kind        PredictionKind `json:"kind"`
	Date        time.Time      `json:"date,omitzero"`
	WindowStart time.Time      `json:"window_start,omitzero"`
	WindowEnd   time.Time      `json:"window_end,omitzero"`
	CycleDay    float64        `json:"cycle_day,omitempty"`
	Confidence  float64        `json:"confidence"`
	Sufficient  bool           `json:"sufficient"`
	ComputedAt  time.Time      `json:"computed_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// Expired reports whether the prediction should no longer be trusted at now.
func (p Prediction) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// HealthFactor is one contribution to the health score.
type HealthFactor struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Samples   int     `json:"samples"`
}

// HealthScoreResult is the 0-100 aggregate plus the factors behind it.
type HealthScoreResult struct {
	Score       float64        `json:"score"`
	Factors     []HealthFactor `json:"factors"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// Factor returns the named factor, if it was evaluated.
func (r HealthScoreResult) Factor(name string) (HealthFactor, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return HealthFactor{}, false
}
