package model

import "time"

// Priority ranks a recommendation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Recommendation is one piece of advice produced by a matched rule.
type Recommendation struct {
	Rule     string   `json:"rule"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
}

// Category is the qualitative band of a health score.
type Category string

const (
	CategoryExcellent Category = "excellent"
	CategoryGood      Category = "good"
	CategoryFair      Category = "fair"
	CategoryPoor      Category = "poor"
)

// Category score thresholds.
const (
	ExcellentThreshold = 85.0
	GoodThreshold      = 70.0
	FairThreshold      = 55.0
)

// CategoryForScore maps a health score onto its band.
func CategoryForScore(score float64) Category {
	switch {
	case score >= ExcellentThreshold:
		return CategoryExcellent
	case score >= GoodThreshold:
		return CategoryGood
	case score >= FairThreshold:
		return CategoryFair
	default:
		return CategoryPoor
	}
}

// InsightsReport is the composed engine output for one user and window.
type InsightsReport struct {
	UserID          string            `json:"user_id"`
	WindowStart     time.Time         `json:"window_start"`
	WindowEnd       time.Time         `json:"window_end"`
	GeneratedAt     time.Time         `json:"generated_at"`
	CycleStats      CycleStats        `json:"cycle_stats"`
	Irregularity    Irregularity      `json:"irregularity"`
	Trend           CycleTrend        `json:"trend"`
	Predictions     []Prediction      `json:"predictions"`
	Anomalies       []Anomaly         `json:"anomalies"`
	HealthScore     HealthScoreResult `json:"health_score"`
	Recommendations []Recommendation  `json:"recommendations"`
	Category        Category          `json:"category"`
}

// ExpiresAt is the earliest expiry among the report's predictions, or zero
// when none carries one.
func (r InsightsReport) ExpiresAt() time.Time {
	var earliest time.Time
	for _, p := range r.Predictions {
		if p.ExpiresAt.IsZero() {
			continue
		}
		if earliest.IsZero() || p.ExpiresAt.Before(earliest) {
			earliest = p.ExpiresAt
		}
	}
	return earliest
}

// RefreshJob asks the worker pool to recompute a report and warm the cache.
type RefreshJob struct {
	JobID       string    `json:"job_id"`
	UserID      string    `json:"user_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	RequestedAt time.Time `json:"requested_at"`
}
