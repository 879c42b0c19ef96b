package analytics

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/okian/flowsense/internal/domain/model"
)

// Health factor names.
const (
	FactorHeartRate = "heart_rate"
	FactorActivity  = "activity"
)

// HealthScorer combines the biometric factors present in a sample window
// into a 0-100 wellbeing score.
type HealthScorer struct {
	cal Calibration
}

// NewHealthScorer creates a HealthScorer using cal.
func NewHealthScorer(cal Calibration) *HealthScorer {
	return &HealthScorer{cal: cal}
}

// Score evaluates every factor with data. Missing factors are left out of
// both the points and the maximum, so a window without data scores 0 with
// no factors.
func (h *HealthScorer) Score(samples []model.BiometricSample, asOf time.Time) model.HealthScoreResult {
	factors := make([]model.HealthFactor, 0, 2)
	if f, ok := h.heartRate(samples); ok {
		factors = append(factors, f)
	}
	if f, ok := h.activity(samples); ok {
		factors = append(factors, f)
	}

	result := model.HealthScoreResult{Factors: factors, EvaluatedAt: asOf}
	if len(factors) == 0 {
		return result
	}

	var points, maxPoints float64
	for _, f := range factors {
		points += f.Points
		maxPoints += f.MaxPoints
	}
	if maxPoints > 0 {
		result.Score = clamp(points/maxPoints*100, 0, 100)
	}
	return result
}

// heartRate prefers resting readings and falls back to general heart rate.
func (h *HealthScorer) heartRate(samples []model.BiometricSample) (model.HealthFactor, bool) {
	values := valuesOf(samples, model.RestingHeartRate)
	if len(values) == 0 {
		values = valuesOf(samples, model.HeartRate)
	}
	if len(values) == 0 {
		return model.HealthFactor{}, false
	}

	mean, _ := stats.Mean(values)
	pts := h.cal.FactorMaxPoints
	if mean < h.cal.HeartRateMin || mean > h.cal.HeartRateMax {
		pts = math.Max(0, h.cal.FactorMaxPoints-h.cal.HeartRateDecayPerBPM*math.Abs(mean-h.cal.HeartRateCenter))
	}
	return model.HealthFactor{
		Name:      FactorHeartRate,
		Value:     mean,
		Points:    pts,
		MaxPoints: h.cal.FactorMaxPoints,
		Samples:   len(values),
	}, true
}

// activity averages the per-day step totals over the days that have steps.
func (h *HealthScorer) activity(samples []model.BiometricSample) (model.HealthFactor, bool) {
	perDay := make(map[time.Time]float64)
	n := 0
	for _, s := range samples {
		if s.Type != model.Steps {
			continue
		}
		perDay[dateOnly(s.Timestamp)] += s.Value
		n++
	}
	if len(perDay) == 0 {
		return model.HealthFactor{}, false
	}

	totals := make([]float64, 0, len(perDay))
	for _, v := range perDay {
		totals = append(totals, v)
	}
	avg, _ := stats.Mean(totals)
	avg = math.Max(0, avg)

	ratio := math.Min(avg/h.cal.DailyStepTarget, 1)
	return model.HealthFactor{
		Name:      FactorActivity,
		Value:     avg,
		Points:    h.cal.FactorMaxPoints * ratio,
		MaxPoints: h.cal.FactorMaxPoints,
		Samples:   n,
	}, true
}

func valuesOf(samples []model.BiometricSample, t model.BiometricType) []float64 {
	var out []float64
	for _, s := range samples {
		if s.Type == t {
			out = append(out, s.Value)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
