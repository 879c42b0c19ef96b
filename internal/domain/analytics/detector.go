package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/okian/flowsense/internal/domain/model"
)

// Detector flags biometric outliers with a per-type z-score test.
type Detector struct {
	cal Calibration
}

// NewDetector creates a Detector using cal.
func NewDetector(cal Calibration) *Detector {
	return &Detector{cal: cal}
}

// ClassifyZScore grades z against the default thresholds.
func ClassifyZScore(z float64) (model.Severity, bool) {
	return classify(z, DefaultAnomalyThreshold, DefaultAnomalyHighThreshold)
}

// Classify grades z against the detector's thresholds. A z-score that lands
// on a threshold belongs to that threshold's tier.
func (d *Detector) Classify(z float64) (model.Severity, bool) {
	return classify(z, d.cal.AnomalyThreshold, d.cal.AnomalyHighThreshold)
}

func classify(z, flag, high float64) (model.Severity, bool) {
	abs := math.Abs(z)
	switch {
	case math.IsNaN(abs):
		return "", false
	case abs >= high-zTolerance:
		return model.SeverityHigh, true
	case abs >= flag-zTolerance:
		return model.SeverityMedium, true
	}
	return "", false
}

// Detect groups samples by type and flags outliers in every group that has
// at least AnomalyMinSamples readings. Output is ordered by timestamp, type
// and sample id, so equal inputs always produce equal results.
func (d *Detector) Detect(samples []model.BiometricSample) []model.Anomaly {
	groups := make(map[model.BiometricType][]model.BiometricSample)
	for _, s := range samples {
		groups[s.Type] = append(groups[s.Type], s)
	}

	types := make([]model.BiometricType, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	out := make([]model.Anomaly, 0)
	for _, t := range types {
		out = append(out, d.detectGroup(groups[t])...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.SampleID < b.SampleID
	})
	return out
}

func (d *Detector) detectGroup(group []model.BiometricSample) []model.Anomaly {
	if len(group) < d.cal.AnomalyMinSamples {
		return nil
	}

	values := make([]float64, len(group))
	for i, s := range group {
		values[i] = s.Value
	}
	mean, _ := stats.Mean(values)
	stddev, _ := stats.StandardDeviationPopulation(values)
	if stddev == 0 || math.IsNaN(stddev) {
		return nil
	}

	lo := mean - d.cal.ExpectedRangeSigma*stddev
	hi := mean + d.cal.ExpectedRangeSigma*stddev

	var out []model.Anomaly
	for _, s := range group {
		z := (s.Value - mean) / stddev
		severity, flagged := d.Classify(z)
		if !flagged {
			continue
		}
		out = append(out, model.Anomaly{
			SampleID:    s.ID,
			Type:        s.Type,
			Value:       s.Value,
			Timestamp:   s.Timestamp,
			ZScore:      z,
			ExpectedMin: lo,
			ExpectedMax: hi,
			Severity:    severity,
			Description: describe(s, z, lo, hi),
		})
	}
	return out
}

func describe(s model.BiometricSample, z, lo, hi float64) string {
	direction := "above"
	if z < 0 {
		direction = "below"
	}
	unit := s.Unit
	if unit == "" {
		unit = s.Type.DefaultUnit()
	}
	return fmt.Sprintf("%s reading of %.1f %s is %.1f standard deviations %s your usual range of %.1f to %.1f",
		s.Type, s.Value, unit, math.Abs(z), direction, lo, hi)
}
