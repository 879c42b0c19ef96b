package analytics_test

import (
	"fmt"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// cycles lays the lengths end to end starting at base.
func cycles(lengths ...int) []model.CycleRecord {
	out := make([]model.CycleRecord, 0, len(lengths))
	start := base
	for i, l := range lengths {
		out = append(out, model.CycleRecord{
			ID:           fmt.Sprintf("c%d", i),
			UserID:       "u1",
			StartDate:    start,
			CycleLength:  l,
			PeriodLength: 5,
			Complete:     true,
		})
		start = start.AddDate(0, 0, l)
	}
	return out
}

// series builds one sample per hour of type t.
func series(t model.BiometricType, values ...float64) []model.BiometricSample {
	out := make([]model.BiometricSample, 0, len(values))
	for i, v := range values {
		out = append(out, model.BiometricSample{
			ID:         fmt.Sprintf("%s-%02d", t, i),
			UserID:     "u1",
			Type:       t,
			Value:      v,
			Confidence: 1,
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
