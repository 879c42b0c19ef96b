package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/flowsense/internal/domain/model"
)

// minTrendPoints is the shortest history a slope is fitted on.
const minTrendPoints = 3

// CycleTrend fits cycle length against cycle index by least squares and
// names the drift direction.
func CycleTrend(records []model.CycleRecord, cal Calibration) model.CycleTrend {
	withLength := make([]model.CycleRecord, 0, len(records))
	for _, r := range records {
		if r.HasLength() {
			withLength = append(withLength, r)
		}
	}
	n := len(withLength)
	if n < minTrendPoints {
		return model.CycleTrend{Points: n, Direction: model.TrendUnknown}
	}

	sort.SliceStable(withLength, func(i, j int) bool {
		return withLength[i].StartDate.Before(withLength[j].StartDate)
	})
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, r := range withLength {
		xs[i] = float64(i)
		ys[i] = float64(r.CycleLength)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// constant series: the flat line is an exact fit
		r2 = 1
	}

	dir := model.TrendStable
	switch {
	case slope > cal.TrendSlopeThreshold:
		dir = model.TrendLengthening
	case slope < -cal.TrendSlopeThreshold:
		dir = model.TrendShortening
	}
	return model.CycleTrend{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		Points:    n,
		Direction: dir,
	}
}
