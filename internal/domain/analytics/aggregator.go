package analytics

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/okian/flowsense/internal/domain/model"
)

// AggregateCycles computes descriptive statistics over the cycle lengths in
// records. Records without a length still move LastStart. Variance is the
// population variance (divide by N). An empty history yields zero stats.
func AggregateCycles(records []model.CycleRecord) model.CycleStats {
	var out model.CycleStats
	lengths := make([]float64, 0, len(records))
	periods := make([]float64, 0, len(records))

	for _, r := range records {
		if r.StartDate.After(out.LastStart) {
			out.LastStart = r.StartDate
		}
		if r.HasLength() {
			lengths = append(lengths, float64(r.CycleLength))
		}
		if r.PeriodLength > 0 {
			periods = append(periods, float64(r.PeriodLength))
		}
	}

	if len(periods) > 0 {
		out.MeanPeriodLength, _ = stats.Mean(periods)
	}
	if len(lengths) == 0 {
		return out
	}

	// Errors are only returned for empty input, which is excluded above.
	out.Count = len(lengths)
	out.Mean, _ = stats.Mean(lengths)
	out.Variance, _ = stats.PopulationVariance(lengths)
	out.StdDev = math.Sqrt(out.Variance)
	out.Min, _ = stats.Min(lengths)
	out.Max, _ = stats.Max(lengths)
	return out
}
