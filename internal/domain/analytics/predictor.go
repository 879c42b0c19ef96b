package analytics

import (
	"math"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
)

const day = 24 * time.Hour

// Predictor projects next period, ovulation and fertile window dates from
// aggregated cycle statistics.
type Predictor struct {
	cal Calibration
}

// NewPredictor creates a Predictor using cal.
func NewPredictor(cal Calibration) *Predictor {
	return &Predictor{cal: cal}
}

// Confidence is clamp(1 - stddev/mean, floor, ceiling), or 0 without history.
func (p *Predictor) Confidence(s model.CycleStats) float64 {
	if s.Count == 0 || s.Mean <= 0 {
		return 0
	}
	c := 1 - s.StdDev/s.Mean
	return math.Max(p.cal.ConfidenceFloor, math.Min(p.cal.ConfidenceCeiling, c))
}

// Predict returns next_period, ovulation and fertile_window predictions in
// that order. Kinds that cannot be computed come back insufficient with
// zero confidence rather than as errors.
func (p *Predictor) Predict(s model.CycleStats, asOf time.Time) []model.Prediction {
	next := p.NextPeriod(s, asOf)
	ovulation := p.ovulation(s, next, asOf)
	return []model.Prediction{next, ovulation, p.fertileWindow(ovulation, asOf)}
}

// NextPeriod projects the start of the next period. When the projected date
// has already passed it rolls forward by whole mean cycle lengths.
func (p *Predictor) NextPeriod(s model.CycleStats, asOf time.Time) model.Prediction {
	length := cycleDays(s)
	if length <= 0 || s.LastStart.IsZero() {
		return p.empty(model.KindNextPeriod, asOf)
	}

	today := dateOnly(asOf)
	next := dateOnly(s.LastStart).AddDate(0, 0, length)
	if next.Before(today) {
		behind := daysBetween(next, today)
		cycles := (behind + length - 1) / length
		next = next.AddDate(0, 0, cycles*length)
	}

	spread := int(math.Round(s.StdDev))
	return model.Prediction{
		Kind:        model.KindNextPeriod,
		Date:        next,
		WindowStart: next.AddDate(0, 0, -spread),
		WindowEnd:   next.AddDate(0, 0, spread),
		CycleDay:    s.Mean,
		Confidence:  p.Confidence(s),
		Sufficient:  true,
		ComputedAt:  asOf,
		ExpiresAt:   p.expiry(asOf, next),
	}
}

// ovulation sits LutealPhaseDays before the end of a mean-length cycle. The
// date is taken in the current projected cycle, or the following one when
// that ovulation already passed.
func (p *Predictor) ovulation(s model.CycleStats, next model.Prediction, asOf time.Time) model.Prediction {
	if !next.Sufficient {
		return p.empty(model.KindOvulation, asOf)
	}
	cycleDay := s.Mean - float64(p.cal.LutealPhaseDays)
	if cycleDay <= 0 {
		return p.empty(model.KindOvulation, asOf)
	}

	length := cycleDays(s)
	today := dateOnly(asOf)
	date := next.Date.AddDate(0, 0, -length+int(math.Round(cycleDay)))
	if date.Before(today) {
		date = date.AddDate(0, 0, length)
	}

	return model.Prediction{
		Kind:       model.KindOvulation,
		Date:       date,
		CycleDay:   cycleDay,
		Confidence: next.Confidence,
		Sufficient: true,
		ComputedAt: asOf,
		ExpiresAt:  p.expiry(asOf, date),
	}
}

func (p *Predictor) fertileWindow(ovulation model.Prediction, asOf time.Time) model.Prediction {
	if !ovulation.Sufficient {
		return p.empty(model.KindFertileWindow, asOf)
	}
	start := ovulation.Date.AddDate(0, 0, -p.cal.FertileDaysBefore)
	end := ovulation.Date.AddDate(0, 0, p.cal.FertileDaysAfter)
	return model.Prediction{
		Kind:        model.KindFertileWindow,
		Date:        start,
		WindowStart: start,
		WindowEnd:   end,
		CycleDay:    ovulation.CycleDay,
		Confidence:  ovulation.Confidence,
		Sufficient:  true,
		ComputedAt:  asOf,
		ExpiresAt:   p.expiry(asOf, end),
	}
}

func (p *Predictor) empty(kind model.PredictionKind, asOf time.Time) model.Prediction {
	return model.Prediction{
		Kind:       kind,
		ComputedAt: asOf,
		ExpiresAt:  asOf.Add(p.cal.PredictionFreshness),
	}
}

// expiry is the earlier of the freshness window and the end of the
// predicted day.
func (p *Predictor) expiry(asOf, date time.Time) time.Time {
	fresh := asOf.Add(p.cal.PredictionFreshness)
	passed := date.Add(day)
	if passed.Before(fresh) {
		return passed
	}
	return fresh
}

func cycleDays(s model.CycleStats) int {
	if s.Count == 0 {
		return 0
	}
	return int(math.Round(s.Mean))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}
