// Package analytics implements the closed-form statistics behind FlowSense:
// cycle aggregation, irregularity scoring, anomaly detection, predictions,
// health scoring and recommendations. Every component is a stateless value
// and safe for concurrent use.
package analytics

import "time"

// Default calibration constants. These are tuning parameters, not derived
// values, and can be overridden through options or configuration.
const (
	DefaultIrregularityNormalizer = 100.0 // variance in days² treated as fully irregular
	DefaultIrregularityHighTier   = 0.7
	DefaultIrregularityMediumTier = 0.4
	DefaultConfidenceFloor        = 0.3
	DefaultConfidenceCeiling      = 0.95
	DefaultLutealPhaseDays        = 14
	DefaultFertileDaysBefore      = 5
	DefaultFertileDaysAfter       = 1
	DefaultAnomalyThreshold       = 2.5
	DefaultAnomalyHighThreshold   = 3.0
	DefaultAnomalyMinSamples      = 5
	DefaultExpectedRangeSigma     = 2.0
	DefaultPredictionFreshness    = 24 * time.Hour
	DefaultHeartRateMin           = 60.0
	DefaultHeartRateMax           = 100.0
	DefaultHeartRateCenter        = 80.0
	DefaultHeartRateDecayPerBPM   = 0.5
	DefaultDailyStepTarget        = 10_000.0
	DefaultFactorMaxPoints        = 25.0
	DefaultTrendSlopeThreshold    = 0.5 // days per cycle
)

// zTolerance absorbs floating point noise when a z-score lands on a threshold.
const zTolerance = 1e-9

// Calibration carries every tuning constant used by the engine.
type Calibration struct {
	IrregularityNormalizer float64
	IrregularityHighTier   float64
	IrregularityMediumTier float64

	ConfidenceFloor   float64
	ConfidenceCeiling float64

	LutealPhaseDays   int
	FertileDaysBefore int
	FertileDaysAfter  int

	AnomalyThreshold     float64
	AnomalyHighThreshold float64
	AnomalyMinSamples    int
	ExpectedRangeSigma   float64

	PredictionFreshness time.Duration

	HeartRateMin         float64
	HeartRateMax         float64
	HeartRateCenter      float64
	HeartRateDecayPerBPM float64
	DailyStepTarget      float64
	FactorMaxPoints      float64

	TrendSlopeThreshold float64
}

// Option adjusts a Calibration. Invalid values are ignored.
type Option func(*Calibration)

// DefaultCalibration returns the stock calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		IrregularityNormalizer: DefaultIrregularityNormalizer,
		IrregularityHighTier:   DefaultIrregularityHighTier,
		IrregularityMediumTier: DefaultIrregularityMediumTier,
		ConfidenceFloor:        DefaultConfidenceFloor,
		ConfidenceCeiling:      DefaultConfidenceCeiling,
		LutealPhaseDays:        DefaultLutealPhaseDays,
		FertileDaysBefore:      DefaultFertileDaysBefore,
		FertileDaysAfter:       DefaultFertileDaysAfter,
		AnomalyThreshold:       DefaultAnomalyThreshold,
		AnomalyHighThreshold:   DefaultAnomalyHighThreshold,
		AnomalyMinSamples:      DefaultAnomalyMinSamples,
		ExpectedRangeSigma:     DefaultExpectedRangeSigma,
		PredictionFreshness:    DefaultPredictionFreshness,
		HeartRateMin:           DefaultHeartRateMin,
		HeartRateMax:           DefaultHeartRateMax,
		HeartRateCenter:        DefaultHeartRateCenter,
		HeartRateDecayPerBPM:   DefaultHeartRateDecayPerBPM,
		DailyStepTarget:        DefaultDailyStepTarget,
		FactorMaxPoints:        DefaultFactorMaxPoints,
		TrendSlopeThreshold:    DefaultTrendSlopeThreshold,
	}
}

// NewCalibration returns the defaults with opts applied.
func NewCalibration(opts ...Option) Calibration {
	c := DefaultCalibration()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithIrregularityNormalizer sets the variance mapped to a score of 1.
func WithIrregularityNormalizer(v float64) Option {
	return func(c *Calibration) {
		if v > 0 {
			c.IrregularityNormalizer = v
		}
	}
}

// WithIrregularityTiers sets the medium and high tier cut-offs.
func WithIrregularityTiers(medium, high float64) Option {
	return func(c *Calibration) {
		if medium >= 0 && high >= medium && high <= 1 {
			c.IrregularityMediumTier = medium
			c.IrregularityHighTier = high
		}
	}
}

// WithConfidenceBounds sets the prediction confidence clamp.
func WithConfidenceBounds(floor, ceiling float64) Option {
	return func(c *Calibration) {
		if floor >= 0 && ceiling <= 1 && floor <= ceiling {
			c.ConfidenceFloor = floor
			c.ConfidenceCeiling = ceiling
		}
	}
}

// WithLutealPhaseDays sets the assumed luteal phase length.
func WithLutealPhaseDays(days int) Option {
	return func(c *Calibration) {
		if days > 0 {
			c.LutealPhaseDays = days
		}
	}
}

// WithFertileWindow sets the days bracketing ovulation.
func WithFertileWindow(before, after int) Option {
	return func(c *Calibration) {
		if before >= 0 && after >= 0 {
			c.FertileDaysBefore = before
			c.FertileDaysAfter = after
		}
	}
}

// WithAnomalyThresholds sets the flag and high-severity z-score thresholds.
func WithAnomalyThresholds(flag, high float64) Option {
	return func(c *Calibration) {
		if flag > 0 && high >= flag {
			c.AnomalyThreshold = flag
			c.AnomalyHighThreshold = high
		}
	}
}

// WithAnomalyMinSamples sets the smallest group analysed for anomalies.
func WithAnomalyMinSamples(n int) Option {
	return func(c *Calibration) {
		if n >= 2 {
			c.AnomalyMinSamples = n
		}
	}
}

// WithExpectedRangeSigma sets the half-width of the reported expected range.
func WithExpectedRangeSigma(sigma float64) Option {
	return func(c *Calibration) {
		if sigma > 0 {
			c.ExpectedRangeSigma = sigma
		}
	}
}

// WithPredictionFreshness sets how long a prediction stays valid.
func WithPredictionFreshness(d time.Duration) Option {
	return func(c *Calibration) {
		if d > 0 {
			c.PredictionFreshness = d
		}
	}
}

// WithHeartRateBand sets the healthy band, its center and the decay outside it.
func WithHeartRateBand(minBPM, maxBPM, center, decayPerBPM float64) Option {
	return func(c *Calibration) {
		if minBPM < maxBPM && decayPerBPM >= 0 {
			c.HeartRateMin = minBPM
			c.HeartRateMax = maxBPM
			c.HeartRateCenter = center
			c.HeartRateDecayPerBPM = decayPerBPM
		}
	}
}

// WithDailyStepTarget sets the step count that earns full activity points.
func WithDailyStepTarget(steps float64) Option {
	return func(c *Calibration) {
		if steps > 0 {
			c.DailyStepTarget = steps
		}
	}
}

// WithTrendSlopeThreshold sets the slope under which cycles count as stable.
func WithTrendSlopeThreshold(daysPerCycle float64) Option {
	return func(c *Calibration) {
		if daysPerCycle >= 0 {
			c.TrendSlopeThreshold = daysPerCycle
		}
	}
}
