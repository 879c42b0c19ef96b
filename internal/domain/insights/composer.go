// Package insights composes the analytics components into per-user reports.
package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/flowsense/internal/domain/analytics"
	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
	"github.com/okian/flowsense/pkg/metrics"
)

// Default composer windows.
const (
	defaultHistoryWindow = 365 * 24 * time.Hour
	defaultHealthWindow  = 7 * 24 * time.Hour
)

// healthTypes are the sample types the health score reads.
var healthTypes = []model.BiometricType{model.HeartRate, model.RestingHeartRate, model.Steps}

// DataSource is the storage collaborator the composer reads from. Records
// are returned ordered by date; the composer never writes.
type DataSource interface {
	CyclesInRange(ctx context.Context, userID string, start, end time.Time) ([]model.CycleRecord, error)
	BiometricSamples(ctx context.Context, userID string, start, end time.Time, types ...model.BiometricType) ([]model.BiometricSample, error)
}

// Composer runs the analytics pipeline over data pulled from a DataSource.
// It holds no per-call state and is safe for concurrent use.
type Composer struct {
	source DataSource
	cal    analytics.Calibration
	rules  []analytics.Rule

	detector    *analytics.Detector
	predictor   *analytics.Predictor
	scorer      *analytics.HealthScorer
	recommender *analytics.Recommender

	now           func() time.Time
	historyWindow time.Duration
	healthWindow  time.Duration

	logger logger.Logger
}

// Option applies a configuration option to the Composer.
type Option func(*Composer)

// WithCalibration sets the tuning constants used by every component.
func WithCalibration(cal analytics.Calibration) Option {
	return func(c *Composer) {
		c.cal = cal
	}
}

// WithRules replaces the default recommendation rule table.
func WithRules(rules ...analytics.Rule) Option {
	return func(c *Composer) {
		if len(rules) > 0 {
			c.rules = rules
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHistoryWindow sets how far back PredictNextCycle looks for cycles.
func WithHistoryWindow(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.historyWindow = d
		}
	}
}

// WithHealthWindow sets the sample window behind CalculateHealthScore.
func WithHealthWindow(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.healthWindow = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Composer reading from source.
func New(source DataSource, opts ...Option) (*Composer, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	c := &Composer{
		source:        source,
		cal:           analytics.DefaultCalibration(),
		now:           time.Now,
		historyWindow: defaultHistoryWindow,
		healthWindow:  defaultHealthWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("insights")
	}

	c.detector = analytics.NewDetector(c.cal)
	c.predictor = analytics.NewPredictor(c.cal)
	c.scorer = analytics.NewHealthScorer(c.cal)
	c.recommender = analytics.NewRecommender(c.cal, c.rules...)
	return c, nil
}

// ComputeInsights pulls the window's cycles and samples and assembles the
// full report. Equal inputs produce equal reports apart from GeneratedAt.
func (c *Composer) ComputeInsights(ctx context.Context, userID string, start, end time.Time) (model.InsightsReport, error) {
	if err := validate(userID, start, end); err != nil {
		return model.InsightsReport{}, err
	}
	began := time.Now()

	var (
		cycles  []model.CycleRecord
		samples []model.BiometricSample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cycles, err = c.source.CyclesInRange(gctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("fetch cycles: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		samples, err = c.source.BiometricSamples(gctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("fetch samples: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("insights", "fetch")
		return model.InsightsReport{}, err
	}

	now := c.now()
	asOf := end
	if now.Before(asOf) {
		asOf = now
	}

	stats := analytics.AggregateCycles(cycles)
	irregularity := analytics.ScoreIrregularity(stats.Variance, c.cal)
	trend := analytics.CycleTrend(cycles, c.cal)
	predictions := c.predictor.Predict(stats, asOf)
	anomalies := c.detector.Detect(samples)
	health := c.scorer.Score(samples, asOf)
	recs := c.recommender.Recommend(analytics.Findings{
		Stats:        stats,
		Irregularity: irregularity,
		Trend:        trend,
		Anomalies:    anomalies,
		Health:       health,
		Predictions:  predictions,
	})

	report := model.InsightsReport{
		UserID:          userID,
		WindowStart:     start,
		WindowEnd:       end,
		GeneratedAt:     now,
		CycleStats:      stats,
		Irregularity:    irregularity,
		Trend:           trend,
		Predictions:     predictions,
		Anomalies:       anomalies,
		HealthScore:     health,
		Recommendations: recs,
		Category:        model.CategoryForScore(health.Score),
	}

	observe(report)
	metrics.RecordComputationLatency("compute_insights", msSince(began))
	c.logger.Debug(ctx, "insights computed",
		logger.String("user_id", userID),
		logger.Int("cycles", len(cycles)),
		logger.Int("samples", len(samples)),
		logger.Int("anomalies", len(anomalies)),
		logger.Float64("score", health.Score),
	)
	return report, nil
}

// DetectAnomalies runs only the anomaly detector over the window's samples.
func (c *Composer) DetectAnomalies(ctx context.Context, userID string, start, end time.Time) ([]model.Anomaly, error) {
	if err := validate(userID, start, end); err != nil {
		return nil, err
	}
	began := time.Now()

	samples, err := c.source.BiometricSamples(ctx, userID, start, end)
	if err != nil {
		metrics.RecordErrorByComponent("insights", "fetch")
		return nil, fmt.Errorf("fetch samples: %w", err)
	}
	anomalies := c.detector.Detect(samples)
	for _, a := range anomalies {
		metrics.RecordAnomaly(string(a.Type), string(a.Severity))
	}
	metrics.RecordComputationLatency("detect_anomalies", msSince(began))
	return anomalies, nil
}

// PredictNextCycle projects the next period from the cycles of the history
// window ending now.
func (c *Composer) PredictNextCycle(ctx context.Context, userID string) (model.Prediction, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Prediction{}, ErrInvalidUser
	}
	began := time.Now()

	now := c.now()
	cycles, err := c.source.CyclesInRange(ctx, userID, now.Add(-c.historyWindow), now)
	if err != nil {
		metrics.RecordErrorByComponent("insights", "fetch")
		return model.Prediction{}, fmt.Errorf("fetch cycles: %w", err)
	}
	p := c.predictor.NextPeriod(analytics.AggregateCycles(cycles), now)
	metrics.RecordPrediction(string(p.Kind), p.Sufficient)
	metrics.RecordComputationLatency("predict_next_cycle", msSince(began))
	return p, nil
}

// CalculateHealthScore scores the health window ending at asOf, or now when
// asOf is zero.
func (c *Composer) CalculateHealthScore(ctx context.Context, userID string, asOf time.Time) (model.HealthScoreResult, error) {
	if strings.TrimSpace(userID) == "" {
		return model.HealthScoreResult{}, ErrInvalidUser
	}
	began := time.Now()
	if asOf.IsZero() {
		asOf = c.now()
	}

	samples, err := c.source.BiometricSamples(ctx, userID, asOf.Add(-c.healthWindow), asOf, healthTypes...)
	if err != nil {
		metrics.RecordErrorByComponent("insights", "fetch")
		return model.HealthScoreResult{}, fmt.Errorf("fetch samples: %w", err)
	}
	r := c.scorer.Score(samples, asOf)
	if len(r.Factors) > 0 {
		metrics.RecordHealthScore(r.Score)
	}
	metrics.RecordComputationLatency("calculate_health_score", msSince(began))
	return r, nil
}

func validate(userID string, start, end time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return fmt.Errorf("%w: [%s, %s]", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func observe(r model.InsightsReport) {
	for _, a := range r.Anomalies {
		metrics.RecordAnomaly(string(a.Type), string(a.Severity))
	}
	for _, p := range r.Predictions {
		metrics.RecordPrediction(string(p.Kind), p.Sufficient)
	}
	if len(r.HealthScore.Factors) > 0 {
		metrics.RecordHealthScore(r.HealthScore.Score)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
