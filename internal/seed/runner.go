package seed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/flowsense/internal/adapters/simulate"
	"github.com/okian/flowsense/pkg/logger"
)

// counters are shared by the per-user goroutines.
type counters struct {
	users     atomic.Int64
	cycles    atomic.Int64
	accepted  atomic.Int64
	duplicate atomic.Int64
	reports   atomic.Int64
	anomalies atomic.Int64
}

// Run seeds cfg.Users simulated users and fetches their insights. The first
// failing request cancels the run.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	if cfg.BaseURL == "" {
		return Stats{}, ErrMissingBaseURL
	}
	cfg = cfg.withDefaults()
	stats := Stats{StartTime: time.Now()}
	log := logger.Named("seed")

	log.Info(ctx, "starting flowsense seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("cycles", cfg.Cycles),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := simulate.New(cfg.Seed, simulate.WithCycles(cfg.Cycles), simulate.WithDays(cfg.Days))
	var n counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Users {
		g.Go(func() error {
			return seedUser(gctx, c, gen, cfg, i, &n, log)
		})
	}
	err := g.Wait()

	stats.UsersSeeded = int(n.users.Load())
	stats.CyclesPosted = int(n.cycles.Load())
	stats.SamplesAccepted = int(n.accepted.Load())
	stats.SamplesDuplicate = int(n.duplicate.Load())
	stats.ReportsFetched = int(n.reports.Load())
	stats.AnomaliesFound = int(n.anomalies.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if err != nil {
		return stats, err
	}
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func seedUser(ctx context.Context, c *client, gen *simulate.Generator, cfg Config, i int, n *counters, log logger.Logger) error {
	userID := simulate.UserID(i)
	ds := gen.Dataset(userID, simulate.ProfileFor(i), cfg.End)
	ctx = logger.WithUserID(ctx, userID)

	for _, rec := range ds.Cycles {
		if err := c.postCycle(ctx, rec); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		n.cycles.Add(1)
	}

	for lo := 0; lo < len(ds.Samples); lo += cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, len(ds.Samples))
		accepted, dups, err := c.postSamples(ctx, userID, ds.Samples[lo:hi])
		if err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		n.accepted.Add(int64(accepted))
		n.duplicate.Add(int64(dups))
	}

	start := cfg.End.AddDate(0, 0, -cfg.Days)
	report, err := c.insights(ctx, userID, start, cfg.End)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	n.reports.Add(1)
	n.anomalies.Add(int64(len(report.Anomalies)))
	n.users.Add(1)

	if cfg.Verbose {
		log.Info(ctx, "user seeded",
			logger.String("profile", ds.Profile.Name),
			logger.Int("cycles", len(ds.Cycles)),
			logger.Int("samples", len(ds.Samples)),
			logger.Float64("healthScore", report.HealthScore.Score),
			logger.String("category", string(report.Category)),
			logger.Int("anomalies", len(report.Anomalies)))
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats Stats) {
	var samplesPerSecond float64
	if stats.Duration > 0 {
		samplesPerSecond = float64(stats.SamplesAccepted+stats.SamplesDuplicate) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("usersSeeded", stats.UsersSeeded),
		logger.Int("cyclesPosted", stats.CyclesPosted),
		logger.Int("samplesAccepted", stats.SamplesAccepted),
		logger.Int("samplesDuplicate", stats.SamplesDuplicate),
		logger.Int("reportsFetched", stats.ReportsFetched),
		logger.Int("anomaliesFound", stats.AnomaliesFound),
		logger.Duration("duration", stats.Duration),
		logger.Float64("samplesPerSecond", samplesPerSecond))
}
