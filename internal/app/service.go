// Package service wires storage, caching, the analytics engine and the
// refresh workers behind the dependencies the HTTP API needs.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/flowsense/internal/adapters/cache"
	"github.com/okian/flowsense/internal/adapters/mq/queue"
	"github.com/okian/flowsense/internal/adapters/mq/worker"
	"github.com/okian/flowsense/internal/adapters/repository"
	"github.com/okian/flowsense/internal/config"
	"github.com/okian/flowsense/internal/domain/analytics"
	"github.com/okian/flowsense/internal/domain/dedupe"
	"github.com/okian/flowsense/internal/domain/insights"
	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
	"github.com/okian/flowsense/pkg/metrics"
)

const (
	shutdownTimeout = 30 * time.Second
	day             = 24 * time.Hour
)

// Service implements the API dependencies for the analytics engine.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config
	now func() time.Time

	store    repository.Store
	cache    cache.ReportCache
	composer *insights.Composer
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// ownStore and ownCache mark components built from the configuration.
	// Only those are closed on Stop; injected ones belong to the caller.
	ownStore bool
	ownCache bool

	started  bool
	stopping bool
	cancel   context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the configured components and starts the refresh workers.
func (s *Service) Start(ctx context.Context) error {
	if err := s.start(ctx); err != nil {
		return err
	}
	if s.cfg.DemoUsers > 0 {
		if err := s.seedDemo(ctx, s.cfg.DemoUsers); err != nil {
			s.logger.Warn(ctx, "demo seeding failed", logger.Error(err))
		}
	}
	return nil
}

func (s *Service) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting analytics service...")

	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	if err := s.buildComponents(ctx); err != nil {
		s.closeComponents(ctx)
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	s.started = true

	s.logger.Info(ctx, "analytics service started",
		logger.String("store", s.cfg.StoreDriver),
		logger.String("cache", s.cache.Backend()),
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
	)
	return nil
}

func (s *Service) buildComponents(ctx context.Context) error {
	if s.store == nil {
		store, err := openStore(ctx, s.cfg)
		if err != nil {
			return err
		}
		s.store = store
		s.ownStore = true
	}
	if s.cache == nil {
		c, err := openCache(ctx, s.cfg, s.now)
		if err != nil {
			return err
		}
		s.cache = c
		s.ownCache = true
	}

	composer, err := insights.New(s.store,
		insights.WithCalibration(calibrationFrom(s.cfg)),
		insights.WithClock(s.now),
		insights.WithHistoryWindow(time.Duration(s.cfg.HistoryWindowDays)*day),
		insights.WithHealthWindow(time.Duration(s.cfg.HealthWindowDays)*day),
	)
	if err != nil {
		return fmt.Errorf("create composer: %w", err)
	}
	s.composer = composer

	deduper, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	if err != nil {
		return err
	}
	s.deduper = deduper

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return repository.NewSQLiteStore(ctx, cfg.SQLiteDSN)
	default:
		return repository.NewMemoryStore(), nil
	}
}

func openCache(ctx context.Context, cfg *config.Config, now func() time.Time) (cache.ReportCache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cache.NewRedis(ctx, cache.RedisConfig{
			Address:         cfg.RedisAddr,
			Password:        cfg.RedisPassword,
			DB:              cfg.RedisDB,
			KeyPrefix:       cfg.RedisKeyPrefix,
			FallbackOnError: true,
		})
	case config.CacheNone:
		return cache.NewNoop(), nil
	default:
		return cache.NewMemory(
			cache.WithSize(cfg.CacheSize),
			cache.WithMaxTTL(cfg.CacheTTL()),
			cache.WithClock(now),
		), nil
	}
}

func calibrationFrom(cfg *config.Config) analytics.Calibration {
	return analytics.NewCalibration(
		analytics.WithIrregularityNormalizer(cfg.IrregularityNormalizer),
		analytics.WithIrregularityTiers(cfg.IrregularityMediumTier, cfg.IrregularityHighTier),
		analytics.WithConfidenceBounds(cfg.ConfidenceFloor, cfg.ConfidenceCeiling),
		analytics.WithLutealPhaseDays(cfg.LutealPhaseDays),
		analytics.WithFertileWindow(cfg.FertileDaysBefore, cfg.FertileDaysAfter),
		analytics.WithAnomalyThresholds(cfg.AnomalyThreshold, cfg.AnomalyHighThreshold),
		analytics.WithAnomalyMinSamples(cfg.AnomalyMinSamples),
		analytics.WithExpectedRangeSigma(cfg.ExpectedRangeSigma),
		analytics.WithPredictionFreshness(cfg.PredictionFreshness()),
		analytics.WithHeartRateBand(cfg.HeartRateMin, cfg.HeartRateMax, cfg.HeartRateCenter, cfg.HeartRateDecayPerBPM),
		analytics.WithDailyStepTarget(cfg.DailyStepTarget),
		analytics.WithTrendSlopeThreshold(cfg.TrendSlopeThreshold),
	)
}

// Stop drains the refresh queue and releases the storage and cache it
// built. Workers keep serving refreshes until the queue is empty. A
// stopped service can be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool := s.pool
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping analytics service...")

	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.closeComponents(ctx)
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "analytics service stopped")
}

func (s *Service) closeComponents(ctx context.Context) {
	if s.ownCache && s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn(ctx, "close cache", logger.Error(err))
		}
		s.cache = nil
		s.ownCache = false
	}
	if s.ownStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "close store", logger.Error(err))
		}
		s.store = nil
		s.ownStore = false
	}
	s.deduper = nil
	s.composer = nil
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Insights returns the report for the window, from the cache when the
// user's data has not changed since it was computed.
func (s *Service) Insights(ctx context.Context, userID string, start, end time.Time) (model.InsightsReport, error) {
	if err := s.running(); err != nil {
		return model.InsightsReport{}, err
	}
	key, err := s.cacheKey(ctx, userID, start, end)
	if err != nil {
		return model.InsightsReport{}, err
	}
	if report, ok := s.cache.Get(ctx, key); ok {
		metrics.RecordReportComputed("cached")
		return report, nil
	}
	return s.compute(ctx, key)
}

// Refresh recomputes the job's report and stores it in the cache. It is
// called by the worker pool.
func (s *Service) Refresh(ctx context.Context, job model.RefreshJob) error {
	if err := s.running(); err != nil {
		return err
	}
	key, err := s.cacheKey(ctx, job.UserID, job.Start, job.End)
	if err != nil {
		return err
	}
	_, err = s.compute(ctx, key)
	return err
}

func (s *Service) cacheKey(ctx context.Context, userID string, start, end time.Time) (cache.Key, error) {
	version, err := s.store.Version(ctx, userID)
	if err != nil {
		return cache.Key{}, fmt.Errorf("read data version: %w", err)
	}
	return cache.Key{UserID: userID, Start: start.UTC(), End: end.UTC(), Version: version}, nil
}

func (s *Service) compute(ctx context.Context, key cache.Key) (model.InsightsReport, error) {
	report, err := s.composer.ComputeInsights(ctx, key.UserID, key.Start, key.End)
	if err != nil {
		metrics.RecordReportComputed("error")
		return model.InsightsReport{}, err
	}
	metrics.RecordReportComputed("computed")

	if ttl := s.reportTTL(report); ttl > 0 {
		if err := s.cache.Set(ctx, key, report, ttl); err != nil {
			s.logger.Warn(ctx, "cache report", logger.Error(err))
		}
	}
	return report, nil
}

// reportTTL caps the configured TTL at the earliest prediction expiry.
func (s *Service) reportTTL(r model.InsightsReport) time.Duration {
	ttl := s.cfg.CacheTTL()
	if exp := r.ExpiresAt(); !exp.IsZero() {
		ttl = min(ttl, exp.Sub(s.now()))
	}
	return ttl
}

// Anomalies runs anomaly detection over the window.
func (s *Service) Anomalies(ctx context.Context, userID string, start, end time.Time) ([]model.Anomaly, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.composer.DetectAnomalies(ctx, userID, start, end)
}

// NextPeriod predicts the user's next period.
func (s *Service) NextPeriod(ctx context.Context, userID string) (model.Prediction, error) {
	if err := s.running(); err != nil {
		return model.Prediction{}, err
	}
	return s.composer.PredictNextCycle(ctx, userID)
}

// HealthScore scores the health window ending at asOf.
func (s *Service) HealthScore(ctx context.Context, userID string, asOf time.Time) (model.HealthScoreResult, error) {
	if err := s.running(); err != nil {
		return model.HealthScoreResult{}, err
	}
	return s.composer.CalculateHealthScore(ctx, userID, asOf)
}

// SaveCycle stores a cycle record.
func (s *Service) SaveCycle(ctx context.Context, rec model.CycleRecord) (model.CycleRecord, error) {
	if err := s.running(); err != nil {
		return model.CycleRecord{}, err
	}
	saved, err := s.store.SaveCycle(ctx, rec)
	if err != nil {
		return model.CycleRecord{}, fmt.Errorf("save cycle: %w", err)
	}
	metrics.RecordIngested("cycle", 1)
	return saved, nil
}

// SaveSamples stores samples whose id has not been seen before. Samples
// without an id are always stored. A failed write forgets the ids it
// recorded so the upload can be retried.
func (s *Service) SaveSamples(ctx context.Context, userID string, samples []model.BiometricSample) ([]model.BiometricSample, int, error) {
	if err := s.running(); err != nil {
		return nil, 0, err
	}

	fresh := make([]model.BiometricSample, 0, len(samples))
	recorded := make([]string, 0, len(samples))
	duplicates := 0
	for _, smp := range samples {
		if smp.ID != "" {
			key := dedupeKey(userID, smp.ID)
			if s.deduper.SeenAndRecord(ctx, key) {
				duplicates++
				metrics.RecordIngestDuplicate()
				continue
			}
			recorded = append(recorded, key)
		}
		fresh = append(fresh, smp)
	}
	if len(fresh) == 0 {
		return []model.BiometricSample{}, duplicates, nil
	}

	saved, err := s.store.SaveSamples(ctx, userID, fresh)
	if err != nil {
		for _, key := range recorded {
			s.deduper.Unrecord(ctx, key)
		}
		return nil, 0, fmt.Errorf("save samples: %w", err)
	}
	metrics.RecordIngested("sample", len(saved))
	return saved, duplicates, nil
}

// dedupeKey scopes a client-supplied sample id to its user.
func dedupeKey(userID, sampleID string) string {
	return userID + "\x00" + sampleID
}

// EnqueueRefresh schedules a background recomputation of the window's
// report. Returns false when the queue is full or the service is stopped.
func (s *Service) EnqueueRefresh(ctx context.Context, userID string, start, end time.Time) (model.RefreshJob, bool) {
	if s.running() != nil {
		return model.RefreshJob{}, false
	}
	job := model.RefreshJob{
		JobID:       uuid.NewString(),
		UserID:      userID,
		Start:       start.UTC(),
		End:         end.UTC(),
		RequestedAt: s.now().UTC(),
	}
	if !s.queue.Enqueue(ctx, job) {
		return model.RefreshJob{}, false
	}
	s.logger.Debug(ctx, "refresh enqueued", logger.String("job_id", job.JobID))
	return job, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"store":       s.cfg.StoreDriver,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["workers"] = s.pool.Stats()
	stats["cacheBackend"] = s.cache.Backend()
	stats["cache"] = s.cache.Stats()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store counts", logger.Error(err))
		return stats
	}
	stats["users"] = counts.Users
	stats["cycles"] = counts.Cycles
	stats["samples"] = counts.Samples
	return stats
}
