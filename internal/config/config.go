// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat koanf keys so every field maps to one FLOWSENSE_* variable.
// - New() returns a Config with defaults; Load layers file and env on top.
// - Calibration keys mirror analytics.Calibration one to one.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the record store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// SQLiteDSN is the database path used when StoreDriver is sqlite.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// CacheBackend selects the report cache: memory, redis or none.
	CacheBackend    string `koanf:"cache_backend"`
	CacheSize       int    `koanf:"cache_size"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	RedisKeyPrefix  string `koanf:"redis_key_prefix"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the refresh job queue.
	QueueSize int `koanf:"queue_size"`
	// DedupeSize bounds the remembered sample ids.
	DedupeSize int `koanf:"dedupe_size"`
	// DemoUsers seeds the store with simulated users at startup.
	DemoUsers int `koanf:"demo_users"`

	// DefaultWindowDays is the report window when a request names none.
	DefaultWindowDays int `koanf:"default_window_days"`
	// HistoryWindowDays is the cycle lookback for next-period predictions.
	HistoryWindowDays int `koanf:"history_window_days"`

	// Calibration constants.
	IrregularityNormalizer     float64 `koanf:"irregularity_normalizer"`
	IrregularityHighTier       float64 `koanf:"irregularity_high_tier"`
	IrregularityMediumTier     float64 `koanf:"irregularity_medium_tier"`
	ConfidenceFloor            float64 `koanf:"confidence_floor"`
	ConfidenceCeiling          float64 `koanf:"confidence_ceiling"`
	LutealPhaseDays            int     `koanf:"luteal_phase_days"`
	FertileDaysBefore          int     `koanf:"fertile_days_before"`
	FertileDaysAfter           int     `koanf:"fertile_days_after"`
	AnomalyThreshold           float64 `koanf:"anomaly_threshold"`
	AnomalyHighThreshold       float64 `koanf:"anomaly_high_threshold"`
	AnomalyMinSamples          int     `koanf:"anomaly_min_samples"`
	ExpectedRangeSigma         float64 `koanf:"expected_range_sigma"`
	PredictionFreshnessMinutes int     `koanf:"prediction_freshness_minutes"`
	HeartRateMin               float64 `koanf:"heart_rate_min"`
	HeartRateMax               float64 `koanf:"heart_rate_max"`
	HeartRateCenter            float64 `koanf:"heart_rate_center"`
	HeartRateDecayPerBPM       float64 `koanf:"heart_rate_decay_per_bpm"`
	DailyStepTarget            float64 `koanf:"daily_step_target"`
	HealthWindowDays           int     `koanf:"health_window_days"`
	TrendSlopeThreshold        float64 `koanf:"trend_slope_threshold"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",

		StoreDriver: StoreMemory,
		SQLiteDSN:   "flowsense.db",

		CacheBackend:    CacheMemory,
		CacheSize:       10_000,
		CacheTTLSeconds: 6 * 60 * 60,
		RedisAddr:       "localhost:6379",
		RedisKeyPrefix:  "flowsense:report:",

		WorkerCount: runtime.NumCPU(),
		QueueSize:   1_000,
		DedupeSize:  100_000,

		DefaultWindowDays: 90,
		HistoryWindowDays: 365,

		IrregularityNormalizer:     100,
		IrregularityHighTier:       0.7,
		IrregularityMediumTier:     0.4,
		ConfidenceFloor:            0.3,
		ConfidenceCeiling:          0.95,
		LutealPhaseDays:            14,
		FertileDaysBefore:          5,
		FertileDaysAfter:           1,
		AnomalyThreshold:           2.5,
		AnomalyHighThreshold:       3.0,
		AnomalyMinSamples:          5,
		ExpectedRangeSigma:         2,
		PredictionFreshnessMinutes: 24 * 60,
		HeartRateMin:               60,
		HeartRateMax:               100,
		HeartRateCenter:            80,
		HeartRateDecayPerBPM:       0.5,
		DailyStepTarget:            10_000,
		HealthWindowDays:           7,
		TrendSlopeThreshold:        0.5,
	}
}

// CacheTTL returns the report cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// PredictionFreshness returns the prediction freshness window as a duration.
func (c *Config) PredictionFreshness() time.Duration {
	return time.Duration(c.PredictionFreshnessMinutes) * time.Minute
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.SQLiteDSN == "":
		return fmt.Errorf("%w: sqlite_dsn is required for the sqlite store", ErrInvalidConfig)
	case c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis && c.CacheBackend != CacheNone:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	case c.CacheBackend == CacheRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis cache", ErrInvalidConfig)
	case c.IrregularityNormalizer <= 0:
		return fmt.Errorf("%w: irregularity_normalizer must be positive", ErrInvalidConfig)
	case c.IrregularityMediumTier > c.IrregularityHighTier:
		return fmt.Errorf("%w: irregularity tiers are inverted", ErrInvalidConfig)
	case c.ConfidenceFloor < 0 || c.ConfidenceCeiling > 1 || c.ConfidenceFloor > c.ConfidenceCeiling:
		return fmt.Errorf("%w: confidence bounds must satisfy 0 <= floor <= ceiling <= 1", ErrInvalidConfig)
	case c.LutealPhaseDays <= 0:
		return fmt.Errorf("%w: luteal_phase_days must be positive", ErrInvalidConfig)
	case c.AnomalyThreshold <= 0 || c.AnomalyHighThreshold < c.AnomalyThreshold:
		return fmt.Errorf("%w: anomaly thresholds must satisfy 0 < threshold <= high", ErrInvalidConfig)
	case c.AnomalyMinSamples < 2:
		return fmt.Errorf("%w: anomaly_min_samples must be at least 2", ErrInvalidConfig)
	case c.HeartRateMin >= c.HeartRateMax:
		return fmt.Errorf("%w: heart rate band is empty", ErrInvalidConfig)
	case c.DailyStepTarget <= 0:
		return fmt.Errorf("%w: daily_step_target must be positive", ErrInvalidConfig)
	case c.DefaultWindowDays <= 0 || c.HistoryWindowDays <= 0 || c.HealthWindowDays <= 0:
		return fmt.Errorf("%w: window sizes must be positive", ErrInvalidConfig)
	case c.PredictionFreshnessMinutes <= 0:
		return fmt.Errorf("%w: prediction_freshness_minutes must be positive", ErrInvalidConfig)
	case c.TrendSlopeThreshold <= 0:
		return fmt.Errorf("%w: trend_slope_threshold must be positive", ErrInvalidConfig)
	}
	return nil
}
