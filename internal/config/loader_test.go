package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/okian/flowsense/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.CacheBackend, convey.ShouldEqual, config.CacheMemory)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.IrregularityNormalizer, convey.ShouldEqual, 100)
				convey.So(cfg.ConfidenceFloor, convey.ShouldEqual, 0.3)
				convey.So(cfg.ConfidenceCeiling, convey.ShouldEqual, 0.95)
				convey.So(cfg.LutealPhaseDays, convey.ShouldEqual, 14)
				convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 5)
				convey.So(cfg.PredictionFreshness(), convey.ShouldEqual, 24*time.Hour)
				convey.So(cfg.CacheTTL(), convey.ShouldEqual, 6*time.Hour)
				convey.So(cfg.TrendSlopeThreshold, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FLOWSENSE_ADDR", ":8080")
			_ = os.Setenv("FLOWSENSE_QUEUE_SIZE", "50")
			_ = os.Setenv("FLOWSENSE_WORKER_COUNT", "3")
			_ = os.Setenv("FLOWSENSE_LUTEAL_PHASE_DAYS", "13")
			_ = os.Setenv("FLOWSENSE_CONFIDENCE_FLOOR", "0.25")
			_ = os.Setenv("FLOWSENSE_TREND_SLOPE_THRESHOLD", "1.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.LutealPhaseDays, convey.ShouldEqual, 13)
				convey.So(cfg.ConfidenceFloor, convey.ShouldEqual, 0.25)
				convey.So(cfg.TrendSlopeThreshold, convey.ShouldEqual, 1.5)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
store_driver: sqlite
sqlite_dsn: /tmp/flowsense-test.db
cache_backend: none
anomaly_threshold: 2.0
anomaly_high_threshold: 2.8
`)
			_ = os.Setenv("FLOWSENSE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLiteDSN, convey.ShouldEqual, "/tmp/flowsense-test.db")
				convey.So(cfg.CacheBackend, convey.ShouldEqual, config.CacheNone)
				convey.So(cfg.AnomalyThreshold, convey.ShouldEqual, 2.0)
				convey.So(cfg.AnomalyHighThreshold, convey.ShouldEqual, 2.8)
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("FLOWSENSE_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("FLOWSENSE_CONFIG", "/non/existent/flowsense.yaml")
			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an env var cannot be decoded", func() {
			_ = os.Setenv("FLOWSENSE_QUEUE_SIZE", "not_a_number")
			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When validation fails", func() {
			_ = os.Setenv("FLOWSENSE_STORE_DRIVER", "postgres")
			cfg, err := config.Load(ctx)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given default config", t, func() {
		cfg := config.New()
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown cache", func(c *config.Config) { c.CacheBackend = "memcached" }},
			{"redis without addr", func(c *config.Config) { c.CacheBackend = config.CacheRedis; c.RedisAddr = "" }},
			{"zero normalizer", func(c *config.Config) { c.IrregularityNormalizer = 0 }},
			{"inverted tiers", func(c *config.Config) { c.IrregularityMediumTier = 0.9 }},
			{"inverted confidence", func(c *config.Config) { c.ConfidenceFloor = 0.99 }},
			{"zero luteal", func(c *config.Config) { c.LutealPhaseDays = 0 }},
			{"inverted anomaly", func(c *config.Config) { c.AnomalyHighThreshold = 1 }},
			{"tiny sample floor", func(c *config.Config) { c.AnomalyMinSamples = 1 }},
			{"empty hr band", func(c *config.Config) { c.HeartRateMin = 120 }},
			{"zero step target", func(c *config.Config) { c.DailyStepTarget = 0 }},
			{"zero window", func(c *config.Config) { c.DefaultWindowDays = 0 }},
			{"zero freshness", func(c *config.Config) { c.PredictionFreshnessMinutes = 0 }},
		{"zero trend slope", func(c *config.Config) { c.TrendSlopeThreshold = 0 }},
			{"sqlite without dsn", func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.SQLiteDSN = "" }},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				c := config.New()
				tc.mutate(c)
				convey.So(errors.Is(c.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func clearConfigEnvVars() {
	for _, name := range []string{
		"FLOWSENSE_CONFIG",
		"FLOWSENSE_ADDR",
		"FLOWSENSE_QUEUE_SIZE",
		"FLOWSENSE_WORKER_COUNT",
		"FLOWSENSE_LUTEAL_PHASE_DAYS",
		"FLOWSENSE_CONFIDENCE_FLOOR",
		"FLOWSENSE_STORE_DRIVER",
	} {
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "flowsense-*.yaml")
	if err != nil {
		t.Fatalf("create temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	_ = f.Close()
	return f.Name()
}
