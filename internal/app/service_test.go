package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/flowsense/internal/adapters/cache"
	"github.com/okian/flowsense/internal/adapters/simulate"
	service "github.com/okian/flowsense/internal/app"
	"github.com/okian/flowsense/internal/config"
	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var now = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func startService(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(16),
		service.WithClock(clock),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func seedUser(ctx context.Context, svc *service.Service, userID string) simulate.Dataset {
	ds := simulate.New(7, simulate.WithCycles(8), simulate.WithDays(30)).Dataset(userID, simulate.Regular, now)
	for _, c := range ds.Cycles {
		_, err := svc.SaveCycle(ctx, c)
		So(err, ShouldBeNil)
	}
	saved, dup, err := svc.SaveSamples(ctx, userID, ds.Samples)
	So(err, ShouldBeNil)
	So(dup, ShouldEqual, 0)
	So(saved, ShouldHaveLength, len(ds.Samples))
	return ds
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then calls before Start fail", func() {
			_, err := svc.Insights(ctx, "u1", now.AddDate(0, 0, -7), now)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, ok := svc.EnqueueRefresh(ctx, "u1", now.AddDate(0, 0, -7), now)
			So(ok, ShouldBeFalse)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})

			Convey("Then it can be started again with fresh components", func() {
				So(svc.Start(ctx), ShouldBeNil)
				defer svc.Stop()
				_, err := svc.SaveCycle(ctx, model.CycleRecord{UserID: "u1", StartDate: now, CycleLength: 28})
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx)["cycles"], ShouldEqual, 1)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := config.New()
		cfg.LutealPhaseDays = 0
		svc := service.New(service.WithConfig(cfg))
		err := svc.Start(context.Background())
		So(errors.Is(err, service.ErrStart), ShouldBeTrue)
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestService_InsightsCache(t *testing.T) {
	Convey("Given a started service with a memory cache", t, func() {
		ctx := context.Background()
		reports := cache.NewMemory(cache.WithClock(clock))
		svc := startService(service.WithCache(reports))
		defer svc.Stop()
		seedUser(ctx, svc, "alice")
		start := now.AddDate(0, 0, -90)

		Convey("When the same window is requested twice", func() {
			first, err := svc.Insights(ctx, "alice", start, now)
			So(err, ShouldBeNil)
			second, err := svc.Insights(ctx, "alice", start, now)
			So(err, ShouldBeNil)

			Convey("Then the second report comes from the cache", func() {
				So(reports.Stats().Hits, ShouldEqual, 1)
				So(reports.Stats().Sets, ShouldEqual, 1)
				So(second.GeneratedAt, ShouldEqual, first.GeneratedAt)
				So(first.CycleStats.Count, ShouldBeGreaterThanOrEqualTo, 3)
				So(first.Predictions, ShouldNotBeEmpty)
				So(first.HealthScore.Factors, ShouldNotBeEmpty)
			})
		})

		Convey("When new data arrives between requests", func() {
			_, err := svc.Insights(ctx, "alice", start, now)
			So(err, ShouldBeNil)
			_, _, err = svc.SaveSamples(ctx, "alice", []model.BiometricSample{{
				ID: "late-1", Type: model.Steps, Value: 4000, Confidence: 1, Timestamp: now.Add(-time.Hour),
			}})
			So(err, ShouldBeNil)
			_, err = svc.Insights(ctx, "alice", start, now)
			So(err, ShouldBeNil)

			Convey("Then the report is recomputed", func() {
				So(reports.Stats().Hits, ShouldEqual, 0)
				So(reports.Stats().Sets, ShouldEqual, 2)
			})
		})

		Convey("When the window is inverted", func() {
			_, err := svc.Insights(ctx, "alice", now, start)
			So(err, ShouldNotBeNil)
		})

		Convey("When the other operations run", func() {
			p, err := svc.NextPeriod(ctx, "alice")
			So(err, ShouldBeNil)
			So(p.Kind, ShouldEqual, model.KindNextPeriod)
			So(p.Sufficient, ShouldBeTrue)

			hs, err := svc.HealthScore(ctx, "alice", now)
			So(err, ShouldBeNil)
			So(hs.Score, ShouldBeBetweenOrEqual, 0, 100)

			anomalies, err := svc.Anomalies(ctx, "alice", start, now)
			So(err, ShouldBeNil)
			for _, a := range anomalies {
				So(a.Severity, ShouldBeIn, model.SeverityMedium, model.SeverityHigh)
			}
		})
	})
}

func TestService_SampleDedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		batch := []model.BiometricSample{
			{ID: "s1", Type: model.HeartRate, Value: 72, Confidence: 1, Timestamp: now.Add(-2 * time.Hour)},
			{ID: "s2", Type: model.HeartRate, Value: 75, Confidence: 1, Timestamp: now.Add(-time.Hour)},
		}

		Convey("When a batch is uploaded twice", func() {
			saved, dup, err := svc.SaveSamples(ctx, "bob", batch)
			So(err, ShouldBeNil)
			So(saved, ShouldHaveLength, 2)
			So(dup, ShouldEqual, 0)

			saved, dup, err = svc.SaveSamples(ctx, "bob", batch)

			Convey("Then the retry stores nothing", func() {
				So(err, ShouldBeNil)
				So(saved, ShouldBeEmpty)
				So(dup, ShouldEqual, 2)
				So(svc.GetStats(ctx)["samples"], ShouldEqual, 2)
			})
		})

		Convey("When two users upload the same sample ids", func() {
			_, _, err := svc.SaveSamples(ctx, "alice", batch)
			So(err, ShouldBeNil)
			saved, dup, err := svc.SaveSamples(ctx, "bob", batch)

			Convey("Then both uploads are stored", func() {
				So(err, ShouldBeNil)
				So(saved, ShouldHaveLength, 2)
				So(dup, ShouldEqual, 0)
				So(svc.GetStats(ctx)["samples"], ShouldEqual, 4)
			})
		})

		Convey("When a batch fails validation", func() {
			bad := append([]model.BiometricSample{}, batch...)
			bad[1].Type = "mood"
			_, _, err := svc.SaveSamples(ctx, "bob", bad)
			So(errors.Is(err, model.ErrInvalidSample), ShouldBeTrue)

			Convey("Then its ids can be uploaded again", func() {
				saved, dup, err := svc.SaveSamples(ctx, "bob", batch)
				So(err, ShouldBeNil)
				So(saved, ShouldHaveLength, 2)
				So(dup, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Refresh(t *testing.T) {
	Convey("Given a started service with a memory cache", t, func() {
		ctx := context.Background()
		reports := cache.NewMemory(cache.WithClock(clock))
		svc := startService(service.WithCache(reports))
		defer svc.Stop()
		seedUser(ctx, svc, "carol")

		Convey("When a refresh is enqueued", func() {
			job, ok := svc.EnqueueRefresh(ctx, "carol", now.AddDate(0, 0, -30), now)
			So(ok, ShouldBeTrue)
			So(job.JobID, ShouldNotBeEmpty)
			So(job.RequestedAt, ShouldEqual, now)

			Convey("Then a worker warms the cache", func() {
				deadline := time.Now().Add(5 * time.Second)
				for reports.Stats().Sets == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(reports.Stats().Sets, ShouldEqual, 1)

				_, err := svc.Insights(ctx, "carol", now.AddDate(0, 0, -30), now)
				So(err, ShouldBeNil)
				So(reports.Stats().Hits, ShouldEqual, 1)
			})
		})
	})
}

func TestService_DemoAndSQLite(t *testing.T) {
	Convey("Given a sqlite-backed service with demo users", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLiteDSN = filepath.Join(t.TempDir(), "flowsense.db")
		cfg.CacheBackend = config.CacheNone
		svc := startService(service.WithConfig(cfg), service.WithDemoUsers(3))
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then the simulated users are stored", func() {
			stats := svc.GetStats(ctx)
			So(stats["store"], ShouldEqual, config.StoreSQLite)
			So(stats["cacheBackend"], ShouldEqual, cache.BackendNone)
			So(stats["users"], ShouldEqual, 3)

			report, err := svc.Insights(ctx, simulate.UserID(1), now.AddDate(0, 0, -90), now)
			So(err, ShouldBeNil)
			So(report.CycleStats.Count, ShouldBeGreaterThan, 0)
		})
	})
}
