package seed_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/flowsense/internal/adapters/http/api"
	"github.com/okian/flowsense/internal/adapters/simulate"
	service "github.com/okian/flowsense/internal/app"
	"github.com/okian/flowsense/internal/seed"
	"github.com/okian/flowsense/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var end = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func TestRun(t *testing.T) {
	Convey("Given a running FlowSense server", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(api.NewServer(svc).Handler())
		defer srv.Close()

		cfg := seed.Config{
			BaseURL:   srv.URL,
			Users:     3,
			Cycles:    4,
			Days:      10,
			BatchSize: 20,
			Seed:      99,
			Workers:   2,
			End:       end,
		}

		gen := simulate.New(cfg.Seed, simulate.WithCycles(cfg.Cycles), simulate.WithDays(cfg.Days))
		var wantCycles, wantSamples int
		for i := range cfg.Users {
			ds := gen.Dataset(simulate.UserID(i), simulate.ProfileFor(i), end)
			wantCycles += len(ds.Cycles)
			wantSamples += len(ds.Samples)
		}

		Convey("When seeding", func() {
			stats, err := seed.Run(context.Background(), cfg)

			Convey("Then every simulated record is posted and each user has a report", func() {
				So(err, ShouldBeNil)
				So(stats.UsersSeeded, ShouldEqual, 3)
				So(stats.CyclesPosted, ShouldEqual, wantCycles)
				So(stats.SamplesAccepted, ShouldEqual, wantSamples)
				So(stats.SamplesDuplicate, ShouldEqual, 0)
				So(stats.ReportsFetched, ShouldEqual, 3)

				served := svc.GetStats(context.Background())
				So(served["users"], ShouldEqual, 3)
				So(served["samples"], ShouldEqual, wantSamples)
			})

			Convey("And seeding again with the same seed only yields duplicates", func() {
				again, err := seed.Run(context.Background(), cfg)
				So(err, ShouldBeNil)
				So(again.SamplesAccepted, ShouldEqual, 0)
				So(again.SamplesDuplicate, ShouldEqual, wantSamples)
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	Convey("Given misconfigured or failing servers", t, func() {
		ctx := context.Background()

		Convey("When no base url is set", func() {
			_, err := seed.Run(ctx, seed.Config{})
			So(errors.Is(err, seed.ErrMissingBaseURL), ShouldBeTrue)
		})

		Convey("When the health check fails", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			_, err := seed.Run(ctx, seed.Config{BaseURL: srv.URL, Users: 1})
			So(errors.Is(err, seed.ErrUnhealthy), ShouldBeTrue)
		})

		Convey("When ingestion is rejected", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			mux.HandleFunc("POST /v1/users/{userID}/cycles", func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			stats, err := seed.Run(ctx, seed.Config{BaseURL: srv.URL, Users: 2, Cycles: 2, Days: 2, End: end})
			So(errors.Is(err, seed.ErrUnexpectedCode), ShouldBeTrue)
			So(stats.UsersSeeded, ShouldEqual, 0)
		})
	})
}

func TestShowHelp(t *testing.T) {
	Convey("Given the help text", t, func() {
		var buf bytes.Buffer
		seed.ShowHelp(&buf)
		So(buf.String(), ShouldContainSubstring, "-users")
		So(buf.String(), ShouldContainSubstring, "-seed")
	})
}
