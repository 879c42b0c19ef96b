package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "flowsense")
				So(manager.subsystem, ShouldEqual, "analytics")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithMetricPrefix("test"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.reportsComputed.WithLabelValues("computed").Inc()

			Convey("Then names carry the namespace and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "test_ns_test_sub_test_reports_computed_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithCustomLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, defaultNamespace)
				So(manager.subsystem, ShouldEqual, defaultSubsystem)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording engine metrics", func() {
			before := testutil.ToFloat64(globalManager.anomaliesDetected.WithLabelValues("heart_rate", "high"))
			RecordAnomaly("heart_rate", "high")
			RecordReportComputed("computed")
			RecordComputationLatency("compute_insights", 1.5)
			RecordPrediction("next_period", true)
			RecordHealthScore(72)

			Convey("Then counters move", func() {
				after := testutil.ToFloat64(globalManager.anomaliesDetected.WithLabelValues("heart_rate", "high"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				RecordCacheLookup("memory", "hit")
				RecordIngested("sample", 3)
				RecordIngested("sample", 0)
				RecordIngestDuplicate()
				UpdateStoreRecords("cycle", 12)
				RecordStoreQueryLatency("cycles_in_range", 0.2)
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 5)
				UpdateQueueSize(4)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.04)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(2)
				RecordWorkerJobProcessed()
				RecordWorkerError()
				RecordWorkerProcessingLatency(12)
				RecordErrorByComponent("store", "timeout")
				RecordErrorByEndpoint("insights", "GET", "server_error")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.storeRecords.WithLabelValues("cycle")), ShouldEqual, 12)
			})
		})

		Convey("When gathering the registry", func() {
			RecordReportComputed("cached")
			families, err := GetRegistry().Gather()

			Convey("Then flowsense metrics are exported", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}
