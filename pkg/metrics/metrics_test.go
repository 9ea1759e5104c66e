package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every metric is registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.estimates.WithLabelValues("TENNIS", "questionnaire", "low").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				found := false
				for _, f := range families {
					if f.GetName() == "deuce_placement_estimates_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels follow the options", func() {
				manager.placementsAccepted.Inc()
				expected := `
# HELP test_unit_placements_accepted_total Placement submissions accepted for recording
# TYPE test_unit_placements_accepted_total counter
test_unit_placements_accepted_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_placements_accepted_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording estimates", func() {
			before := testutil.ToFloat64(globalManager.estimates.WithLabelValues("PADEL", "dupr_conversion", "high"))
			RecordEstimate("PADEL", "dupr_conversion", "high")
			RecordEstimate("PADEL", "dupr_conversion", "high")

			Convey("Then the labelled counter advances", func() {
				after := testutil.ToFloat64(globalManager.estimates.WithLabelValues("PADEL", "dupr_conversion", "high"))
				So(after-before, ShouldEqual, 2.0)
			})
		})

		Convey("When recording scoring warnings", func() {
			before := testutil.ToFloat64(globalManager.scoringWarnings)
			RecordScoringWarnings(3)
			So(testutil.ToFloat64(globalManager.scoringWarnings)-before, ShouldEqual, 3.0)
		})

		Convey("When setting queue gauges", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.12)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12.0)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100.0)
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordEstimateFallback("benchmark_rejected")
				RecordEstimateLatency("TENNIS", 0.4)
				RecordPlacementAccepted()
				RecordPlacementDuplicate()
				RecordPlacementRejected()
				RecordRecordCreated("TENNIS", "SINGLES")
				RecordRecordExisting()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(2.5)
				RecordWorkerError()
				UpdateRepositoryRecordsTotal(10)
				RecordRepositoryWriteLatency(1.0)
				RecordRepositoryQueryLatency(0.5)
				RecordHTTPRequest("/estimate", "POST", "200")
				RecordHTTPRequestDuration("/estimate", "POST", "200", 0.002)
				RecordErrorByComponent("worker", "store_failed")
				RecordErrorByEndpoint("/placements", "POST", "queue_full")
				UpdateSystemMemoryUsage(1024 * 1024)
				UpdateSystemGoroutineCount(12)
				UpdateSystemResidentMemory(64 * 1024 * 1024)
				UpdateSystemCPUPercent(12.5)
			}, ShouldNotPanic)
		})

		Convey("When asking for the registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
