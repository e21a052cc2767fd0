package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func family(reg prometheus.Gatherer, name string) *dto.MetricFamily {
	mfs, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func counterValue(reg prometheus.Gatherer, name string) float64 {
	mf := family(reg, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		return 0
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.clicksRecorded.Inc()

			Convey("Then collectors use the configured names and labels", func() {
				mf := family(registry, "test_unit_clicks_recorded_total")
				So(mf, ShouldNotBeNil)
				So(mf.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
				labels := mf.GetMetric()[0].GetLabel()
				So(len(labels), ShouldEqual, 1)
				So(labels[0].GetName(), ShouldEqual, "env")
				So(labels[0].GetValue(), ShouldEqual, "test")
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "clickprio")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global registry", t, func() {
		reg := GetRegistry()

		Convey("When recording engagement metrics", func() {
			before := counterValue(reg, "clickprio_engine_clicks_recorded_total")
			RecordClickRecorded()
			RecordClickRecorded()

			Convey("Then the counter advances", func() {
				So(counterValue(reg, "clickprio_engine_clicks_recorded_total"), ShouldEqual, before+2)
			})
		})

		Convey("When recording pruned events", func() {
			before := counterValue(reg, "clickprio_engine_events_pruned_total")
			RecordEventsPruned(3)
			RecordEventsPruned(0)
			RecordEventsPruned(-1)

			Convey("Then only positive counts are added", func() {
				So(counterValue(reg, "clickprio_engine_events_pruned_total"), ShouldEqual, before+3)
			})
		})

		Convey("When recording a store error", func() {
			RecordStoreError("list")

			Convey("Then the operation label is present", func() {
				mf := family(reg, "clickprio_engine_store_errors_total")
				So(mf, ShouldNotBeNil)
				found := false
				for _, m := range mf.GetMetric() {
					for _, l := range m.GetLabel() {
						if l.GetName() == "operation" && l.GetValue() == "list" {
							found = true
						}
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When calling the remaining recorders", func() {
			So(func() {
				RecordClickDuplicate()
				RecordClickOverflow()
				RecordLedgerConflict()
				RecordClickLatency(1.5)
				RecordDecodeError()
				RecordPruneRun(12)
				RecordLedgerWriteBack()
				RecordItemsRanked(12)
				UpdateTotalItems(4)
				RecordRepositoryUpdateLatency(0.2)
				RecordRepositoryQueryLatency(0.1)
				RecordHTTPRequest("/items", "GET", "200")
				RecordHTTPRequestDuration("/items", "GET", "200", 3)
				RecordErrorByEndpoint("/items", "GET", "4xx")
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				mf := family(reg, "clickprio_engine_total_items")
				So(mf, ShouldNotBeNil)
				So(mf.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 4)
			})
		})
	})
}
