package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the Scheduler Loop updates every
// tick. Construct once per process with NewMetrics and pass the result into
// Options; nil is a valid Options.Metrics value (all methods are no-ops on
// a nil *Metrics), so tests that don't care about metrics can skip wiring
// a registry.
type Metrics struct {
	devicesTotal         prometheus.Gauge
	devicesInUse         prometheus.Gauge
	tasksActive          *prometheus.GaugeVec
	detectionsDispatched prometheus.Counter
	detectionsDropped    prometheus.Counter
	detectionsDeduped    prometheus.Counter
	preemptions          prometheus.Counter
	reaps                prometheus.Counter
	skewtBuildSeconds    prometheus.Histogram
}

// NewMetrics registers the scheduler's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		devicesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autorx_devices_total",
			Help: "Number of configured SDR devices.",
		}),
		devicesInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autorx_devices_in_use",
			Help: "Number of SDR devices currently allocated to a task.",
		}),
		tasksActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autorx_tasks_active",
			Help: "Number of currently running tasks, by kind.",
		}, []string{"kind"}),
		detectionsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "autorx_detections_dispatched_total",
			Help: "Detections that resulted in a new decoder being started.",
		}),
		detectionsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "autorx_detections_dropped_total",
			Help: "Detections dropped for lack of a free or preemptible device.",
		}),
		detectionsDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "autorx_detections_deduped_total",
			Help: "Detections skipped because their frequency was already being decoded.",
		}),
		preemptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "autorx_preemptions_total",
			Help: "Times the scanner was stopped to free a device for a decoder.",
		}),
		reaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "autorx_reaps_total",
			Help: "Tasks reaped because is_running() reported false.",
		}),
		skewtBuildSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "autorx_skewt_build_seconds",
			Help:    "Time taken to build a Skew-T series while reading a flight log.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveSkewtBuild records how long one build_skewt call took. It is a
// Metrics method rather than a Loop method since the Log Reader runs
// independently of the Scheduler Loop but shares its metrics registry.
func (m *Metrics) ObserveSkewtBuild(seconds float64) {
	if m == nil {
		return
	}
	m.skewtBuildSeconds.Observe(seconds)
}

func (m *Metrics) setOccupancy(total, inUse, scanCount, decodeCount int) {
	if m == nil {
		return
	}
	m.devicesTotal.Set(float64(total))
	m.devicesInUse.Set(float64(inUse))
	m.tasksActive.WithLabelValues("scan").Set(float64(scanCount))
	m.tasksActive.WithLabelValues("decode").Set(float64(decodeCount))
}

func (m *Metrics) incDispatched() {
	if m == nil {
		return
	}
	m.detectionsDispatched.Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.detectionsDropped.Inc()
}

func (m *Metrics) incDeduped() {
	if m == nil {
		return
	}
	m.detectionsDeduped.Inc()
}

func (m *Metrics) incPreemptions() {
	if m == nil {
		return
	}
	m.preemptions.Inc()
}

func (m *Metrics) incReaps() {
	if m == nil {
		return
	}
	m.reaps.Inc()
}
