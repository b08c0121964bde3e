package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Container lifecycle metrics
	ContainersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_containers_created_total",
			Help: "Total number of containers created, by image",
		},
		[]string{"image"},
	)

	ContainersStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_containers_started_total",
			Help: "Total number of containers started, by image",
		},
		[]string{"image"},
	)

	ContainersStopped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_containers_stopped_total",
			Help: "Total number of containers stopped, by image and whether SIGKILL was required",
		},
		[]string{"image", "killed"},
	)

	ContainersRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_containers_removed_total",
			Help: "Total number of containers removed, by image",
		},
		[]string{"image"},
	)

	ContainerOperationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_container_operation_failures_total",
			Help: "Total number of failed container operations, by operation",
		},
		[]string{"operation"},
	)

	// Container daemon round-trip latency
	ContainerCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetyard_container_create_duration_seconds",
			Help:    "Time taken to create a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetyard_container_start_duration_seconds",
			Help:    "Time taken to start a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetyard_container_stop_duration_seconds",
			Help:    "Time taken to stop a container (SIGTERM through exit) in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 45},
		},
	)

	// Fleet (sync-group) execution metrics
	SyncGroupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetyard_sync_group_duration_seconds",
			Help:    "Time taken to execute one sync-group of a fleet operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	FleetOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_fleet_operations_total",
			Help: "Total number of fleet-level operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	FleetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetyard_fleet_size",
			Help: "Number of containers in the most recently resolved fleet",
		},
	)

	// Build context / image build metrics
	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_builds_total",
			Help: "Total number of image builds attempted, by outcome",
		},
		[]string{"outcome"},
	)

	BuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetyard_build_duration_seconds",
			Help:    "Time taken to build an image from a build context in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	BuildCleanupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_build_cleanups_total",
			Help: "Total number of post-failure build cleanups, by kind",
		},
		[]string{"kind"},
	)

	// Image derivation (commit / persist) metrics
	ImageDerivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetyard_image_derivations_total",
			Help: "Total number of image derivations by method (commit or persist) and outcome",
		},
		[]string{"method", "outcome"},
	)

	ImageDerivationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetyard_image_derivation_duration_seconds",
			Help:    "Time taken to derive an image from a running or sibling container, by method",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method"},
	)

	// Build planner metrics
	PlannedImagesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetyard_planned_images_total",
			Help: "Number of images in the most recently resolved build plan",
		},
	)

	PlanResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetyard_plan_resolution_duration_seconds",
			Help:    "Time taken to resolve a build plan's dependency graph in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		ContainersCreated,
		ContainersStarted,
		ContainersStopped,
		ContainersRemoved,
		ContainerOperationFailures,
		ContainerCreateDuration,
		ContainerStartDuration,
		ContainerStopDuration,
		SyncGroupDuration,
		FleetOperationsTotal,
		FleetSize,
		BuildsTotal,
		BuildDuration,
		BuildCleanupsTotal,
		ImageDerivationsTotal,
		ImageDerivationDuration,
		PlannedImagesTotal,
		PlanResolutionDuration,
	)
}

// Handler returns the Prometheus HTTP handler for scraping accumulated metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
