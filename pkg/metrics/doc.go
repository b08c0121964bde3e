/*
Package metrics provides Prometheus metrics collection and exposition for fleetyard.

It defines and registers every fleetyard metric using the Prometheus client
library, giving visibility into container lifecycle operations, fleet
sync-group execution, image builds, image derivation (commit/persist), and
build-plan resolution. Metrics are exposed over HTTP for scraping by a
Prometheus server.

# Metrics Catalog

Container lifecycle:

fleetyard_containers_created_total{image}
fleetyard_containers_started_total{image}
fleetyard_containers_stopped_total{image, killed}
fleetyard_containers_removed_total{image}
fleetyard_container_operation_failures_total{operation}
fleetyard_container_create_duration_seconds
fleetyard_container_start_duration_seconds
fleetyard_container_stop_duration_seconds

Fleet sync-group execution:

fleetyard_sync_group_duration_seconds{operation}
fleetyard_fleet_operations_total{operation, outcome}
fleetyard_fleet_size

Build context / image builds:

fleetyard_builds_total{outcome}
fleetyard_build_duration_seconds
fleetyard_build_cleanups_total{kind}

Image derivation (commit / persist):

fleetyard_image_derivations_total{method, outcome}
fleetyard_image_derivation_duration_seconds{method}

Build planner:

fleetyard_planned_images_total
fleetyard_plan_resolution_duration_seconds

# Usage

	timer := metrics.NewTimer()
	err := containerHandle.Start(ctx)
	timer.ObserveDuration(metrics.ContainerStartDuration)
	if err != nil {
		metrics.ContainerOperationFailures.WithLabelValues("start").Inc()
	}

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

All metrics are registered at package init via MustRegister, so they are
visible on the first scrape and there is no runtime registration step for
callers. The Timer helper records elapsed wall time into a Histogram or
HistogramVec without each caller reimplementing time.Since bookkeeping.

Label cardinality is kept low and bounded: image name, operation name, and
outcome/method enums, never container IDs or timestamps.
*/
package metrics
