package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/metrics"
	"github.com/rivetci/fleetyard/pkg/types"
)

// ContainerExitError reports a non-zero exit from a container that was
// waited on with errorOK=false. It carries the exit code and the
// container's captured logs, matching the original's ContainerExitError.
type ContainerExitError struct {
	Name     string
	ExitCode int
	Logs     []byte
}

func (e *ContainerExitError) Error() string {
	return fmt.Sprintf("container %s exited %d:\n%s", e.Name, e.ExitCode, e.Logs)
}

// StopFailureError records that both phases of the stop protocol (SIGTERM
// then SIGKILL) timed out. Per §7's propagation policy this is logged, not
// returned, so it exists mainly to give that log line a typed payload.
type StopFailureError struct {
	Name string
}

func (e *StopFailureError) Error() string {
	return fmt.Sprintf("container %s: unable to stop, both termination phases timed out", e.Name)
}

const (
	stopPhaseTimeout = 20 * time.Second
	sigterm          = "SIGTERM"
	sigkill          = "SIGKILL"
)

// Handle binds a Descriptor, whose callbacks are already resolved, to a
// daemon client, and performs the daemon-facing lifecycle operations
// against it.
type Handle struct {
	Descriptor *Descriptor
	client     *dockerclient.Client
	logger     zerolog.Logger
}

// NewHandle returns a Handle for d using client for daemon calls.
func NewHandle(d *Descriptor, client *dockerclient.Client) *Handle {
	return &Handle{
		Descriptor: d,
		client:     client,
		logger:     log.WithContainer(d.Name),
	}
}

func (h *Handle) fire(ctx context.Context, part CallbackPart, event CallbackEvent) error {
	for _, cb := range h.Descriptor.Callbacks {
		if cb.Part != part || cb.Event != event {
			continue
		}
		if err := cb.Callback(ctx, h); err != nil {
			return fmt.Errorf("container %s: %s_%s callback: %w", h.Descriptor.Name, part, event, err)
		}
	}
	return nil
}

// Init is the composite create+start. On the non-detached path it blocks
// until the container exits and fails if the exit code is non-zero.
func (h *Handle) Init(ctx context.Context) error {
	if err := h.fire(ctx, Pre, EventInit); err != nil {
		return err
	}
	h.logger.Debug().Msg("initializing container")
	if err := h.Create(ctx); err != nil {
		return err
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	return h.fire(ctx, Post, EventInit)
}

// Create brings the container into existence. A container of the same
// name already existing is treated as success.
func (h *Handle) Create(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContainerCreateDuration)

	if err := h.fire(ctx, Pre, EventCreate); err != nil {
		return err
	}
	h.logger.Debug().Msg("attempting to create container")

	d := h.Descriptor
	opts := types.CreateOptions{
		Env:          d.Env,
		ExposedPorts: d.ExposedPorts,
		Hostname:     d.Hostname,
		Privileged:   d.Privileged,
	}
	err := h.client.Create(ctx, d.Name, d.Image, d.Volumes, d.Links, d.VolumesFrom, d.Entrypoint, d.WorkingDir, d.Detach, opts)
	if err != nil {
		if errors.Is(err, dockerclient.ErrAlreadyExists) {
			h.logger.Debug().Msg("container already exists")
			metrics.ContainersCreated.WithLabelValues(d.Image).Inc()
			return nil
		}
		metrics.ContainerOperationFailures.WithLabelValues("create").Inc()
		return err
	}
	h.logger.Info().Msg("created container")
	metrics.ContainersCreated.WithLabelValues(d.Image).Inc()
	return h.fire(ctx, Post, EventCreate)
}

// Start launches the container, obeying the run-once flag: if set and the
// container has a non-zero start timestamp already, Start is a no-op. On
// the non-detached path it waits for the container to exit and fails
// loudly on a non-zero code.
func (h *Handle) Start(ctx context.Context) error {
	d := h.Descriptor

	if d.RunOnce {
		insp, err := h.client.Inspect(ctx, d.Name)
		if err != nil && !errors.Is(err, dockerclient.ErrAbsent) {
			return err
		}
		if err == nil && insp.Started() {
			h.logger.Debug().Msg("container is configured to run only once and has already started")
			return nil
		}
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContainerStartDuration)

	if err := h.fire(ctx, Pre, EventStart); err != nil {
		return err
	}
	h.logger.Debug().Msg("attempting to start container")

	if err := h.client.Start(ctx, d.Name, d.Links, d.VolumesFrom); err != nil {
		metrics.ContainerOperationFailures.WithLabelValues("start").Inc()
		return err
	}
	metrics.ContainersStarted.WithLabelValues(d.Image).Inc()

	if !d.Detach {
		h.logger.Info().Msg("waiting for container to finish")
		if _, _, err := h.Wait(ctx, 0, false); err != nil {
			return err
		}
		h.logger.Info().Msg("container exited ok")
	} else {
		h.logger.Info().Msg("started container")
	}

	return h.fire(ctx, Post, EventStart)
}

// Stop implements the §4.1 stop protocol: inspect, and if the process id
// is zero, succeed immediately; otherwise send SIGTERM and wait up to 20s,
// then SIGKILL and wait another 20s. A second timeout is logged as a
// StopFailureError, never returned.
func (h *Handle) Stop(ctx context.Context, absentOK bool) error {
	h.logger.Debug().Msg("attempting to stop container")

	insp, err := h.client.Inspect(ctx, h.Descriptor.Name)
	if err != nil {
		if errors.Is(err, dockerclient.ErrAbsent) {
			if absentOK {
				h.logger.Debug().Msg("container does not exist")
				return nil
			}
			return err
		}
		return err
	}
	if insp.Pid == 0 {
		h.logger.Debug().Msg("container is not running")
		return nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContainerStopDuration)

	if err := h.fire(ctx, Pre, EventStop); err != nil {
		return err
	}

	if err := h.client.Kill(ctx, h.Descriptor.Name, sigterm); err != nil {
		return err
	}
	if _, timedOut, err := h.Wait(ctx, stopPhaseTimeout, true); err != nil {
		return err
	} else if !timedOut {
		h.logger.Info().Msg("stopped container")
		metrics.ContainersStopped.WithLabelValues(h.Descriptor.Image, "false").Inc()
		return h.fire(ctx, Post, EventStop)
	}

	if err := h.client.Kill(ctx, h.Descriptor.Name, sigkill); err != nil {
		return err
	}
	if _, timedOut, err := h.Wait(ctx, stopPhaseTimeout, true); err != nil {
		return err
	} else if !timedOut {
		h.logger.Info().Msg("killed container")
		metrics.ContainersStopped.WithLabelValues(h.Descriptor.Image, "true").Inc()
		return h.fire(ctx, Post, EventStop)
	}

	h.logger.Error().Err(&StopFailureError{Name: h.Descriptor.Name}).Msg("unable to kill container")
	metrics.ContainerOperationFailures.WithLabelValues("stop").Inc()
	return nil
}

// Remove deletes the container, forcing removal regardless of state.
// Absence is treated as success when absentOK is set.
func (h *Handle) Remove(ctx context.Context, absentOK bool) error {
	if err := h.fire(ctx, Pre, EventRemove); err != nil {
		return err
	}
	h.logger.Debug().Msg("attempting to remove container")

	if err := h.client.Remove(ctx, h.Descriptor.Name, true, absentOK); err != nil {
		if errors.Is(err, dockerclient.ErrAbsent) {
			h.logger.Debug().Msg("container doesn't exist")
			return err
		}
		metrics.ContainerOperationFailures.WithLabelValues("remove").Inc()
		return err
	}
	h.logger.Info().Msg("removed container")
	metrics.ContainersRemoved.WithLabelValues(h.Descriptor.Image).Inc()
	return h.fire(ctx, Post, EventRemove)
}

// Wait blocks until the container exits or timeout elapses (zero means
// forever), returning its exit code. When errorOK is false and the exit
// code is non-zero, Wait returns a ContainerExitError carrying the
// container's logs.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration, errorOK bool) (int, bool, error) {
	code, timedOut, err := h.client.Wait(ctx, h.Descriptor.Name, timeout)
	if err != nil {
		return 0, false, err
	}
	if timedOut {
		return 0, true, nil
	}
	if !errorOK && code != 0 {
		logs, logErr := h.client.Logs(ctx, h.Descriptor.Name)
		if logErr != nil {
			logs = []byte(fmt.Sprintf("(could not retrieve logs: %v)", logErr))
		}
		return code, false, &ContainerExitError{Name: h.Descriptor.Name, ExitCode: code, Logs: logs}
	}
	return code, false, nil
}

// DependencyNames returns the union of network-link targets and
// volumes-from targets.
func (h *Handle) DependencyNames() map[string]struct{} {
	return h.Descriptor.DependencyNames()
}

// Inspect returns the daemon's current view of the container.
func (h *Handle) Inspect(ctx context.Context) (types.Inspection, error) {
	return h.client.Inspect(ctx, h.Descriptor.Name)
}
