package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/events"
	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/metrics"
)

// CycleError is returned by SyncGroups when the dependency graph formed by
// the fleet's descriptors is not a DAG. It names every descriptor found on
// a cycle or depending on one, so the caller can report a complete
// diagnostic.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("fleet: dependency cycle among containers: %s", strings.Join(e.Names, ", "))
}

// AggregateError is raised by ContainersExec when one or more containers in
// a sync-group fail. It carries one error per failing container plus the
// captured logs of any container left in an exited state on the daemon.
// Error() joins sub-errors with a delimiter, matching the source's
// concatenated-stack-trace serialization (§0.2 of SPEC_FULL.md).
type AggregateError struct {
	Errors []error
	Logs   map[string][]byte
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("fleet: %d container(s) failed:\n%s", len(e.Errors), strings.Join(msgs, "\n---\n"))
}

// Unwrap exposes the sub-errors to errors.Is/errors.As via a joined error.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Fleet is an ordered collection of container handles plus their lazily
// derived sync-groups (§3 Fleet, §4.4). Sync-groups are recomputed on
// access after the handle set changes, not on every mutation (§9
// re-architecture guidance: "lazy sync-group computation").
type Fleet struct {
	client  *dockerclient.Client
	logger  zerolog.Logger
	mu      sync.Mutex
	handles []*container.Handle
	groups  [][]*container.Handle
	dirty   bool
	broker  *events.Broker
}

// SetBroker arranges for fleet operations to publish lifecycle events to b
// (sync-group start/done, per-container outcome). A nil broker (the
// default) disables publishing entirely; the CLI wires one in so
// fleet-manage can forward progress to the terminal independent of the log
// stream (§6 "CLI surface").
func (f *Fleet) SetBroker(b *events.Broker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broker = b
}

func (f *Fleet) publish(eventType events.EventType, containerName, message string) {
	if f.broker == nil {
		return
	}
	f.broker.Publish(&events.Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		Message:  message,
		Metadata: map[string]string{"container": containerName},
	})
}

// New returns a Fleet bound to client, with handles constructed from
// descriptors in declaration order.
func New(client *dockerclient.Client, descriptors []*container.Descriptor) *Fleet {
	f := &Fleet{client: client, logger: log.WithComponent("fleet"), dirty: true}
	for _, d := range descriptors {
		f.handles = append(f.handles, container.NewHandle(d, client))
	}
	return f
}

// Add appends a descriptor to the fleet, marking sync-groups dirty.
func (f *Fleet) Add(d *container.Descriptor) *container.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := container.NewHandle(d, f.client)
	f.handles = append(f.handles, h)
	f.dirty = true
	return h
}

// Handles returns the fleet's container handles in declaration order.
func (f *Fleet) Handles() []*container.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*container.Handle, len(f.handles))
	copy(out, f.handles)
	return out
}

// SyncGroups returns the fleet's dependency-ordered sync-groups, computing
// them if the handle set has changed since the last computation. A
// sync-group is a maximal set of handles with no dependency on one another;
// groups are ordered so that every dependency appears in a strictly earlier
// group than its dependents. Returns a *CycleError if the dependency graph
// is not a DAG (§8 property 2: cycle detection happens here, before any
// daemon call).
func (f *Fleet) SyncGroups() ([][]*container.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return f.groups, nil
	}

	groups, err := topoSort(f.handles)
	if err != nil {
		return nil, err
	}
	f.groups = groups
	f.dirty = false
	metrics.FleetSize.Set(float64(len(f.handles)))
	return groups, nil
}

// topoSort implements Kahn's algorithm, producing one "level" per round:
// all nodes whose remaining in-degree is zero are peeled off together,
// forming a sync-group, and the process repeats on what's left. Any
// handles remaining once no further progress can be made are on a cycle or
// depend on one.
func topoSort(handles []*container.Handle) ([][]*container.Handle, error) {
	byName := make(map[string]*container.Handle, len(handles))
	for _, h := range handles {
		byName[h.Descriptor.Name] = h
	}

	deps := make(map[string]map[string]struct{}, len(handles))
	for _, h := range handles {
		want := h.DependencyNames()
		local := make(map[string]struct{}, len(want))
		for name := range want {
			if _, ok := byName[name]; ok {
				local[name] = struct{}{}
			}
			// Names with no matching descriptor are externally managed
			// containers already present on the daemon; they never
			// participate in this fleet's own sync-group ordering.
		}
		deps[h.Descriptor.Name] = local
	}

	var groups [][]*container.Handle
	remaining := make(map[string]struct{}, len(handles))
	for name := range byName {
		remaining[name] = struct{}{}
	}

	for len(remaining) > 0 {
		var levelNames []string
		for name := range remaining {
			if len(deps[name]) == 0 {
				levelNames = append(levelNames, name)
			}
		}
		if len(levelNames) == 0 {
			cyclic := make([]string, 0, len(remaining))
			for name := range remaining {
				cyclic = append(cyclic, name)
			}
			sort.Strings(cyclic)
			return nil, &CycleError{Names: cyclic}
		}
		sort.Strings(levelNames)

		level := make([]*container.Handle, 0, len(levelNames))
		for _, name := range levelNames {
			level = append(level, byName[name])
			delete(remaining, name)
		}
		for name := range remaining {
			for _, done := range levelNames {
				delete(deps[name], done)
			}
		}
		groups = append(groups, level)
	}
	return groups, nil
}

// Operation is a daemon-facing action performed on one container handle.
type Operation func(ctx context.Context, h *container.Handle) error

// ContainersExec runs op against every handle in the fleet, processing
// sync-groups in order (or reverse order, for stop/remove), with all
// handles in a group executed concurrently. It does not advance to the next
// group until every handle in the current group has finished; a failing
// handle does not preempt its group-mates (§4.4, §5). Failures are
// collected into an *AggregateError that also carries the logs of any
// handle left in an exited state on the daemon.
func (f *Fleet) ContainersExec(ctx context.Context, op Operation, reverse bool) error {
	groups, err := f.SyncGroups()
	if err != nil {
		return err
	}
	if reverse {
		groups = reversedGroups(groups)
	}

	for i, group := range groups {
		timer := metrics.NewTimer()
		f.logger.Debug().Int("group", i).Int("size", len(group)).Msg("executing sync-group")
		if f.broker != nil {
			f.broker.Publish(&events.Event{ID: uuid.NewString(), Type: events.EventSyncGroupStarted, Message: fmt.Sprintf("sync-group %d (%d containers)", i, len(group))})
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(len(group))

		errsCh := make(chan error, len(group))
		for _, h := range group {
			h := h
			g.Go(func() error {
				// Each member's error is captured rather than returned to
				// errgroup, so one failure does not cancel gctx and
				// preempt its group-mates; the spec requires in-flight
				// work in a group to finish before failure is raised.
				if err := op(gctx, h); err != nil {
					errsCh <- fmt.Errorf("container %s: %w", h.Descriptor.Name, err)
				}
				return nil
			})
		}
		_ = g.Wait()
		close(errsCh)

		var errs []error
		for err := range errsCh {
			errs = append(errs, err)
		}
		timer.ObserveDurationVec(metrics.SyncGroupDuration, "exec")
		if f.broker != nil {
			f.broker.Publish(&events.Event{ID: uuid.NewString(), Type: events.EventSyncGroupDone, Message: fmt.Sprintf("sync-group %d done", i)})
		}

		if len(errs) > 0 {
			logs := make(map[string][]byte)
			if f.client != nil {
				for _, h := range group {
					insp, inspErr := h.Inspect(ctx)
					if inspErr == nil && insp.ExitCode != 0 {
						if l, logErr := f.client.Logs(ctx, h.Descriptor.Name); logErr == nil {
							logs[h.Descriptor.Name] = l
						}
					}
				}
			}
			metrics.FleetOperationsTotal.WithLabelValues("containers_exec", "failure").Inc()
			return &AggregateError{Errors: errs, Logs: logs}
		}
	}
	metrics.FleetOperationsTotal.WithLabelValues("containers_exec", "success").Inc()
	return nil
}

func reversedGroups(groups [][]*container.Handle) [][]*container.Handle {
	out := make([][]*container.Handle, len(groups))
	for i, g := range groups {
		out[len(groups)-1-i] = g
	}
	return out
}

// wrapOp publishes onSuccess (or EventContainerFailed, on error) for each
// container op completes against, so a broker-subscribed CLI can forward
// per-container outcomes independent of the log stream.
func (f *Fleet) wrapOp(onSuccess events.EventType, op Operation) Operation {
	return func(ctx context.Context, h *container.Handle) error {
		err := op(ctx, h)
		if err != nil {
			f.publish(events.EventContainerFailed, h.Descriptor.Name, err.Error())
			return err
		}
		f.publish(onSuccess, h.Descriptor.Name, h.Descriptor.Name)
		return nil
	}
}

// InitContainers creates and starts every container, dependencies first.
func (f *Fleet) InitContainers(ctx context.Context) error {
	return f.ContainersExec(ctx, f.wrapOp(events.EventContainerStarted, (*container.Handle).Init), false)
}

// StartContainers starts every container, dependencies first.
func (f *Fleet) StartContainers(ctx context.Context) error {
	return f.ContainersExec(ctx, f.wrapOp(events.EventContainerStarted, (*container.Handle).Start), false)
}

// StopContainers stops every container, dependents first (reverse
// sync-group order, per §4.4 and §8 property 4).
func (f *Fleet) StopContainers(ctx context.Context) error {
	return f.ContainersExec(ctx, f.wrapOp(events.EventContainerStopped, func(ctx context.Context, h *container.Handle) error {
		return h.Stop(ctx, true)
	}), true)
}

// RemoveContainers removes every container, dependents first.
func (f *Fleet) RemoveContainers(ctx context.Context) error {
	return f.ContainersExec(ctx, f.wrapOp(events.EventContainerRemoved, func(ctx context.Context, h *container.Handle) error {
		return h.Remove(ctx, true)
	}), true)
}
