package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivetci/fleetyard/pkg/log"
)

// builtinCallbacks is the fixed set of callback coordinates resolvable
// without a qualified module.function reference.
var builtinCallbacks = map[string]CallbackFunc{
	"show_network": showNetwork,
}

// showNetwork logs the container's image and the container-side paths of
// its mounts as reported by the daemon, the one example callback carried
// over from the original implementation's built-in set. No address or port
// is logged: the inspection it reads carries no network fields.
func showNetwork(ctx context.Context, h *Handle) error {
	insp, err := h.client.Inspect(ctx, h.Descriptor.Name)
	if err != nil {
		log.WithContainer(h.Descriptor.Name).Error().Err(err).Msg("show_network: could not inspect container")
		return nil
	}
	ports := make([]string, 0, len(insp.Volumes))
	for containerPath := range insp.Volumes {
		ports = append(ports, containerPath)
	}
	log.WithContainer(h.Descriptor.Name).Info().
		Str("image", insp.Image).
		Strs("mounts", ports).
		Msg("container network/volume summary")
	return nil
}

// CallbackRegistry resolves callback coordinates at configuration time. A
// coordinate containing "." is qualified and must already be registered
// under Register; an unqualified coordinate must name a built-in and must
// not start with "_".
type CallbackRegistry struct {
	extra map[string]CallbackFunc
}

// NewCallbackRegistry returns a registry seeded only with the built-in set;
// callers add externally-registered callbacks via Register before
// resolving configuration.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{extra: make(map[string]CallbackFunc)}
}

// Register adds a qualified callback, addressable as "module.function".
func (r *CallbackRegistry) Register(coordinate string, fn CallbackFunc) {
	r.extra[coordinate] = fn
}

// Resolve looks up a callback coordinate. Qualified coordinates
// (containing ".") must have been registered; unqualified coordinates must
// name a built-in and must not start with "_".
func (r *CallbackRegistry) Resolve(coordinate string) (CallbackFunc, error) {
	if strings.Contains(coordinate, ".") {
		if strings.HasPrefix(coordinate, ".") {
			return nil, fmt.Errorf("container: qualified callback coordinate %q cannot be relative", coordinate)
		}
		fn, ok := r.extra[coordinate]
		if !ok {
			return nil, fmt.Errorf("container: unregistered callback coordinate %q", coordinate)
		}
		return fn, nil
	}

	if strings.HasPrefix(coordinate, "_") {
		return nil, fmt.Errorf("container: unqualified callback coordinate %q cannot start with an underscore", coordinate)
	}
	fn, ok := builtinCallbacks[coordinate]
	if !ok {
		return nil, fmt.Errorf("container: unknown built-in callback %q", coordinate)
	}
	return fn, nil
}

// ParseCallspec parses a "PART_EVENT:COORDINATE" line (e.g.
// "pre_start:show_network") into a Callspec, resolving the coordinate
// through r.
func (r *CallbackRegistry) ParseCallspec(line string) (Callspec, error) {
	eventSpec, coordinate, ok := strings.Cut(line, ":")
	if !ok {
		return Callspec{}, fmt.Errorf("container: malformed callback spec %q, expected PART_EVENT:COORDINATE", line)
	}
	part, event, ok := strings.Cut(eventSpec, "_")
	if !ok {
		return Callspec{}, fmt.Errorf("container: malformed callback event %q, expected PART_EVENT", eventSpec)
	}

	cbPart := CallbackPart(part)
	if cbPart != Pre && cbPart != Post {
		return Callspec{}, fmt.Errorf("container: invalid callback part %q", part)
	}
	cbEvent := CallbackEvent(event)
	switch cbEvent {
	case EventInit, EventCreate, EventStart, EventStop, EventRemove:
	default:
		return Callspec{}, fmt.Errorf("container: invalid callback event %q", event)
	}

	fn, err := r.Resolve(coordinate)
	if err != nil {
		return Callspec{}, err
	}
	return Callspec{Part: cbPart, Event: cbEvent, Callback: fn}, nil
}
