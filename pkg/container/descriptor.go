package container

import (
	"context"

	"github.com/google/uuid"

	"github.com/rivetci/fleetyard/pkg/types"
)

// CallbackEvent is one of the five lifecycle events a callback can attach
// to.
type CallbackEvent string

const (
	EventInit   CallbackEvent = "init"
	EventCreate CallbackEvent = "create"
	EventStart  CallbackEvent = "start"
	EventStop   CallbackEvent = "stop"
	EventRemove CallbackEvent = "remove"
)

// CallbackPart distinguishes a callback that runs before its event from one
// that runs after.
type CallbackPart string

const (
	Pre  CallbackPart = "pre"
	Post CallbackPart = "post"
)

// CallbackFunc receives the handle it is attached to. Failures propagate as
// failures of the enclosing operation.
type CallbackFunc func(ctx context.Context, h *Handle) error

// Callspec associates a callback function with the event and part it fires
// on, resolved at configuration time by CallbackRegistry.Resolve.
type Callspec struct {
	Part     CallbackPart
	Event    CallbackEvent
	Callback CallbackFunc
}

// Descriptor is the declarative description of one container. It carries
// no daemon state; Handle wraps a Descriptor to perform operations.
type Descriptor struct {
	Name         string
	Image        string
	Detach       bool
	Volumes      []types.VolumeBinding
	VolumesFrom  []types.VolumesFromBinding
	Links        []types.NetworkLink
	RunOnce      bool
	Entrypoint   []string
	WorkingDir   string
	Env          map[string]string
	ExposedPorts []string
	Hostname     string
	Privileged   bool
	Callbacks    []Callspec
}

// NewDescriptor returns a Descriptor with a generated name when name is
// empty, per the data model's "name is generated if absent" invariant.
func NewDescriptor(name, image string) *Descriptor {
	if name == "" {
		name = uuid.NewString()
	}
	return &Descriptor{Name: name, Image: image, Detach: true}
}

// NewTempDescriptor returns a Descriptor named after image's repository
// plus an 8-character random suffix, matching the ephemeral naming used for
// build-system sidecars and other short-lived containers.
func NewTempDescriptor(image string) *Descriptor {
	base := image
	for i, r := range image {
		if r == ':' {
			base = image[:i]
			break
		}
	}
	return NewDescriptor(base+"."+uuid.NewString()[:8], image)
}

// DependencyNames returns the union of network-link targets and
// volumes-from targets: the set of other descriptors this one must follow
// in a fleet's sync-group order.
func (d *Descriptor) DependencyNames() map[string]struct{} {
	deps := make(map[string]struct{})
	for _, l := range d.Links {
		deps[l.Container] = struct{}{}
	}
	for _, vf := range d.VolumesFrom {
		deps[vf.Container] = struct{}{}
	}
	return deps
}
