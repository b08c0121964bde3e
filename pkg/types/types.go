// Package types holds the data model shared across fleetyard's packages:
// the wire-facing shapes returned by the Daemon Client Adapter and the
// plain value objects threaded between the Planner, Build Driver, and
// Build Context Assembler. Package-local types (Descriptor in pkg/container,
// Fleet in pkg/fleet) stay in their owning packages; only the
// cross-package vocabulary lives here.
package types

import "time"

// ContainerState is the lifecycle state of a container as observed via the
// daemon: absent, created, running, exited.
type ContainerState string

const (
	ContainerAbsent  ContainerState = "absent"
	ContainerCreated ContainerState = "created"
	ContainerRunning ContainerState = "running"
	ContainerExited  ContainerState = "exited"
)

// Inspection is the daemon's view of a single container: process id (0 when
// not running), exit code, start timestamp (zero value when never started),
// the declared volumes map (container path -> host path or empty for
// anonymous volumes), and the image reference it was created from.
type Inspection struct {
	Name      string
	State     ContainerState
	Pid       int
	ExitCode  int
	StartedAt time.Time
	Volumes   map[string]string
	Image     string
}

// Started reports whether the container has ever been started, per the
// run-once guard: a non-zero start timestamp.
func (i Inspection) Started() bool {
	return !i.StartedAt.IsZero()
}

// VolumeBinding is a host-path-to-container-path bind mount declared on a
// Container Descriptor.
type VolumeBinding struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// VolumesFromBinding mounts another container's volumes into this one.
type VolumesFromBinding struct {
	Container string
	ReadWrite bool
}

// NetworkLink links this container to another by name, with an alias
// visible inside this container.
type NetworkLink struct {
	Container string
	Alias     string
}

// BuildEventKind classifies a single record from the daemon's build
// response stream.
type BuildEventKind string

const (
	BuildEventStream BuildEventKind = "stream"
	BuildEventStatus BuildEventKind = "status"
	BuildEventError  BuildEventKind = "error"
)

// BuildEvent is one record from the daemon's newline-delimited build
// response. ProgressDetail is populated only for "status" records, from
// the record's id field.
type BuildEvent struct {
	Kind           BuildEventKind
	Line           string
	ProgressDetail string
	Error          string
}

// ResPath is the parsed result of the "SOURCE in DIR" / "SOURCE at PATH"
// grammar (§0.6 of SPEC_FULL.md): Src is the host-side source path, Dest is
// the resolved in-image destination path, and DestDir is the working
// directory implied by the form used (DIR for "in", dirname(PATH) for "at").
type ResPath struct {
	Src     string
	Dest    string
	DestDir string
}

// CreateOptions carries the per-container settings the daemon accepts only
// at create time and that aren't part of the core Create signature: an
// environment map, exposed ports ("8080", "8080/udp"), an optional
// hostname override, and the privileged flag.
type CreateOptions struct {
	Env          map[string]string
	ExposedPorts []string
	Hostname     string
	Privileged   bool
}

// ImageDerivationMethod distinguishes the two ways a container-system build
// produces an image from a running container.
type ImageDerivationMethod string

const (
	DerivationCommit  ImageDerivationMethod = "commit"
	DerivationPersist ImageDerivationMethod = "persist"
)
