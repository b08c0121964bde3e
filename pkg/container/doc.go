// Package container implements the Container Descriptor & Handle: the
// declarative description of a single container (image, volumes, links,
// entrypoint, working directory, detach/run-once flags, lifecycle
// callbacks) and the idempotent operations that drive it through the
// daemon (init, create, start, stop, remove, wait).
//
// A Descriptor is pure data; a Handle binds a Descriptor to a
// *dockerclient.Client and carries out the operations against the daemon,
// invoking pre/post callbacks in declaration order around each one.
package container
