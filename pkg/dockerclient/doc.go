// Package dockerclient is the thin typed facade over the container daemon's
// HTTP API: create, start, stop (kill+wait), remove, inspect, logs, commit,
// build, and image removal. It wraps *client.Client from
// github.com/docker/docker/client so that every other package in fleetyard
// deals in the Inspection/BuildEvent shapes from pkg/types rather than the
// daemon's wire types directly.
//
// Bit-exact wire compatibility comes from using the Docker SDK itself
// against the real Engine API rather than reimplementing the protocol.
// Idempotent conditions ("already exists", "absent") are surfaced as
// sentinel errors so callers that expect them can recover locally with
// errors.Is; every other daemon failure is wrapped and returned as-is.
package dockerclient
