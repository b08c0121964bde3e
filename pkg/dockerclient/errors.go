package dockerclient

import "errors"

// ErrAlreadyExists is returned by Create when a container of the same name
// is already present on the daemon. Callers that treat create as idempotent
// check for it with errors.Is and proceed as if create had succeeded.
var ErrAlreadyExists = errors.New("dockerclient: container already exists")

// ErrAbsent is returned by operations that require an existing container
// (start, kill, wait, inspect, logs) when the daemon has no record of the
// name, and by Remove unless the caller asked to treat absence as success.
var ErrAbsent = errors.New("dockerclient: container absent")
