package fleet

import (
	"context"
)

// CleanupPolicy selects what a ScopedFleet does when it is closed: leave
// containers as they are, stop them, or remove them outright. Whichever
// policy is chosen, the cleanup runs via the same sync-group discipline as
// every other fleet operation, reversed (§4.4 "Scoped fleet variant").
type CleanupPolicy string

const (
	CleanupNothing CleanupPolicy = "nothing"
	CleanupStop    CleanupPolicy = "stop"
	CleanupRemove  CleanupPolicy = "remove"
)

// ScopedFleet pairs a Fleet with a cleanup policy that is guaranteed to run
// on every exit path, success or failure, matching the behavior nagoya's
// TempToji gets from Python's "with" block (§9 re-architecture guidance:
// "expose a scoped-fleet construct ... do not rely on destructor
// ordering"). Callers invoke Close in a defer immediately after
// construction.
type ScopedFleet struct {
	*Fleet
	cleanup CleanupPolicy
}

// Scope wraps f with a cleanup policy.
func Scope(f *Fleet, cleanup CleanupPolicy) *ScopedFleet {
	return &ScopedFleet{Fleet: f, cleanup: cleanup}
}

// Close runs the scoped cleanup action. It is safe (and expected) to call
// this from a defer regardless of whether the scope's body succeeded; a
// cleanup failure is returned to the caller but, per §7, should be logged
// rather than allowed to mask an original failure already in flight.
func (s *ScopedFleet) Close(ctx context.Context) error {
	switch s.cleanup {
	case CleanupStop:
		return s.StopContainers(ctx)
	case CleanupRemove:
		return s.RemoveContainers(ctx)
	case CleanupNothing, "":
		return nil
	default:
		return nil
	}
}
