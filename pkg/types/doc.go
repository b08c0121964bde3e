/*
Package types defines the cross-package data model shared by fleetyard's
orchestration components: container lifecycle state as observed from the
daemon, volume/volumes-from/network-link bindings, build event records, the
"SOURCE in DIR"/"SOURCE at PATH" grammar's parsed result, and image
derivation method tags.

Types that are owned and mutated by a single package (Descriptor in
pkg/container, Fleet in pkg/fleet, Context in pkg/buildctx)
live in their owning package instead of here, so that package stays the
single place that can construct and mutate its own invariants.

# Usage

	insp, err := client.Inspect(ctx, name)
	if err != nil { ... }
	if insp.Started() {
		// run-once guard: skip start
	}
*/
package types
