// Package fleet implements the Fleet Manager: it groups a set of container
// descriptors into dependency-ordered sync-groups via topological sort, then
// executes a given per-container operation concurrently within each group
// and sequentially across groups, aggregating per-container failures. See
// SPEC_FULL.md §4.4, grounded on _examples/original_source/nagoya/toji.py's
// Toji/TempToji (find_sync_groups, containers_exec, the four *_containers
// entry points, and the scoped-cleanup variant).
package fleet
