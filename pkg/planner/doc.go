// Package planner implements the Image Build Planner: it resolves the
// dependency order among declared images. Dispatching each image to either
// the Build Context Assembler (single-image spec) or the Container-System
// Build Driver (container-system spec) is done by pkg/imagebuild, not
// here. See SPEC_FULL.md §4.7. Not
// directly grounded on any one nagoya module — nagoya's moromi.py builds
// whatever image list the caller already hands it with no dependency
// resolution of its own; this package supplies the topological ordering
// the distilled specification requires on top of that, shaped like
// pkg/fleet's own topoSort (Kahn's algorithm, declaration-order tiebreak
// in place of pkg/fleet's alphabetical one).
package planner
