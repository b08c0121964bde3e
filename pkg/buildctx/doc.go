// Package buildctx implements the Build Context Assembler: a scoped
// temporary directory plus an ordered manifest of Dockerfile-equivalent
// build instructions, submitted to the daemon to produce an image. See
// SPEC_FULL.md §4.5, grounded on
// _examples/original_source/nagoya/dockerext/build.py's BuildContext,
// watch_build, and cleanup_container.
package buildctx
