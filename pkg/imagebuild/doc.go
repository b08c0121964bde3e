// Package imagebuild implements the standard (non-container-system) image
// build: it drives a Build Context Assembler directly from a parsed
// Single-Image Spec. See SPEC_FULL.md §4.7, grounded on
// _examples/original_source/nagoya/moromi.py's build_image.
package imagebuild
