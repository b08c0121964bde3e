// Package consys implements the Container-System Build Driver: it runs a
// temporary fleet of containers to completion and derives one or more
// images from it by commit or by persisting volume data into a fresh
// build context. See SPEC_FULL.md §4.6, grounded on
// _examples/original_source/nagoya/buildcsys.py's BuildContainerSystem.
package consys
