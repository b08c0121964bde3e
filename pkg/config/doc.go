// Package config parses the image-definition and fleet-configuration
// grammars (§6 of SPEC_FULL.md): a sectioned key/value text format read
// with gopkg.in/ini.v1, walked by hand to apply per-file
// {cfgdir}/{section}/{secdir} placeholder expansion, plus the small
// resource-path and link-spec grammars nagoya's moromi.py and
// docker/container.py define as regular expressions. Grounded on
// _examples/original_source/nagoya/cli/cfg.py (aconf.py's placeholder
// expansion) and _examples/original_source/nagoya/moromi.py (dir_spec,
// volume_spec, link_spec).
package config
