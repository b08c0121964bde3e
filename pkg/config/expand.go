package config

import (
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// rawSection is one section's worth of key/value pairs, already expanded
// per §0.3/§0.6: {cfgdir}, {section}, and {secdir} resolve relative to the
// file they were declared in, never a global working directory.
type rawSection struct {
	name string
	vals map[string]string
}

// loadRawSections parses path with gopkg.in/ini.v1's Python-multiline-value
// support (the grammar's multi-line lists) and expands each value's
// placeholders using that file's own directory.
func loadRawSections(path string) ([]rawSection, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
	}, path)
	if err != nil {
		return nil, &ConfigurationError{File: path, Reason: err.Error()}
	}

	cfgDir := filepath.Dir(path)
	var sections []rawSection
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		secDir := filepath.Join(cfgDir, sec.Name())
		replacer := strings.NewReplacer(
			"{cfgdir}", cfgDir,
			"{section}", sec.Name(),
			"{secdir}", secDir,
		)

		vals := make(map[string]string, len(sec.Keys()))
		for _, key := range sec.Keys() {
			vals[key.Name()] = replacer.Replace(key.Value())
		}
		sections = append(sections, rawSection{name: sec.Name(), vals: vals})
	}
	return sections, nil
}
