package config

import (
	"github.com/rivetci/fleetyard/pkg/types"
)

// SingleImageSpec describes a flat resource/command image build (§3 "Build
// Plan"): a base image plus ports, volumes, environment, libraries, build
// steps, and an optional entrypoint baked directly into the image.
type SingleImageSpec struct {
	Name       string
	From       string
	Maintainer string
	Exposes    []string
	Volumes    []string
	Envs       map[string]string
	Libs       []types.ResPath
	Runs       []types.ResPath
	Entrypoint *types.ResPath
}

// ContainerSystemSpec describes an image built by running a temporary
// multi-container system and deriving one or more images from it (§3
// "Build Plan").
type ContainerSystemSpec struct {
	Name       string
	System     string
	Root       string
	Entrypoint *types.ResPath
	Libs       []types.ResPath
	Commits    map[string]string
	Persists   map[string]string
}

// containerSystemKeys is the set of keys whose presence classifies a
// section as a Container-System Spec rather than a Single-Image Spec (§6).
var containerSystemKeys = []string{"system", "root", "commits", "persists"}

// ImageConfig is the parsed form of an image-definition configuration file:
// every section resolved to either a SingleImageSpec or a
// ContainerSystemSpec, plus the original declaration order (used by the
// Planner as a tiebreak within a dependency-graph level).
type ImageConfig struct {
	Singles map[string]*SingleImageSpec
	Systems map[string]*ContainerSystemSpec
	Order   []string
}

// LoadImageConfig reads and classifies every section of the image
// configuration file at path.
func LoadImageConfig(path string) (*ImageConfig, error) {
	sections, err := loadRawSections(path)
	if err != nil {
		return nil, err
	}

	cfg := &ImageConfig{
		Singles: make(map[string]*SingleImageSpec),
		Systems: make(map[string]*ContainerSystemSpec),
	}

	for _, sec := range sections {
		cfg.Order = append(cfg.Order, sec.name)

		if isContainerSystem(sec.vals) {
			spec, err := parseContainerSystemSpec(path, sec)
			if err != nil {
				return nil, err
			}
			cfg.Systems[sec.name] = spec
			continue
		}

		spec, err := parseSingleImageSpec(path, sec)
		if err != nil {
			return nil, err
		}
		cfg.Singles[sec.name] = spec
	}

	return cfg, nil
}

func isContainerSystem(vals map[string]string) bool {
	for _, k := range containerSystemKeys {
		if _, ok := vals[k]; ok {
			return true
		}
	}
	return false
}

func parseSingleImageSpec(path string, sec rawSection) (*SingleImageSpec, error) {
	from, ok := sec.vals["from"]
	if !ok {
		return nil, &ConfigurationError{File: path, Section: sec.name, Key: "from", Reason: "required for a single-image spec"}
	}

	spec := &SingleImageSpec{
		Name:       sec.name,
		From:       from,
		Maintainer: sec.vals["maintainer"],
		Exposes:    splitLines(sec.vals["exposes"]),
		Volumes:    splitLines(sec.vals["volumes"]),
		Envs:       make(map[string]string),
	}

	for _, line := range splitLines(sec.vals["envs"]) {
		k, v, ok := cutEnv(line)
		if !ok {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "envs", Value: line, Reason: "expected K=V"}
		}
		spec.Envs[k] = v
	}

	for _, line := range splitLines(sec.vals["libs"]) {
		rp, err := ParseResPath(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "libs", Value: line, Reason: err.Error()}
		}
		spec.Libs = append(spec.Libs, rp)
	}

	for _, line := range splitLines(sec.vals["runs"]) {
		rp, err := ParseResPath(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "runs", Value: line, Reason: err.Error()}
		}
		spec.Runs = append(spec.Runs, rp)
	}

	if raw, ok := sec.vals["entrypoint"]; ok {
		rp, err := ParseResPath(raw)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "entrypoint", Value: raw, Reason: err.Error()}
		}
		spec.Entrypoint = &rp
	}

	return spec, nil
}

func parseContainerSystemSpec(path string, sec rawSection) (*ContainerSystemSpec, error) {
	system, ok := sec.vals["system"]
	if !ok {
		return nil, &ConfigurationError{File: path, Section: sec.name, Key: "system", Reason: "required for a container-system spec"}
	}
	root, ok := sec.vals["root"]
	if !ok {
		return nil, &ConfigurationError{File: path, Section: sec.name, Key: "root", Reason: "required for a container-system spec"}
	}

	spec := &ContainerSystemSpec{
		Name:     sec.name,
		System:   system,
		Root:     root,
		Commits:  make(map[string]string),
		Persists: make(map[string]string),
	}

	if raw, ok := sec.vals["entrypoint"]; ok {
		rp, err := ParseResPath(raw)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "entrypoint", Value: raw, Reason: err.Error()}
		}
		spec.Entrypoint = &rp
	}

	for _, line := range splitLines(sec.vals["libs"]) {
		rp, err := ParseResPath(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "libs", Value: line, Reason: err.Error()}
		}
		spec.Libs = append(spec.Libs, rp)
	}

	for _, line := range splitLines(sec.vals["commits"]) {
		container, image, err := ParseDerivationSpec(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "commits", Value: line, Reason: err.Error()}
		}
		spec.Commits[container] = image
	}

	for _, line := range splitLines(sec.vals["persists"]) {
		container, image, err := ParseDerivationSpec(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "persists", Value: line, Reason: err.Error()}
		}
		spec.Persists[container] = image
	}

	return spec, nil
}

func cutEnv(line string) (key, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '=' {
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}
