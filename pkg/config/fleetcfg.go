package config

import (
	"fmt"

	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/types"
)

// ContainerConfig describes one fleet member's section in a fleet
// configuration file: the image to run it from, its runtime bindings, and
// its dependencies on other members of the same fleet (§4.2-4.4, §6 "Fleet
// configuration file").
type ContainerConfig struct {
	Name        string
	Image       string
	Hostname    string
	Entrypoint  []string
	WorkingDir  string
	Detach      bool
	RunOnce     bool
	Ports       []string
	Volumes     []types.VolumeBinding
	VolumesFrom []types.VolumesFromBinding
	Links       []types.NetworkLink
	Envs        map[string]string
	Privileged  bool
	Multiple    bool
	Callbacks   []string
}

// FleetConfig is the parsed form of a fleet configuration file: every
// section resolved to a ContainerConfig, in declaration order.
type FleetConfig struct {
	Containers map[string]*ContainerConfig
	Order      []string
}

// LoadFleetConfig reads and parses the fleet configuration file at path.
func LoadFleetConfig(path string) (*FleetConfig, error) {
	sections, err := loadRawSections(path)
	if err != nil {
		return nil, err
	}

	cfg := &FleetConfig{Containers: make(map[string]*ContainerConfig)}

	for _, sec := range sections {
		cfg.Order = append(cfg.Order, sec.name)

		c, err := parseContainerConfig(path, sec)
		if err != nil {
			return nil, err
		}
		cfg.Containers[sec.name] = c
	}

	return cfg, nil
}

func parseContainerConfig(path string, sec rawSection) (*ContainerConfig, error) {
	image, ok := sec.vals["image"]
	if !ok {
		return nil, &ConfigurationError{File: path, Section: sec.name, Key: "image", Reason: "required for a fleet member"}
	}

	c := &ContainerConfig{
		Name:       sec.name,
		Image:      image,
		Hostname:   sec.vals["hostname"],
		Entrypoint: splitLines(sec.vals["entrypoint"]),
		WorkingDir: sec.vals["working_dir"],
		Detach:     ParseBool(sec.vals["detach"]),
		RunOnce:    ParseBool(sec.vals["run_once"]),
		Ports:      splitLines(sec.vals["ports"]),
		Envs:       make(map[string]string),
		Privileged: ParseBool(sec.vals["privileged"]),
		Multiple:   ParseBool(sec.vals["multiple"]),
		Callbacks:  splitLines(sec.vals["callbacks"]),
	}

	for _, line := range splitLines(sec.vals["volumes"]) {
		vb, err := ParseVolumeSpec(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "volumes", Value: line, Reason: err.Error()}
		}
		c.Volumes = append(c.Volumes, vb)
	}

	for _, line := range splitLines(sec.vals["volumes_from"]) {
		vf, err := ParseVolumesFromSpec(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "volumes_from", Value: line, Reason: err.Error()}
		}
		c.VolumesFrom = append(c.VolumesFrom, vf)
	}

	for _, line := range splitLines(sec.vals["links"]) {
		l, err := ParseLinkSpec(line)
		if err != nil {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "links", Value: line, Reason: err.Error()}
		}
		c.Links = append(c.Links, l)
	}

	for _, line := range splitLines(sec.vals["envs"]) {
		k, v, ok := cutEnv(line)
		if !ok {
			return nil, &ConfigurationError{File: path, Section: sec.name, Key: "envs", Value: line, Reason: "expected K=V"}
		}
		c.Envs[k] = v
	}

	return c, nil
}

// ToDescriptor builds the Container Descriptor for c, the bridge between
// the configuration grammar and the Fleet Manager's runtime model.
// Callback coordinates are resolved through registry; a container.Handle
// has not been constructed yet at this point, so callbacks are attached to
// the Descriptor and fire once a Handle wraps it (§9 "callbacks looked up
// by string coordinate").
func (c *ContainerConfig) ToDescriptor(registry *container.CallbackRegistry) (*container.Descriptor, error) {
	d := container.NewDescriptor(c.Name, c.Image)
	d.Volumes = c.Volumes
	d.VolumesFrom = c.VolumesFrom
	d.Links = c.Links
	d.Hostname = c.Hostname
	d.Privileged = c.Privileged
	d.ExposedPorts = c.Ports
	d.Env = c.Envs
	d.WorkingDir = c.WorkingDir
	d.Detach = c.Detach
	d.RunOnce = c.RunOnce
	if len(c.Entrypoint) > 0 {
		d.Entrypoint = c.Entrypoint
	}

	for _, line := range c.Callbacks {
		cb, err := registry.ParseCallspec(line)
		if err != nil {
			return nil, fmt.Errorf("config: container %s: %w", c.Name, err)
		}
		d.Callbacks = append(d.Callbacks, cb)
	}
	return d, nil
}

// Descriptors returns every fleet member's Container Descriptor in
// declaration order, resolving each member's callback coordinates through
// registry.
func (fc *FleetConfig) Descriptors(registry *container.CallbackRegistry) ([]*container.Descriptor, error) {
	out := make([]*container.Descriptor, 0, len(fc.Order))
	for _, name := range fc.Order {
		d, err := fc.Containers[name].ToDescriptor(registry)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DependsOn returns the names of other fleet members c depends on via
// volumes_from or links, the edges the Fleet Manager's topological sort
// orders on (§4.4).
func (c *ContainerConfig) DependsOn() []string {
	var deps []string
	for _, vf := range c.VolumesFrom {
		deps = append(deps, vf.Container)
	}
	for _, l := range c.Links {
		deps = append(deps, l.Container)
	}
	return deps
}
