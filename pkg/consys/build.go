package consys

import (
	"context"
	"fmt"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
)

// BuildFromSpec wires a parsed ContainerSystemSpec and its fleet
// configuration into a Driver and runs it to completion: it marks the root
// container, volume-includes the entrypoint and every lib entry into it,
// registers every commit/persist derivation, and executes the system
// (§4.6 steps 2-9).
func BuildFromSpec(ctx context.Context, client *dockerclient.Client, spec *config.ContainerSystemSpec, members *config.FleetConfig, registry *container.CallbackRegistry, quiet bool) error {
	var descriptors []*container.Descriptor
	if members != nil {
		var err error
		descriptors, err = members.Descriptors(registry)
		if err != nil {
			return fmt.Errorf("consys: %s: %w", spec.Name, err)
		}
	}

	d := New(client, spec.Root, descriptors, quiet)
	root := d.Root()

	if spec.Entrypoint != nil {
		root.Descriptor.WorkingDir = spec.Entrypoint.DestDir
		if err := d.VolumeInclude(root, spec.Entrypoint.Src, spec.Entrypoint.Dest, true); err != nil {
			return fmt.Errorf("consys: %s: entrypoint: %w", spec.Name, err)
		}
		root.Descriptor.Entrypoint = []string{spec.Entrypoint.Dest}
	}

	for _, lib := range spec.Libs {
		if err := d.VolumeInclude(root, lib.Src, lib.Dest, false); err != nil {
			return fmt.Errorf("consys: %s: libs: %w", spec.Name, err)
		}
	}

	handles := d.fleet.Handles()
	byName := make(map[string]*container.Handle, len(handles))
	for _, h := range handles {
		byName[h.Descriptor.Name] = h
	}
	resolve := func(name string) (*container.Handle, error) {
		h, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("consys: %s: derivation names unknown container %q", spec.Name, name)
		}
		return h, nil
	}

	for from, to := range spec.Commits {
		h, err := resolve(from)
		if err != nil {
			return err
		}
		d.Commit(h, to)
	}
	for from, to := range spec.Persists {
		h, err := resolve(from)
		if err != nil {
			return err
		}
		d.Persist(h, to)
	}

	return d.Execute(ctx)
}
