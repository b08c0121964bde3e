package imagebuild

import (
	"context"
	"fmt"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/consys"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
)

// FleetLoader resolves the fleet configuration a container-system spec's
// System field names, lazily: callers that already hold every fleet
// configuration in memory can return a simple map lookup; a CLI typically
// loads the file named by System on first reference.
type FleetLoader func(system string) (*config.FleetConfig, error)

// BuildOne dispatches a single declared image name to the Build Context
// Assembler or the Container-System Build Driver, whichever its spec
// classifies as, mirroring nagoya/moromi.py's build_images dispatch
// (container_system_option_names.isdisjoint check).
func BuildOne(ctx context.Context, client *dockerclient.Client, images *config.ImageConfig, loadFleet FleetLoader, registry *container.CallbackRegistry, name string, envOverrides map[string]string, quiet bool) error {
	if sys, ok := images.Systems[name]; ok {
		var members *config.FleetConfig
		if sys.System != "" {
			var err error
			members, err = loadFleet(sys.System)
			if err != nil {
				return fmt.Errorf("imagebuild: %s: loading fleet %q: %w", name, sys.System, err)
			}
		}
		return consys.BuildFromSpec(ctx, client, sys, members, registry, quiet)
	}

	single, ok := images.Singles[name]
	if !ok {
		return fmt.Errorf("imagebuild: no image named %q in configuration", name)
	}
	return BuildSingleImage(ctx, client, single, envOverrides, quiet)
}
