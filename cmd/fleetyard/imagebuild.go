package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/imagebuild"
	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/planner"
)

var imageBuildCmd = &cobra.Command{
	Use:   "image-build",
	Short: "Dispatch declared images through the Planner",
}

func init() {
	imageBuildCmd.AddCommand(
		&cobra.Command{
			Use:   "all",
			Short: "build every declared image in dependency order",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImageBuild(nil)
			},
		},
		&cobra.Command{
			Use:   "build [image ...]",
			Short: "build the named images (dependency order skipped if given explicitly)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImageBuild(args)
			},
		},
		&cobra.Command{
			Use:   "clean [image ...]",
			Short: "remove the named images, or every declared image if none are given",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImageClean(args)
			},
		},
	)
}

func parseEnvOverrides() (map[string]string, error) {
	out := make(map[string]string, len(envPairs))
	for _, pair := range envPairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("image-build: invalid --env %q, expected K=V", pair)
		}
		out[k] = v
	}
	return out, nil
}

// loadFleetsForSystems preloads every fleet configuration a container-system
// spec references, keyed by its System path, so the Planner can see the
// base images those fleets' members run from (§4.7 "dependency graph").
func loadFleetsForSystems(images *config.ImageConfig) (map[string]*config.FleetConfig, error) {
	fleets := make(map[string]*config.FleetConfig)
	for _, sys := range images.Systems {
		if sys.System == "" {
			continue
		}
		if _, ok := fleets[sys.System]; ok {
			continue
		}
		fc, err := config.LoadFleetConfig(sys.System)
		if err != nil {
			return nil, fmt.Errorf("image-build: loading system %q: %w", sys.System, err)
		}
		fleets[sys.System] = fc
	}
	return fleets, nil
}

func runImageBuild(explicit []string) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("image-build: at least one --config is required")
	}

	images, err := config.LoadImageConfigs(configPaths)
	if err != nil {
		return fmt.Errorf("image-build: %w", err)
	}
	fleets, err := loadFleetsForSystems(images)
	if err != nil {
		return err
	}
	envOverrides, err := parseEnvOverrides()
	if err != nil {
		return err
	}

	plan, err := planner.New(images, fleets).Plan(explicit)
	if err != nil {
		return fmt.Errorf("image-build: %w", err)
	}

	client, err := dockerclient.New(daemonConnectTimeout)
	if err != nil {
		return fmt.Errorf("image-build: %w", err)
	}
	defer client.Close()

	registry := container.NewCallbackRegistry()
	loadFleet := func(system string) (*config.FleetConfig, error) {
		if fc, ok := fleets[system]; ok {
			return fc, nil
		}
		return config.LoadFleetConfig(system)
	}

	for _, name := range plan {
		log.WithImage(name).Info().Msg("building image")
		if err := imagebuild.BuildOne(rootCmd.Context(), client, images, loadFleet, registry, name, envOverrides, quietBuild); err != nil {
			return fmt.Errorf("image-build: %s: %w", name, err)
		}
	}
	return nil
}

func runImageClean(names []string) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("image-build: at least one --config is required")
	}

	images, err := config.LoadImageConfigs(configPaths)
	if err != nil {
		return fmt.Errorf("image-build: %w", err)
	}
	if len(names) == 0 {
		names = images.Order
	}

	client, err := dockerclient.New(daemonConnectTimeout)
	if err != nil {
		return fmt.Errorf("image-build: %w", err)
	}
	defer client.Close()

	for _, name := range names {
		log.WithImage(name).Info().Msg("removing image")
		if err := client.RemoveImage(rootCmd.Context(), name); err != nil {
			return fmt.Errorf("image-build: clean %s: %w", name, err)
		}
	}
	return nil
}
