// Command fleetyard is the multi-command front-end for the orchestration
// engine: fleet-manage drives a fleet configuration's lifecycle directly,
// image-build dispatches declared images through the Planner to the
// single-image or container-system path (§6 "CLI surface").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rivetci/fleetyard/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fleetyard",
	Short: "fleetyard - container build pipeline orchestrator",
	Long: `fleetyard orchestrates heterogeneous container-based build
pipelines against a container daemon: it composes multi-container
"systems" whose lifecycles are coordinated by dependency order, then
uses those systems as ephemeral machinery to produce new container
images, either by committing a running container's state or by
extracting a sibling container's volume contents and rebuilding them
into a fresh image.`,
	Version: Version,
}

var (
	configPaths  []string
	quietCount   int
	verboseCount int
	quietBuild   bool
	envPairs     []string
)

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fleetyard version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringArrayVar(&configPaths, "config", nil, "configuration file path (repeatable)")
	rootCmd.PersistentFlags().CountVar(&quietCount, "quiet", "decrease verbosity (repeatable)")
	rootCmd.PersistentFlags().CountVar(&verboseCount, "verbose", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&quietBuild, "quiet-build", false, "suppress the daemon's build-progress output")
	rootCmd.PersistentFlags().StringArrayVar(&envPairs, "env", nil, "K=V environment assignment (repeatable, image-build only)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(fleetManageCmd)
	rootCmd.AddCommand(imageBuildCmd)
}

func initLogging() {
	level := log.InfoLevel
	switch {
	case verboseCount > 0:
		level = log.DebugLevel
	case quietCount > 0:
		level = log.ErrorLevel
	}
	log.Init(log.Config{Level: level})
}
