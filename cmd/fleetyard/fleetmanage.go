package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/events"
	"github.com/rivetci/fleetyard/pkg/fleet"
	"github.com/rivetci/fleetyard/pkg/log"
)

const daemonConnectTimeout = 10 * time.Second

var fleetManageCmd = &cobra.Command{
	Use:   "fleet-manage",
	Short: "Drive a fleet configuration's lifecycle directly",
}

func init() {
	fleetManageCmd.AddCommand(
		newFleetManageOpCmd("init", "create and start every container, dependencies first", (*fleet.Fleet).InitContainers),
		newFleetManageOpCmd("start", "start every container, dependencies first", (*fleet.Fleet).StartContainers),
		newFleetManageOpCmd("stop", "stop every container, dependents first", (*fleet.Fleet).StopContainers),
		newFleetManageOpCmd("remove", "remove every container, dependents first", (*fleet.Fleet).RemoveContainers),
	)
}

func newFleetManageOpCmd(use, short string, op func(*fleet.Fleet, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFleetManageOp(cmd.Context(), op)
		},
	}
}

func runFleetManageOp(ctx context.Context, op func(*fleet.Fleet, context.Context) error) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("fleet-manage: at least one --config is required")
	}

	fleetCfg, err := config.LoadFleetConfigs(configPaths)
	if err != nil {
		return fmt.Errorf("fleet-manage: %w", err)
	}

	client, err := dockerclient.New(daemonConnectTimeout)
	if err != nil {
		return fmt.Errorf("fleet-manage: %w", err)
	}
	defer client.Close()

	registry := container.NewCallbackRegistry()
	descriptors, err := fleetCfg.Descriptors(registry)
	if err != nil {
		return fmt.Errorf("fleet-manage: %w", err)
	}

	f := fleet.New(client, descriptors)

	if quietCount == 0 {
		broker := events.NewBroker()
		broker.Start()
		sub := broker.Subscribe()
		defer func() {
			broker.Unsubscribe(sub)
			broker.Stop()
		}()
		go forwardEvents(sub)
		f.SetBroker(broker)
	}

	log.WithFleet("default").Info().Int("size", len(descriptors)).Msg("running fleet operation")
	return op(f, ctx)
}

// forwardEvents prints each event's message to the terminal as it arrives,
// independent of the structured log stream, until sub is closed by
// Unsubscribe.
func forwardEvents(sub events.Subscriber) {
	for ev := range sub {
		fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
	}
}
