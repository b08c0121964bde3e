/*
Package log provides structured logging for fleetyard using zerolog.

It wraps zerolog to provide JSON or human-readable console logging with
component-specific child loggers, a configurable level, and helper functions
for common logging patterns. All logs include timestamps.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})

	logger := log.WithComponent("fleet")
	logger.Info().Str("fleet", name).Msg("starting sync-group")

	fleetLog := log.WithFleet("build-system")
	containerLog := log.WithContainer("root")
	imageLog := log.WithImage("alpha:latest")

# Component Loggers

  - WithComponent(name) — scopes a logger to a package/subsystem
    ("fleet", "dockerclient", "buildctx", "consys").
  - WithFleet(name) — scopes a logger to a fleet by name.
  - WithContainer(name) — scopes a logger to a container descriptor name.
  - WithImage(ref) — scopes a logger to an image reference.

# Design

The global Logger is configured once via Init and is safe for concurrent
use. Child loggers returned by the With* helpers copy the parent's level and
output, so reconfiguring the global logger before any child loggers are
created is the expected startup order (see cmd/fleetyard's
cobra.OnInitialize hook).
*/
package log
