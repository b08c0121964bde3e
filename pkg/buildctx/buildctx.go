package buildctx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/metrics"
	"github.com/rivetci/fleetyard/pkg/tempdir"
	"github.com/rivetci/fleetyard/pkg/types"
)

// dockerBuildEvent aliases types.BuildEvent so eventSource can be satisfied
// by *dockerclient.BuildEventStream without this package importing it only
// for that one signature.
type dockerBuildEvent = types.BuildEvent

// BuildFailedError is raised when the build event stream carries an error
// event. It carries the tracked intermediate container identifier (which
// may be empty if none was observed before the failure) and the
// accumulated error lines, so the caller can run the cleanup protocol.
type BuildFailedError struct {
	IntermediateContainer string
	ErrorLines            []string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("buildctx: build failed (intermediate container %q): %s",
		e.IntermediateContainer, strings.Join(e.ErrorLines, "; "))
}

var (
	detailPattern    = regexp.MustCompile(`^ ---> (.*)$`)
	runningInPattern = regexp.MustCompile(`^Running in (.*)$`)
	removingPattern  = regexp.MustCompile(`^Removing intermediate container (.*)$`)
)

// Context is a scoped Temp Resource Directory plus an ordered instruction
// manifest (§4.5, §3 Build Context). Instructions accumulate as Dockerfile
// lines and are written to disk only when Build is called, sealing the
// manifest. The zero value is not usable; construct with New.
type Context struct {
	tempDir      *tempdir.Dir
	instructions []string
	tag          string
	client       *dockerclient.Client
	quiet        bool
	logger       zerolog.Logger
}

// New creates the scoped temp directory and records the base-image
// declaration, which is always the first instruction (§4.5). tag is the
// image reference the eventual build will produce.
func New(fromImage, tag string, client *dockerclient.Client, quiet bool) (*Context, error) {
	dir, err := tempdir.New("")
	if err != nil {
		return nil, fmt.Errorf("buildctx: %w", err)
	}
	c := &Context{
		tempDir: dir,
		tag:     tag,
		client:  client,
		quiet:   quiet,
		logger:  log.WithComponent("buildctx").With().Str("tag", tag).Logger(),
	}
	c.writeLine("FROM", fromImage)
	return c, nil
}

// Close releases the underlying temp directory. Callers defer this
// immediately after New, mirroring the scoped acquisition in §4.2/§4.5.
func (c *Context) Close() error {
	return c.tempDir.Cleanup()
}

func (c *Context) writeLine(args ...string) {
	c.instructions = append(c.instructions, strings.Join(args, " "))
}

// Maintainer records the MAINTAINER instruction.
func (c *Context) Maintainer(maintainer string) {
	c.writeLine("MAINTAINER", maintainer)
}

// Expose records an EXPOSE instruction for one port.
func (c *Context) Expose(port string) {
	c.writeLine("EXPOSE", port)
}

// Volume records a VOLUME instruction.
func (c *Context) Volume(volume string) {
	c.writeLine("VOLUME", volume)
}

// Workdir records a WORKDIR instruction.
func (c *Context) Workdir(dir string) {
	c.writeLine("WORKDIR", dir)
}

// Env records an ENV instruction assigning value to key.
func (c *Context) Env(key, value string) {
	c.writeLine("ENV", key, value)
}

// Add records an ADD instruction copying contextPath (relative to the
// context directory root) to imagePath.
func (c *Context) Add(contextPath, imagePath string) {
	c.writeLine("ADD", contextPath, imagePath)
}

// Include copies source into the context directory at imagePath's
// normalized relative path and records an ADD instruction with that same
// relative path, so the file lands at imagePath in the built image. This
// is the convenience form of Include+Add described in §4.5.
func (c *Context) Include(source, imagePath string, executable bool) error {
	relPath := path.Clean(strings.TrimPrefix(imagePath, "/"))
	if err := c.tempDir.Include(source, relPath, executable); err != nil {
		return fmt.Errorf("buildctx: include %s: %w", source, err)
	}
	c.Add(relPath, imagePath)
	return nil
}

// IncludeArchive copies a local tar archive into the context directory and
// records an ADD instruction targeting imagePath, relying on Docker's
// built-in behavior of auto-extracting a local tar source named in ADD
// rather than copying it as an opaque file. This is the form
// buildcsys.py's persist derivation needs (context.include(tar, "/")),
// kept distinct from Include because a directory destination like "/"
// would otherwise collide with the context-relative path of the archive
// itself.
func (c *Context) IncludeArchive(source, imagePath string) error {
	const name = "persist.tar"
	if err := c.tempDir.Include(source, name, false); err != nil {
		return fmt.Errorf("buildctx: include archive %s: %w", source, err)
	}
	c.Add(name, imagePath)
	return nil
}

// Run records a RUN instruction in JSON-array (exec) form, invoking
// imagePath with args.
func (c *Context) Run(imagePath string, args []string) {
	c.writeLine("RUN", jsonArray(append([]string{imagePath}, args...)))
}

// Entrypoint records an ENTRYPOINT instruction in JSON-array (exec) form.
func (c *Context) Entrypoint(imagePath string, args []string) {
	c.writeLine("ENTRYPOINT", jsonArray(append([]string{imagePath}, args...)))
}

func jsonArray(parts []string) string {
	b, _ := json.Marshal(parts)
	return string(b)
}

// Build seals the manifest (writes the Dockerfile into the context
// directory), submits the context to the daemon, and interprets the
// resulting event stream per the " ---> " / "Running in CONTAINER" /
// "Removing intermediate container CONTAINER" state machine in §4.5. On a
// build-failed event it runs the cleanup protocol against the tracked
// intermediate container before returning the error.
func (c *Context) Build(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BuildDuration)

	dockerfile := strings.Join(c.instructions, "\n") + "\n"
	dockerfilePath := c.tempDir.Path() + "/Dockerfile"
	if err := os.WriteFile(dockerfilePath, []byte(dockerfile), 0o644); err != nil {
		metrics.BuildsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("buildctx: write Dockerfile: %w", err)
	}

	stream, err := c.client.Build(ctx, c.tempDir.Path(), c.tag, c.quiet)
	if err != nil {
		metrics.BuildsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("buildctx: submit build: %w", err)
	}
	defer stream.Close()

	latestContainer, errorLines, failed, err := watchBuild(stream, c.quiet, c.logger)
	if err != nil {
		metrics.BuildsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("buildctx: reading build stream: %w", err)
	}

	if failed {
		metrics.BuildsTotal.WithLabelValues("failure").Inc()
		if latestContainer != "" {
			c.cleanupContainer(ctx, latestContainer)
		}
		return &BuildFailedError{IntermediateContainer: latestContainer, ErrorLines: errorLines}
	}

	metrics.BuildsTotal.WithLabelValues("success").Inc()
	return nil
}

// eventSource is the minimal surface watchBuild needs from a build event
// stream; *dockerclient.BuildEventStream satisfies it, and tests exercise
// watchBuild directly against a fake implementation (§8 property 6).
type eventSource interface {
	Next() (dockerBuildEvent, bool, error)
}

// watchBuild is the single-pass state machine described in §4.5 and §9
// ("stream processing of build events"): it tracks the latest intermediate
// container announced by a " ---> Running in CONTAINER" detail line,
// clears it when any "Removing intermediate container CONTAINER" line
// arrives (a removed id that differs from the tracked one is only logged
// at debug level), and accumulates error-event lines. It is grounded on
// _examples/original_source/nagoya/dockerext/build.py's watch_build.
func watchBuild(src eventSource, quiet bool, logger zerolog.Logger) (latestContainer string, errorLines []string, failed bool, err error) {
	for {
		event, ok, nextErr := src.Next()
		if nextErr != nil {
			return latestContainer, errorLines, failed, nextErr
		}
		if !ok {
			return latestContainer, errorLines, failed, nil
		}

		switch {
		case event.Error != "":
			logger.Error().Str("error", event.Error).Msg("build error")
			errorLines = append(errorLines, event.Error)
			failed = true
		case event.Line != "":
			for _, line := range strings.Split(event.Line, "\n") {
				trimmed := strings.TrimRight(line, " \t\r")
				if trimmed == "" {
					continue
				}
				if m := detailPattern.FindStringSubmatch(trimmed); m != nil {
					logger.Debug().Msg(trimmed)
					if ri := runningInPattern.FindStringSubmatch(m[1]); ri != nil {
						latestContainer = ri[1]
					}
					continue
				}
				if m := removingPattern.FindStringSubmatch(trimmed); m != nil {
					logger.Debug().Msg(trimmed)
					if m[1] != latestContainer {
						logger.Debug().Str("removed", m[1]).Str("tracked", latestContainer).
							Msg("daemon removed an untracked intermediate container")
					}
					latestContainer = ""
					continue
				}
				if !quiet {
					fmt.Print(line)
				}
			}
		}
	}
}

// cleanupContainer implements §4.5's cleanup_container: kill signal 9,
// remove the container, then — if the container's backing image exists and
// carries only the daemon's untagged sentinel ("<none>:<none>") — remove
// that image too. All daemon errors here are logged at debug and
// swallowed, matching the original's try/except-and-log behavior.
func (c *Context) cleanupContainer(ctx context.Context, containerID string) {
	metrics.BuildCleanupsTotal.WithLabelValues("intermediate_container").Inc()

	insp, err := c.client.Inspect(ctx, containerID)
	if err != nil {
		c.logger.Debug().Err(err).Str("container", containerID).Msg("cleanup: container doesn't exist")
		return
	}

	if err := c.client.Kill(ctx, containerID, "SIGKILL"); err != nil {
		c.logger.Debug().Err(err).Str("container", containerID).Msg("cleanup: couldn't kill container")
	}
	if err := c.client.Remove(ctx, containerID, true, true); err != nil {
		c.logger.Debug().Err(err).Str("container", containerID).Msg("cleanup: couldn't remove container")
	} else {
		c.logger.Info().Str("container", containerID).Msg("removed intermediate container")
	}

	if insp.Image == "" {
		c.logger.Debug().Str("container", containerID).Msg("cleanup: container has no image")
		return
	}
	untagged, err := c.client.ImageHasUntaggedRef(ctx, insp.Image)
	if err != nil {
		c.logger.Debug().Err(err).Str("image", insp.Image).Msg("cleanup: couldn't list images")
		return
	}
	if !untagged {
		c.logger.Debug().Str("image", insp.Image).Msg("cleanup: image wasn't untagged")
		return
	}
	if err := c.client.RemoveImage(ctx, insp.Image); err != nil {
		c.logger.Debug().Err(err).Str("image", insp.Image).Msg("cleanup: couldn't remove image")
		return
	}
	metrics.BuildCleanupsTotal.WithLabelValues("intermediate_image").Inc()
	c.logger.Info().Str("image", insp.Image).Msg("removed intermediate image")
}
