package dockerclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"

	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/types"
)

// Client is the daemon client adapter. It holds one *dockerclient.Client,
// which the SDK documents as safe for concurrent use, so a single Client is
// shared across every container in a fleet (§5 of the spec).
type Client struct {
	docker *dockerclient.Client
	logger zerolog.Logger
}

// New dials the daemon (from the environment: DOCKER_HOST, TLS settings,
// etc.) and negotiates an API version, failing if the connection cannot be
// established within timeout.
func New(timeout time.Duration) (*Client, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("dockerclient: connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("dockerclient: daemon unreachable: %w", err)
	}

	return &Client{docker: cli, logger: log.WithComponent("dockerclient")}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.docker.Close()
}

// Create brings a container into existence without starting it. image is a
// repository[:tag] reference; volumes are host-path-to-container-path bind
// mounts. Returns ErrAlreadyExists when a container of this name is already
// present; callers that treat create as idempotent recover with errors.Is.
func (c *Client) Create(ctx context.Context, name, image string, volumes []types.VolumeBinding, links []types.NetworkLink, volumesFrom []types.VolumesFromBinding, entrypoint []string, workingDir string, detach bool, opts types.CreateOptions) error {
	cfg := &container.Config{
		Image:        image,
		WorkingDir:   workingDir,
		Hostname:     opts.Hostname,
		AttachStdout: !detach,
		AttachStderr: !detach,
		Tty:          false,
	}
	if len(entrypoint) > 0 {
		cfg.Entrypoint = entrypoint
	}
	for k, v := range opts.Env {
		cfg.Env = append(cfg.Env, k+"="+v)
	}
	if len(opts.ExposedPorts) > 0 {
		cfg.ExposedPorts = make(map[nat.Port]struct{}, len(opts.ExposedPorts))
		for _, p := range opts.ExposedPorts {
			port, err := nat.NewPort("tcp", p)
			if err != nil {
				return fmt.Errorf("dockerclient: create %s: invalid exposed port %q: %w", name, p, err)
			}
			cfg.ExposedPorts[port] = struct{}{}
		}
	}

	hostCfg := &container.HostConfig{Privileged: opts.Privileged}
	for _, v := range volumes {
		bind := v.ContainerPath
		if v.HostPath != "" {
			bind = v.HostPath + ":" + v.ContainerPath
		}
		if v.ReadOnly {
			bind += ":ro"
		}
		hostCfg.Binds = append(hostCfg.Binds, bind)
	}
	for _, l := range links {
		hostCfg.Links = append(hostCfg.Links, l.Container+":"+l.Alias)
	}
	for _, vf := range volumesFrom {
		spec := vf.Container
		if vf.ReadWrite {
			spec += ":rw"
		} else {
			spec += ":ro"
		}
		hostCfg.VolumesFrom = append(hostCfg.VolumesFrom, spec)
	}

	_, err := c.docker.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		if errdefs.IsConflict(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("dockerclient: create %s: %w", name, err)
	}
	return nil
}

// Start launches an already-created container. links and volumesFrom are
// accepted per the adapter contract but resolved by Create's HostConfig —
// this daemon generation does not accept network links or volumes-from at
// start time, only at create time. Fails with ErrAbsent if the container
// does not exist.
func (c *Client) Start(ctx context.Context, name string, links []types.NetworkLink, volumesFrom []types.VolumesFromBinding) error {
	err := c.docker.ContainerStart(ctx, name, container.StartOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ErrAbsent
		}
		return fmt.Errorf("dockerclient: start %s: %w", name, err)
	}
	return nil
}

// Kill sends signal (e.g. "SIGTERM", "SIGKILL") to the container's main
// process.
func (c *Client) Kill(ctx context.Context, name, signal string) error {
	err := c.docker.ContainerKill(ctx, name, signal)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ErrAbsent
		}
		return fmt.Errorf("dockerclient: kill %s: %w", name, err)
	}
	return nil
}

// Wait blocks until the container exits or timeout elapses, whichever
// comes first. A zero timeout means wait forever. timedOut reports which
// of the two happened; exitCode is only meaningful when timedOut is false.
func (c *Client) Wait(ctx context.Context, name string, timeout time.Duration) (exitCode int, timedOut bool, err error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bodyCh, errCh := c.docker.ContainerWait(waitCtx, name, container.WaitConditionNotRunning)
	select {
	case body := <-bodyCh:
		return int(body.StatusCode), false, nil
	case waitErr := <-errCh:
		if errdefs.IsNotFound(waitErr) {
			return 0, false, ErrAbsent
		}
		return 0, false, fmt.Errorf("dockerclient: wait %s: %w", name, waitErr)
	case <-waitCtx.Done():
		return 0, true, nil
	}
}

// Remove deletes a container. When force is true the daemon stops a
// running container before removing it. When absentOK is true, the
// container not existing is treated as success.
func (c *Client) Remove(ctx context.Context, name string, force, absentOK bool) error {
	err := c.docker.ContainerRemove(ctx, name, container.RemoveOptions{Force: force})
	if err != nil {
		if errdefs.IsNotFound(err) {
			if absentOK {
				return nil
			}
			return ErrAbsent
		}
		return fmt.Errorf("dockerclient: remove %s: %w", name, err)
	}
	return nil
}

// Inspect returns the daemon's current view of a container, or ErrAbsent
// when no such container exists.
func (c *Client) Inspect(ctx context.Context, name string) (types.Inspection, error) {
	info, err := c.docker.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return types.Inspection{}, ErrAbsent
		}
		return types.Inspection{}, fmt.Errorf("dockerclient: inspect %s: %w", name, err)
	}

	insp := types.Inspection{
		Name:    info.Name,
		Pid:     0,
		Volumes: map[string]string{},
		Image:   info.Config.Image,
	}
	if info.State != nil {
		insp.Pid = info.State.Pid
		insp.ExitCode = info.State.ExitCode
		switch {
		case info.State.Running:
			insp.State = types.ContainerRunning
		case info.State.StartedAt != "" && info.State.StartedAt != "0001-01-01T00:00:00Z":
			insp.State = types.ContainerExited
		default:
			insp.State = types.ContainerCreated
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, info.State.StartedAt); parseErr == nil {
			insp.StartedAt = t
		}
	}
	for _, m := range info.Mounts {
		insp.Volumes[m.Destination] = m.Source
	}
	return insp, nil
}

// Logs returns the container's combined stdout/stderr byte stream captured
// so far.
func (c *Client) Logs(ctx context.Context, name string) ([]byte, error) {
	rc, err := c.docker.ContainerLogs(ctx, name, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, ErrAbsent
		}
		return nil, fmt.Errorf("dockerclient: logs %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Commit snapshots a container's writable layer into a new image under
// dest (repository[:tag]).
func (c *Client) Commit(ctx context.Context, name, dest string) error {
	_, err := c.docker.ContainerCommit(ctx, name, container.CommitOptions{Reference: dest})
	if err != nil {
		return fmt.Errorf("dockerclient: commit %s -> %s: %w", name, dest, err)
	}
	return nil
}

// RemoveImage deletes an image by reference or ID.
func (c *Client) RemoveImage(ctx context.Context, ref string) error {
	_, err := c.docker.ImageRemove(ctx, ref, image.RemoveOptions{Force: true})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("dockerclient: remove image %s: %w", ref, err)
	}
	return nil
}

// ImageHasUntaggedRef reports whether the image whose ID equals imageRef is
// currently tagged with the daemon's untagged sentinel ("<none>:<none>"),
// which cleanup_container uses to decide whether a dangling intermediate
// image should be removed alongside its container.
func (c *Client) ImageHasUntaggedRef(ctx context.Context, imageRef string) (bool, error) {
	summaries, err := c.docker.ImageList(ctx, image.ListOptions{All: true})
	if err != nil {
		return false, fmt.Errorf("dockerclient: list images: %w", err)
	}
	for _, s := range summaries {
		if s.ID != imageRef {
			continue
		}
		for _, tag := range s.RepoTags {
			if tag == "<none>:<none>" {
				return true, nil
			}
		}
		return len(s.RepoTags) == 0, nil
	}
	return false, nil
}
