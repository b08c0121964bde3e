package consys

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rivetci/fleetyard/pkg/buildctx"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
	"github.com/rivetci/fleetyard/pkg/fleet"
	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/metrics"
	"github.com/rivetci/fleetyard/pkg/tempdir"
	"github.com/rivetci/fleetyard/pkg/types"
)

// derivation pairs a fleet member with the image name an image is derived
// into, the Go form of buildcsys.py's ContainerAndDest namedtuple.
type derivation struct {
	handle *container.Handle
	image  string
}

// Driver runs a temporary container system to completion and derives
// images from it by commit or by persisting volume data (§4.6). Construct
// with New, register derivations with Commit/Persist and volume includes
// with VolumeInclude, then call Execute, which runs both phases and always
// cleans up the fleet regardless of outcome, mirroring buildcsys.py's
// context-manager discipline.
type Driver struct {
	client   *dockerclient.Client
	fleet    *fleet.ScopedFleet
	root     *container.Handle
	commits  []derivation
	persists []derivation
	volDirs  *tempdir.KeyedDir
	quiet    bool
	logger   zerolog.Logger
}

// New builds a temporary fleet rooted at a non-detached container built
// from rootImage, with members additionally built from descriptors. The
// root container's position in the sync-group ordering is governed by
// whatever its own Links/VolumesFrom declare, same as any other member.
func New(client *dockerclient.Client, rootImage string, descriptors []*container.Descriptor, quiet bool) *Driver {
	rootDesc := container.NewTempDescriptor(rootImage)
	rootDesc.Detach = false

	all := make([]*container.Descriptor, 0, len(descriptors)+1)
	all = append(all, rootDesc)
	all = append(all, descriptors...)

	f := fleet.New(client, all)
	handles := f.Handles()

	return &Driver{
		client:  client,
		fleet:   fleet.Scope(f, fleet.CleanupRemove),
		root:    handles[0],
		volDirs: tempdir.NewKeyedDir(""),
		quiet:   quiet,
		logger:  log.WithComponent("consys"),
	}
}

// Root returns the handle for the system's root container, whose exit the
// driver waits on before deriving any images.
func (d *Driver) Root() *container.Handle {
	return d.root
}

// Commit registers that h's container should be committed directly to
// image once the system finishes running.
func (d *Driver) Commit(h *container.Handle, image string) {
	d.commits = append(d.commits, derivation{handle: h, image: image})
}

// Persist registers that h's declared volumes should be extracted and
// baked into a fresh image built from h's own base image, once the system
// finishes running.
func (d *Driver) Persist(h *container.Handle, image string) {
	d.persists = append(d.persists, derivation{handle: h, image: image})
}

// VolumeInclude arranges for a host-side resource to be copied into h's
// container at containerPath via a dedicated temp-directory volume mount,
// the Go analogue of buildcsys.py's volume_include (§4.2, §4.6 step 3–4).
// It mutates h's descriptor, so it must be called before the system runs.
func (d *Driver) VolumeInclude(h *container.Handle, srcPath, containerPath string, executable bool) error {
	containerDir := path.Dir(containerPath)

	vd, err := d.volDirs.ForContainerDir(h.Descriptor.Name, containerDir)
	if err != nil {
		return fmt.Errorf("consys: volume include: %w", err)
	}

	already := false
	for _, vb := range h.Descriptor.Volumes {
		if vb.HostPath == vd.Path() && vb.ContainerPath == containerDir {
			already = true
			break
		}
	}
	if !already {
		h.Descriptor.Volumes = append(h.Descriptor.Volumes, types.VolumeBinding{
			HostPath:      vd.Path(),
			ContainerPath: containerDir,
		})
	}

	destBasename := path.Base(containerPath)
	if err := vd.Include(srcPath, destBasename, executable); err != nil {
		return fmt.Errorf("consys: volume include: %w", err)
	}
	return nil
}

// Execute runs the system to completion, derives every registered image,
// and unconditionally tears down the temporary fleet via its scoped
// cleanup (remove), matching BuildContainerSystem's __exit__: _run always
// happens, cleanup of the per-container temp volume directories always
// happens, and _build (commit/persist) only runs if _run succeeded.
func (d *Driver) Execute(ctx context.Context) (err error) {
	defer func() {
		if cleanupErr := d.volDirs.CleanupAll(); cleanupErr != nil {
			d.logger.Warn().Err(cleanupErr).Msg("cleanup of temp volume directories failed")
		}
	}()
	defer func() {
		if closeErr := d.fleet.Close(ctx); closeErr != nil {
			d.logger.Warn().Err(closeErr).Msg("cleanup of temporary container system failed")
			if err == nil {
				err = closeErr
			}
		}
	}()

	if runErr := d.run(ctx); runErr != nil {
		return runErr
	}
	return d.build(ctx)
}

// run starts the whole system and blocks until the root container exits,
// then stops everything else (§4.6 step 5–6).
func (d *Driver) run(ctx context.Context) error {
	d.logger.Info().Msg("starting temporary container system")
	if err := d.fleet.InitContainers(ctx); err != nil {
		return fmt.Errorf("consys: starting container system: %w", err)
	}

	d.logger.Info().Msg("waiting for root container to finish")
	if _, _, err := d.root.Wait(ctx, 0, false); err != nil {
		return fmt.Errorf("consys: root container: %w", err)
	}

	d.logger.Info().Msg("stopping temporary container system")
	return d.fleet.StopContainers(ctx)
}

// build performs every registered commit and persist derivation (§4.6
// step 7–8).
func (d *Driver) build(ctx context.Context) error {
	for _, c := range d.commits {
		d.logger.Info().Str("container", c.handle.Descriptor.Name).Str("image", c.image).
			Msg("committing container to image")
		timer := metrics.NewTimer()
		err := d.client.Commit(ctx, c.handle.Descriptor.Name, c.image)
		timer.ObserveDurationVec(metrics.ImageDerivationDuration, string(types.DerivationCommit))
		if err != nil {
			metrics.ImageDerivationsTotal.WithLabelValues(string(types.DerivationCommit), "failure").Inc()
			return fmt.Errorf("consys: commit %s to %s: %w", c.handle.Descriptor.Name, c.image, err)
		}
		metrics.ImageDerivationsTotal.WithLabelValues(string(types.DerivationCommit), "success").Inc()
	}

	for _, p := range d.persists {
		timer := metrics.NewTimer()
		err := d.persistOne(ctx, p)
		timer.ObserveDurationVec(metrics.ImageDerivationDuration, string(types.DerivationPersist))
		if err != nil {
			metrics.ImageDerivationsTotal.WithLabelValues(string(types.DerivationPersist), "failure").Inc()
			return err
		}
		metrics.ImageDerivationsTotal.WithLabelValues(string(types.DerivationPersist), "success").Inc()
	}
	return nil
}

// persistOne extracts p.handle's declared volumes into a host temp
// directory via a throwaway busybox sidecar, then builds p.image from
// p.handle's base image with that tar's contents laid over it. This is
// the Go form of buildcsys.py's persist branch of _build, including the
// leading-slash-stripped tar argument list busybox's tar requires.
func (d *Driver) persistOne(ctx context.Context, p derivation) error {
	d.logger.Info().Str("container", p.handle.Descriptor.Name).Str("image", p.image).
		Msg("persisting container volumes to image")

	insp, err := d.client.Inspect(ctx, p.handle.Descriptor.Name)
	if err != nil {
		return fmt.Errorf("consys: persist %s: %w", p.handle.Descriptor.Name, err)
	}

	volumePaths := make([]string, 0, len(insp.Volumes))
	for containerPath := range insp.Volumes {
		volumePaths = append(volumePaths, strings.TrimPrefix(containerPath, "/"))
	}

	tdir, err := tempdir.New("")
	if err != nil {
		return fmt.Errorf("consys: persist %s: %w", p.handle.Descriptor.Name, err)
	}
	defer tdir.Cleanup()

	containerVolumeDir := "/" + tempdir.NewName("extract")
	containerTarPath := path.Join(containerVolumeDir, "extract.tar")
	hostTarPath := path.Join(tdir.Path(), "extract.tar")

	extractDesc := container.NewTempDescriptor("busybox")
	extractDesc.Detach = false
	extractDesc.Entrypoint = append([]string{"tar", "-cf", containerTarPath}, volumePaths...)
	extractDesc.Volumes = []types.VolumeBinding{
		{HostPath: tdir.Path(), ContainerPath: containerVolumeDir},
	}
	extractDesc.VolumesFrom = []types.VolumesFromBinding{
		{Container: p.handle.Descriptor.Name, ReadWrite: false},
	}

	extract := container.NewHandle(extractDesc, d.client)
	if err := extract.Init(ctx); err != nil {
		return fmt.Errorf("consys: persist %s: extracting volumes: %w", p.handle.Descriptor.Name, err)
	}
	if err := extract.Remove(ctx, true); err != nil {
		d.logger.Warn().Err(err).Msg("cleanup of volume-extraction sidecar failed")
	}

	buildCtx, err := buildctx.New(p.handle.Descriptor.Image, p.image, d.client, d.quiet)
	if err != nil {
		return fmt.Errorf("consys: persist %s: %w", p.handle.Descriptor.Name, err)
	}
	defer buildCtx.Close()

	if err := buildCtx.IncludeArchive(hostTarPath, "/"); err != nil {
		return fmt.Errorf("consys: persist %s: %w", p.handle.Descriptor.Name, err)
	}
	d.logger.Info().Str("image", p.image).Str("from", p.handle.Descriptor.Name).
		Msg("building image with persisted volume data")
	if err := buildCtx.Build(ctx); err != nil {
		return fmt.Errorf("consys: persist %s: %w", p.handle.Descriptor.Name, err)
	}
	return nil
}
