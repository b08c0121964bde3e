package consys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivetci/fleetyard/pkg/container"
)

func TestNewRootIsFirstHandle(t *testing.T) {
	sidecar := container.NewDescriptor("sidecar", "redis")
	d := New(nil, "debian:bookworm", []*container.Descriptor{sidecar}, true)

	handles := d.fleet.Handles()
	require.Len(t, handles, 2)
	assert.Same(t, d.root, handles[0])
	assert.Equal(t, "debian:bookworm", d.root.Descriptor.Image)
	assert.False(t, d.root.Descriptor.Detach)
	assert.Equal(t, "sidecar", handles[1].Descriptor.Name)
}

func TestCommitAndPersistBookkeeping(t *testing.T) {
	d := New(nil, "debian:bookworm", nil, true)
	builder := d.fleet.Add(container.NewDescriptor("builder", "debian:bookworm"))

	d.Commit(builder, "app:latest")
	d.Persist(builder, "app-data:latest")

	require.Len(t, d.commits, 1)
	assert.Equal(t, "app:latest", d.commits[0].image)
	require.Len(t, d.persists, 1)
	assert.Equal(t, "app-data:latest", d.persists[0].image)
}

func TestVolumeIncludeMutatesDescriptorOnce(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.jar")
	require.NoError(t, os.WriteFile(src, []byte("jar bytes"), 0o644))

	d := New(nil, "debian:bookworm", nil, true)
	builder := d.fleet.Add(container.NewDescriptor("builder", "debian:bookworm"))

	require.NoError(t, d.VolumeInclude(builder, src, "/srv/app/app.jar", false))
	require.NoError(t, d.VolumeInclude(builder, src, "/srv/app/app.jar", false))

	require.Len(t, builder.Descriptor.Volumes, 1, "second include to the same container dir must not add a duplicate volume binding")
	vb := builder.Descriptor.Volumes[0]
	assert.Equal(t, "/srv/app", vb.ContainerPath)
	assert.NotEmpty(t, vb.HostPath)

	copied := filepath.Join(vb.HostPath, "app.jar")
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "jar bytes", string(data))

	require.NoError(t, d.volDirs.CleanupAll())
}

func TestVolumeIncludeSeparatesDifferentContainerDirs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lib.so")
	require.NoError(t, os.WriteFile(src, []byte("lib"), 0o644))

	d := New(nil, "debian:bookworm", nil, true)
	builder := d.fleet.Add(container.NewDescriptor("builder", "debian:bookworm"))

	require.NoError(t, d.VolumeInclude(builder, src, "/srv/app/lib.so", false))
	require.NoError(t, d.VolumeInclude(builder, src, "/opt/other/lib.so", false))

	require.Len(t, builder.Descriptor.Volumes, 2)
	require.NoError(t, d.volDirs.CleanupAll())
}
