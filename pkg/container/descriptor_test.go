package container

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivetci/fleetyard/pkg/types"
)

func TestNewDescriptorGeneratesNameWhenEmpty(t *testing.T) {
	d := NewDescriptor("", "debian:bookworm")
	assert.NotEmpty(t, d.Name)
	assert.True(t, d.Detach)
}

func TestNewDescriptorKeepsGivenName(t *testing.T) {
	d := NewDescriptor("web", "debian:bookworm")
	assert.Equal(t, "web", d.Name)
}

func TestNewTempDescriptorStripsTag(t *testing.T) {
	d := NewTempDescriptor("busybox:1.36")
	assert.Contains(t, d.Name, "busybox.")
	assert.Equal(t, "busybox:1.36", d.Image)
}

func TestDependencyNames(t *testing.T) {
	d := NewDescriptor("web", "myapp")
	d.Links = []types.NetworkLink{{Container: "db", Alias: "database"}}
	d.VolumesFrom = []types.VolumesFromBinding{{Container: "data"}}

	deps := d.DependencyNames()
	assert.Len(t, deps, 2)
	_, ok := deps["db"]
	assert.True(t, ok)
	_, ok = deps["data"]
	assert.True(t, ok)
}
