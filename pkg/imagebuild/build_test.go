package imagebuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/types"
)

func TestBuildSingleImageFailsOnMissingLibSource(t *testing.T) {
	spec := &config.SingleImageSpec{
		Name: "app",
		From: "debian:bookworm",
		Libs: []types.ResPath{{Src: "/does/not/exist", Dest: "/opt/app/thing", DestDir: "/opt/app"}},
	}

	err := BuildSingleImage(context.Background(), nil, spec, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libs")
}

func TestSortedKeysOrdersAlphabetically(t *testing.T) {
	got := sortedKeys(map[string]string{"z": "1", "a": "2", "m": "3"})
	assert.Equal(t, []string{"a", "m", "z"}, got)
}

func TestBuildOneRejectsUnknownImageName(t *testing.T) {
	images := &config.ImageConfig{
		Singles: map[string]*config.SingleImageSpec{},
		Systems: map[string]*config.ContainerSystemSpec{},
	}
	err := BuildOne(context.Background(), nil, images, nil, container.NewCallbackRegistry(), "nonexistent", nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}
