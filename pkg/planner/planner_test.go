package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivetci/fleetyard/pkg/config"
)

func imageConfig(order []string, singles map[string]*config.SingleImageSpec, systems map[string]*config.ContainerSystemSpec) *config.ImageConfig {
	if singles == nil {
		singles = map[string]*config.SingleImageSpec{}
	}
	if systems == nil {
		systems = map[string]*config.ContainerSystemSpec{}
	}
	return &config.ImageConfig{Order: order, Singles: singles, Systems: systems}
}

func TestPlanExplicitListBypassesResolution(t *testing.T) {
	p := New(imageConfig(nil, nil, nil), nil)
	got, err := p.Plan([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got)
}

func TestPlanDependencyOrdering(t *testing.T) {
	// S6: img1 from img2; img2 from scratch, declared img1 first.
	cfg := imageConfig(
		[]string{"img1", "img2"},
		map[string]*config.SingleImageSpec{
			"img1": {Name: "img1", From: "img2"},
			"img2": {Name: "img2", From: "scratch"},
		},
		nil,
	)
	p := New(cfg, nil)
	got, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"img2", "img1"}, got)
}

func TestPlanDeclarationOrderTiebreak(t *testing.T) {
	cfg := imageConfig(
		[]string{"c", "b", "a"},
		map[string]*config.SingleImageSpec{
			"a": {Name: "a", From: "scratch"},
			"b": {Name: "b", From: "scratch"},
			"c": {Name: "c", From: "scratch"},
		},
		nil,
	)
	p := New(cfg, nil)
	got, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestPlanContainerSystemProvidesCommitDestination(t *testing.T) {
	cfg := imageConfig(
		[]string{"downstream", "base-system"},
		map[string]*config.SingleImageSpec{
			"downstream": {Name: "downstream", From: "base-system-output:latest"},
		},
		map[string]*config.ContainerSystemSpec{
			"base-system": {
				Name:    "base-system",
				Root:    "debian:bookworm",
				System:  "basefleet",
				Commits: map[string]string{"builder": "base-system-output:latest"},
			},
		},
	)
	p := New(cfg, nil)
	got, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"base-system", "downstream"}, got)
}

func TestPlanContainerSystemDependsOnFleetMemberImages(t *testing.T) {
	cfg := imageConfig(
		[]string{"system-image", "lib-image"},
		map[string]*config.SingleImageSpec{
			"lib-image": {Name: "lib-image", From: "scratch"},
		},
		map[string]*config.ContainerSystemSpec{
			"system-image": {
				Name:   "system-image",
				Root:   "debian:bookworm",
				System: "myfleet",
			},
		},
	)
	fleets := map[string]*config.FleetConfig{
		"myfleet": {
			Order: []string{"dep"},
			Containers: map[string]*config.ContainerConfig{
				"dep": {Name: "dep", Image: "lib-image:latest"},
			},
		},
	}
	p := New(cfg, fleets)
	got, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib-image", "system-image"}, got)
}

func TestPlanDetectsCycle(t *testing.T) {
	cfg := imageConfig(
		[]string{"a", "b"},
		map[string]*config.SingleImageSpec{
			"a": {Name: "a", From: "b:latest"},
			"b": {Name: "b", From: "a:latest"},
		},
		nil,
	)
	p := New(cfg, nil)
	_, err := p.Plan(nil)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Names)
}

func TestPlanIgnoresExternalBaseImages(t *testing.T) {
	cfg := imageConfig(
		[]string{"app"},
		map[string]*config.SingleImageSpec{
			"app": {Name: "app", From: "debian:bookworm"},
		},
		nil,
	)
	p := New(cfg, nil)
	got, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, got)
}
