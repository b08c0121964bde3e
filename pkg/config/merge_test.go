package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFleetConfigsMergesLaterOverEarlier(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.ini", `
[web]
image = app:1.0

[db]
image = postgres:16
`)
	override := writeConfig(t, dir, "override.ini", `
[web]
image = app:2.0
`)

	cfg, err := LoadFleetConfigs([]string{base, override})
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "db"}, cfg.Order)
	assert.Equal(t, "app:2.0", cfg.Containers["web"].Image)
	assert.Equal(t, "postgres:16", cfg.Containers["db"].Image)
}

func TestLoadImageConfigsMergesAcrossSpecKinds(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.ini", `
[builder]
from = debian:bookworm
`)
	override := writeConfig(t, dir, "override.ini", `
[builder]
system = fleet.ini
root = debian:bookworm
`)

	cfg, err := LoadImageConfigs([]string{base, override})
	require.NoError(t, err)
	assert.Equal(t, []string{"builder"}, cfg.Order)
	assert.Empty(t, cfg.Singles)
	require.Contains(t, cfg.Systems, "builder")
	assert.Equal(t, "fleet.ini", cfg.Systems["builder"].System)
}
