package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadImageConfigSingleImage(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "images.ini", `
[web]
from = debian:bookworm
maintainer = ops@example.com
exposes = 8080
	8443
volumes = /data
envs = PORT=8080
	MODE=prod
libs = ./app.jar in /srv/app
runs = ./provision.sh at /tmp/provision.sh
entrypoint = ./start.sh at /srv/app/start.sh
`)

	cfg, err := LoadImageConfig(p)
	require.NoError(t, err)
	require.Contains(t, cfg.Singles, "web")
	require.Empty(t, cfg.Systems)

	web := cfg.Singles["web"]
	assert.Equal(t, "debian:bookworm", web.From)
	assert.Equal(t, "ops@example.com", web.Maintainer)
	assert.ElementsMatch(t, []string{"8080", "8443"}, web.Exposes)
	assert.Equal(t, []string{"/data"}, web.Volumes)
	assert.Equal(t, "8080", web.Envs["PORT"])
	assert.Equal(t, "prod", web.Envs["MODE"])
	require.Len(t, web.Libs, 1)
	assert.Equal(t, "/srv/app/app.jar", web.Libs[0].Dest)
	require.NotNil(t, web.Entrypoint)
	assert.Equal(t, "/srv/app/start.sh", web.Entrypoint.Dest)
}

func TestLoadImageConfigContainerSystem(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "images.ini", `
[app]
system = myfleet
root = builder
entrypoint = ./start.sh at /srv/app/start.sh
commits = builder to app:latest
persists = builder to app-data:latest
`)

	cfg, err := LoadImageConfig(p)
	require.NoError(t, err)
	require.Contains(t, cfg.Systems, "app")
	require.Empty(t, cfg.Singles)

	app := cfg.Systems["app"]
	assert.Equal(t, "myfleet", app.System)
	assert.Equal(t, "builder", app.Root)
	assert.Equal(t, "app:latest", app.Commits["builder"])
	assert.Equal(t, "app-data:latest", app.Persists["builder"])
}

func TestLoadImageConfigMissingFrom(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "images.ini", "[web]\nmaintainer = ops@example.com\n")

	_, err := LoadImageConfig(p)
	require.Error(t, err)
}

func TestLoadImageConfigPlaceholderExpansion(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "images.ini", `
[web]
from = debian:bookworm
libs = {secdir}/app.jar at /srv/app/app.jar
`)

	cfg, err := LoadImageConfig(p)
	require.NoError(t, err)
	want := filepath.Join(dir, "web", "app.jar")
	assert.Equal(t, want, cfg.Singles["web"].Libs[0].Src)
}
