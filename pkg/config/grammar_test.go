package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResPath(t *testing.T) {
	cases := []struct {
		name    string
		spec    string
		want    string
		wantDir string
		wantErr bool
	}{
		{name: "in form", spec: "./app.jar in /srv/app", want: "/srv/app/app.jar", wantDir: "/srv/app"},
		{name: "at form", spec: "./start.sh at /srv/app/bin/start.sh", want: "/srv/app/bin/start.sh", wantDir: "/srv/app/bin"},
		{name: "prefers rightmost in over earlier at", spec: "x at y in /z", want: "/z/x at y", wantDir: "/z"},
		{name: "missing keyword", spec: "./app.jar", wantErr: true},
		{name: "empty source", spec: " in /srv/app", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rp, err := ParseResPath(tc.spec)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, rp.Dest)
			assert.Equal(t, tc.wantDir, rp.DestDir)
		})
	}
}

func TestParseVolumeSpec(t *testing.T) {
	vb, err := ParseVolumeSpec("/host/data:/data")
	require.NoError(t, err)
	assert.Equal(t, "/host/data", vb.HostPath)
	assert.Equal(t, "/data", vb.ContainerPath)

	anon, err := ParseVolumeSpec("/data")
	require.NoError(t, err)
	assert.Empty(t, anon.HostPath)
	assert.Equal(t, "/data", anon.ContainerPath)

	_, err = ParseVolumeSpec("")
	assert.Error(t, err)
}

func TestParseLinkSpec(t *testing.T) {
	l, err := ParseLinkSpec("db:database")
	require.NoError(t, err)
	assert.Equal(t, "db", l.Container)
	assert.Equal(t, "database", l.Alias)

	_, err = ParseLinkSpec("db")
	assert.Error(t, err)
}

func TestParseVolumesFromSpec(t *testing.T) {
	vf, err := ParseVolumesFromSpec("data:rw")
	require.NoError(t, err)
	assert.Equal(t, "data", vf.Container)
	assert.True(t, vf.ReadWrite)

	vf, err = ParseVolumesFromSpec("data:ro")
	require.NoError(t, err)
	assert.False(t, vf.ReadWrite)

	_, err = ParseVolumesFromSpec(":rw")
	assert.Error(t, err)
}

func TestParseDerivationSpec(t *testing.T) {
	container, image, err := ParseDerivationSpec("builder to myapp:latest")
	require.NoError(t, err)
	assert.Equal(t, "builder", container)
	assert.Equal(t, "myapp:latest", image)

	_, _, err = ParseDerivationSpec("builder")
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "True", "1", "yes", "YES", "on"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"false", "0", "no", "off", "", "garbage"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitLines("a\n  b  \n\n"))
	assert.Nil(t, splitLines(""))
}
