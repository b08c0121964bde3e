package dockerclient

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivetci/fleetyard/pkg/types"
)

type closeableReader struct {
	io.Reader
}

func (closeableReader) Close() error { return nil }

func newStream(body string) *BuildEventStream {
	return &BuildEventStream{
		scanner: bufio.NewScanner(strings.NewReader(body)),
		body:    closeableReader{strings.NewReader(body)},
	}
}

func TestBuildEventStreamDecodesStreamRecords(t *testing.T) {
	s := newStream(`{"stream":" ---> Running in abc123\n"}` + "\n")
	ev, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.BuildEventStream, ev.Kind)
	assert.Contains(t, ev.Line, "Running in abc123")
}

func TestBuildEventStreamDecodesErrorRecords(t *testing.T) {
	s := newStream(`{"error":"something failed"}` + "\n")
	ev, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.BuildEventError, ev.Kind)
	assert.Equal(t, "something failed", ev.Error)
}

func TestBuildEventStreamSkipsUnrecognizedRecords(t *testing.T) {
	s := newStream("not json\n" + `{"stream":"hello\n"}` + "\n")
	ev, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello\n", ev.Line)
}

func TestBuildEventStreamEndsCleanly(t *testing.T) {
	s := newStream("")
	_, ok, err := s.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTarDirectoryPacksFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "file.txt"), []byte("data"), 0o644))

	r, err := tarDirectory(dir)
	require.NoError(t, err)

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
