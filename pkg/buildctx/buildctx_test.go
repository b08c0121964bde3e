package buildctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream replays a fixed slice of events, satisfying eventSource.
type fakeStream struct {
	events []dockerBuildEvent
	i      int
}

func (f *fakeStream) Next() (dockerBuildEvent, bool, error) {
	if f.i >= len(f.events) {
		return dockerBuildEvent{}, false, nil
	}
	e := f.events[f.i]
	f.i++
	return e, true, nil
}

func streamEvent(line string) dockerBuildEvent {
	return dockerBuildEvent{Kind: "stream", Line: line}
}

// TestWatchBuildInterpretsIntermediateContainers verifies §8 property 6:
// given " ---> Running in C1", a step result, the removal of C1,
// " ---> Running in C2", a step result and the error event "error: X",
// the assembler reports the failure against C2 with an error line
// containing "X".
func TestWatchBuildInterpretsIntermediateContainers(t *testing.T) {
	stream := &fakeStream{events: []dockerBuildEvent{
		streamEvent(" ---> Running in C1"),
		streamEvent(" ---> c1image"),
		streamEvent("Removing intermediate container C1"),
		streamEvent(" ---> Running in C2"),
		streamEvent(" ---> c2image"),
		{Kind: "error", Error: "error: X"},
	}}

	latest, errLines, failed, err := watchBuild(stream, true, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, "C2", latest)
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], "X")
}

func TestWatchBuildRemovingUntrackedContainerDoesNotFail(t *testing.T) {
	stream := &fakeStream{events: []dockerBuildEvent{
		streamEvent(" ---> Running in C1"),
		streamEvent("Removing intermediate container SOMETHING_ELSE"),
	}}

	latest, errLines, failed, err := watchBuild(stream, true, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Empty(t, errLines)
	assert.Empty(t, latest, "latest container is cleared even when the removed id doesn't match")
}

func TestWatchBuildSuccessHasNoTrackedContainer(t *testing.T) {
	stream := &fakeStream{events: []dockerBuildEvent{
		streamEvent(" ---> Running in C1"),
		streamEvent("Removing intermediate container C1"),
		{Kind: "status", Line: ""},
	}}

	latest, errLines, failed, err := watchBuild(stream, true, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Empty(t, errLines)
	assert.Empty(t, latest)
}

func TestIncludeGrammar(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(srcFile, []byte("print(1)"), 0o644))

	c, err := New("scratch", "test:latest", nil, true)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Include(srcFile, "/x/a.py", true))

	assert.Equal(t, []string{
		"FROM scratch",
		"ADD x/a.py /x/a.py",
	}, c.instructions)

	copied := filepath.Join(c.tempDir.Path(), "x", "a.py")
	info, err := os.Stat(copied)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "include with executable=true must set an execute bit")
}

func TestRunAndEntrypointJSONArrayForm(t *testing.T) {
	c, err := New("scratch", "test:latest", nil, true)
	require.NoError(t, err)
	defer c.Close()

	c.Run("/x/a.py", []string{"--flag"})
	c.Entrypoint("/x/b.py", nil)

	assert.Contains(t, c.instructions, `RUN ["/x/a.py","--flag"]`)
	assert.Contains(t, c.instructions, `ENTRYPOINT ["/x/b.py"]`)
}
