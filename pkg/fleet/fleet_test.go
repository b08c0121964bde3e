package fleet

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivetci/fleetyard/pkg/container"
	"github.com/rivetci/fleetyard/pkg/types"
)

func descriptor(name string, links, volumesFrom []string) *container.Descriptor {
	d := container.NewDescriptor(name, "scratch")
	for _, l := range links {
		d.Links = append(d.Links, types.NetworkLink{Container: l, Alias: l})
	}
	for _, vf := range volumesFrom {
		d.VolumesFrom = append(d.VolumesFrom, types.VolumesFromBinding{Container: vf})
	}
	return d
}

func groupNames(t *testing.T, groups [][]*container.Handle) [][]string {
	t.Helper()
	out := make([][]string, len(groups))
	for i, g := range groups {
		var names []string
		for _, h := range g {
			names = append(names, h.Descriptor.Name)
		}
		sort.Strings(names)
		out[i] = names
	}
	return out
}

func indexOf(groups [][]string, name string) int {
	for i, g := range groups {
		for _, n := range g {
			if n == name {
				return i
			}
		}
	}
	return -1
}

func TestSyncGroupsTopologicalCorrectness(t *testing.T) {
	// root depends on dep via a network link, matching S1 in §8.
	f := New(nil, []*container.Descriptor{
		descriptor("root", []string{"dep"}, nil),
		descriptor("dep", nil, nil),
		descriptor("unrelated", nil, nil),
	})

	groups, err := f.SyncGroups()
	require.NoError(t, err)

	named := groupNames(t, groups)
	assert.Less(t, indexOf(named, "dep"), indexOf(named, "root"),
		"dep's group must come strictly before root's group")
}

func TestSyncGroupsIndependentMembersShareAGroup(t *testing.T) {
	f := New(nil, []*container.Descriptor{
		descriptor("a", nil, nil),
		descriptor("b", nil, nil),
	})

	groups, err := f.SyncGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestSyncGroupsVolumesFromDependency(t *testing.T) {
	f := New(nil, []*container.Descriptor{
		descriptor("data", nil, nil),
		descriptor("consumer", nil, []string{"data"}),
	})

	groups, err := f.SyncGroups()
	require.NoError(t, err)
	named := groupNames(t, groups)
	assert.Less(t, indexOf(named, "data"), indexOf(named, "consumer"))
}

func TestSyncGroupsExternalDependencyIsIgnored(t *testing.T) {
	// "external" names no descriptor in the fleet: it's an externally
	// managed container already present on the daemon and never
	// participates in this fleet's sync-group ordering.
	f := New(nil, []*container.Descriptor{
		descriptor("root", []string{"external"}, nil),
	})

	groups, err := f.SyncGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 1)
	assert.Equal(t, "root", groups[0][0].Descriptor.Name)
}

func TestSyncGroupsCycleDetection(t *testing.T) {
	f := New(nil, []*container.Descriptor{
		descriptor("a", []string{"b"}, nil),
		descriptor("b", []string{"c"}, nil),
		descriptor("c", []string{"a"}, nil),
	})

	_, err := f.SyncGroups()
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycleErr.Names)
}

func TestSyncGroupsRecomputeOnAdd(t *testing.T) {
	f := New(nil, []*container.Descriptor{descriptor("a", nil, nil)})
	groups, err := f.SyncGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	f.Add(descriptor("b", []string{"a"}, nil))
	groups, err = f.SyncGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
}

// TestContainersExecParallelism verifies §8 property 3: K independent
// containers each performing a blocking operation of duration d complete
// the group in time close to d, not K*d.
func TestContainersExecParallelism(t *testing.T) {
	const k = 5
	const d = 40 * time.Millisecond

	descs := make([]*container.Descriptor, k)
	for i := range descs {
		descs[i] = descriptor(string(rune('a'+i)), nil, nil)
	}
	f := New(nil, descs)

	start := time.Now()
	err := f.ContainersExec(context.Background(), func(ctx context.Context, h *container.Handle) error {
		time.Sleep(d)
		return nil
	}, false)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, k*d, "group should run in parallel, not sequentially")
}

// TestContainersExecOrderingUnderReversal verifies §8 property 4: stop/
// remove traverse sync-groups in reverse, so a dependency is only acted on
// after its dependent.
func TestContainersExecOrderingUnderReversal(t *testing.T) {
	f := New(nil, []*container.Descriptor{
		descriptor("root", []string{"dep"}, nil),
		descriptor("dep", nil, nil),
	})

	var mu sync.Mutex
	var order []string
	record := func(ctx context.Context, h *container.Handle) error {
		mu.Lock()
		order = append(order, h.Descriptor.Name)
		mu.Unlock()
		return nil
	}

	require.NoError(t, f.ContainersExec(context.Background(), record, true))

	rootIdx, depIdx := -1, -1
	for i, n := range order {
		if n == "root" {
			rootIdx = i
		}
		if n == "dep" {
			depIdx = i
		}
	}
	require.NotEqual(t, -1, rootIdx)
	require.NotEqual(t, -1, depIdx)
	assert.Less(t, rootIdx, depIdx, "root (the dependent) must be stopped before dep")
}

// TestContainersExecAggregatesFailures verifies §8 scenario S5: a group
// where multiple members fail with distinct errors raises one
// AggregateError containing all of them, and in-flight work in the group
// still completes.
func TestContainersExecAggregatesFailures(t *testing.T) {
	f := New(nil, []*container.Descriptor{
		descriptor("good", nil, nil),
		descriptor("bad1", nil, nil),
		descriptor("bad2", nil, nil),
	})

	var mu sync.Mutex
	completed := make(map[string]bool)

	err := f.ContainersExec(context.Background(), func(ctx context.Context, h *container.Handle) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		completed[h.Descriptor.Name] = true
		mu.Unlock()
		if h.Descriptor.Name == "bad1" || h.Descriptor.Name == "bad2" {
			return assert.AnError
		}
		return nil
	}, false)

	require.Error(t, err)
	var aggErr *AggregateError
	require.ErrorAs(t, err, &aggErr)
	assert.Len(t, aggErr.Errors, 2)

	assert.True(t, completed["good"])
	assert.True(t, completed["bad1"])
	assert.True(t, completed["bad2"])
}

func TestScopedFleetCloseWithCleanupNothingSucceeds(t *testing.T) {
	f := New(nil, []*container.Descriptor{descriptor("solo", nil, nil)})
	scoped := Scope(f, CleanupNothing)
	assert.NoError(t, scoped.Close(context.Background()))
}
