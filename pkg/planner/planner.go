package planner

import (
	"fmt"
	"strings"

	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/metrics"
)

// CycleError is returned by Plan when the dependency graph among declared
// images is not a DAG.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("planner: dependency cycle among images: %s", strings.Join(e.Names, ", "))
}

// Planner resolves a Build Plan from an image configuration, consulting
// the fleet configurations container-system specs reference so it can see
// the base images their members run from.
type Planner struct {
	images *config.ImageConfig
	fleets map[string]*config.FleetConfig
}

// New returns a Planner over images, resolving each container-system
// spec's member images against fleets (keyed by the spec's System field).
// A system name absent from fleets is treated as having no local fleet
// dependencies — its members are opaque to the graph.
func New(images *config.ImageConfig, fleets map[string]*config.FleetConfig) *Planner {
	return &Planner{images: images, fleets: fleets}
}

// Plan returns the ordered list of declared image names to build. When
// explicit is non-empty, it is returned unchanged and dependency
// resolution is skipped entirely (§4.7: "the caller supplies an explicit
// image list"). Otherwise every image in the configuration is scheduled,
// topologically sorted by local dependency with ties broken by original
// declaration order.
func (p *Planner) Plan(explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PlanResolutionDuration)

	plan, err := p.topoSort(p.dependencyGraph())
	if err != nil {
		return nil, err
	}
	metrics.PlannedImagesTotal.Set(float64(len(plan)))
	return plan, nil
}

// provisionMap maps an output image name to the declared spec name that
// produces it: a single-image spec provides only itself; a
// container-system spec provides itself plus every commit/persist
// destination (§4.7 "provision map").
func (p *Planner) provisionMap() map[string]string {
	providerOf := make(map[string]string, len(p.images.Order))
	for _, name := range p.images.Order {
		providerOf[baseImageName(name)] = name
		if sys, ok := p.images.Systems[name]; ok {
			for _, dest := range sys.Commits {
				providerOf[baseImageName(dest)] = name
			}
			for _, dest := range sys.Persists {
				providerOf[baseImageName(dest)] = name
			}
		}
	}
	return providerOf
}

// dependencyGraph computes, for each declared spec name, the set of other
// declared spec names it locally depends on (§4.7 "dependency graph").
func (p *Planner) dependencyGraph() map[string]map[string]struct{} {
	providerOf := p.provisionMap()
	deps := make(map[string]map[string]struct{}, len(p.images.Order))

	addDep := func(set map[string]struct{}, selfName, imageRef string) {
		base := baseImageName(imageRef)
		if provider, ok := providerOf[base]; ok && provider != selfName {
			set[provider] = struct{}{}
		}
	}

	for _, name := range p.images.Order {
		set := make(map[string]struct{})

		if single, ok := p.images.Singles[name]; ok {
			addDep(set, name, single.From)
		}

		if sys, ok := p.images.Systems[name]; ok {
			addDep(set, name, sys.Root)
			if fleetCfg := p.fleets[sys.System]; fleetCfg != nil {
				for _, memberName := range fleetCfg.Order {
					addDep(set, name, fleetCfg.Containers[memberName].Image)
				}
			}
		}

		deps[name] = set
	}
	return deps
}

// topoSort runs Kahn's algorithm over deps, breaking ties within a level
// by each name's index in the original configuration order rather than
// pkg/fleet's alphabetical tiebreak (§4.7: "order images by their original
// declaration order").
func (p *Planner) topoSort(deps map[string]map[string]struct{}) ([]string, error) {
	order := p.images.Order
	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}

	remaining := make(map[string]struct{}, len(order))
	for _, name := range order {
		remaining[name] = struct{}{}
	}

	var result []string
	for len(remaining) > 0 {
		var level []string
		for name := range remaining {
			if len(deps[name]) == 0 {
				level = append(level, name)
			}
		}
		if len(level) == 0 {
			cyclic := make([]string, 0, len(remaining))
			for name := range remaining {
				cyclic = append(cyclic, name)
			}
			sortByIndex(cyclic, index)
			return nil, &CycleError{Names: cyclic}
		}
		sortByIndex(level, index)

		for _, name := range level {
			delete(remaining, name)
		}
		for name := range remaining {
			for _, done := range level {
				delete(deps[name], done)
			}
		}
		result = append(result, level...)
	}
	return result, nil
}

func sortByIndex(names []string, index map[string]int) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && index[names[j-1]] > index[names[j]]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}

// baseImageName strips a "repo:tag" image reference down to its
// repository name, the "name portion" §4.7 matches a base image against a
// locally-provided image by.
func baseImageName(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 && !strings.Contains(ref[i+1:], "/") {
		return ref[:i]
	}
	return ref
}
