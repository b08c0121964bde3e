package imagebuild

import (
	"context"
	"fmt"

	"github.com/rivetci/fleetyard/pkg/buildctx"
	"github.com/rivetci/fleetyard/pkg/config"
	"github.com/rivetci/fleetyard/pkg/dockerclient"
)

// BuildSingleImage assembles and submits the build context for a parsed
// Single-Image Spec: maintainer, exposed ports, volumes, environment
// assignments, included libraries, included-and-run build steps, and an
// optional included-and-declared entrypoint, in that order. envOverrides
// is merged over spec.Envs, letting a caller's --env flags win over the
// configuration file. Grounded on
// _examples/original_source/nagoya/moromi.py's build_image.
func BuildSingleImage(ctx context.Context, client *dockerclient.Client, spec *config.SingleImageSpec, envOverrides map[string]string, quiet bool) error {
	bc, err := buildctx.New(spec.From, spec.Name, client, quiet)
	if err != nil {
		return fmt.Errorf("imagebuild: %s: %w", spec.Name, err)
	}
	defer bc.Close()

	if spec.Maintainer != "" {
		bc.Maintainer(spec.Maintainer)
	}

	for _, port := range spec.Exposes {
		bc.Expose(port)
	}

	for _, volume := range spec.Volumes {
		bc.Volume(volume)
	}

	env := make(map[string]string, len(spec.Envs)+len(envOverrides))
	for k, v := range spec.Envs {
		env[k] = v
	}
	for k, v := range envOverrides {
		env[k] = v
	}
	for _, k := range sortedKeys(env) {
		bc.Env(k, env[k])
	}

	for _, lib := range spec.Libs {
		if err := bc.Include(lib.Src, lib.Dest, false); err != nil {
			return fmt.Errorf("imagebuild: %s: libs: %w", spec.Name, err)
		}
	}

	previousWorkdir := ""
	for _, run := range spec.Runs {
		if err := bc.Include(run.Src, run.Dest, true); err != nil {
			return fmt.Errorf("imagebuild: %s: runs: %w", spec.Name, err)
		}
		if run.DestDir != previousWorkdir {
			bc.Workdir(run.DestDir)
			previousWorkdir = run.DestDir
		}
		bc.Run(run.Dest, nil)
	}

	if spec.Entrypoint != nil {
		ep := spec.Entrypoint
		if err := bc.Include(ep.Src, ep.Dest, true); err != nil {
			return fmt.Errorf("imagebuild: %s: entrypoint: %w", spec.Name, err)
		}
		if ep.DestDir != previousWorkdir {
			bc.Workdir(ep.DestDir)
		}
		bc.Entrypoint(ep.Dest, nil)
	}

	return bc.Build(ctx)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
