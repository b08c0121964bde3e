package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/rivetci/fleetyard/pkg/types"
)

// ParseResPath parses the "SOURCE in DIR" / "SOURCE at PATH" grammar
// (§0.6, §8 property 8) shared by libs/runs/entrypoint parsing: "in DIR"
// means the destination is DIR/basename(SOURCE) with working directory
// DIR; "at PATH" means the destination is PATH with working directory
// dirname(PATH).
func ParseResPath(spec string) (types.ResPath, error) {
	inIdx := strings.LastIndex(spec, " in ")
	atIdx := strings.LastIndex(spec, " at ")

	switch {
	case inIdx >= 0 && (atIdx < 0 || inIdx > atIdx):
		src := strings.TrimSpace(spec[:inIdx])
		dir := strings.TrimSpace(spec[inIdx+len(" in "):])
		if src == "" || dir == "" {
			break
		}
		dest := path.Join(dir, path.Base(src))
		return types.ResPath{Src: src, Dest: dest, DestDir: dir}, nil
	case atIdx >= 0:
		src := strings.TrimSpace(spec[:atIdx])
		dest := strings.TrimSpace(spec[atIdx+len(" at "):])
		if src == "" || dest == "" {
			break
		}
		return types.ResPath{Src: src, Dest: dest, DestDir: path.Dir(dest)}, nil
	}
	return types.ResPath{}, fmt.Errorf("config: invalid resource path spec %q, expected \"SOURCE in DIR\" or \"SOURCE at PATH\"", spec)
}

// ParseVolumeSpec parses "HOST:CONTAINER" or a bare "CONTAINER" (an
// anonymous volume) into a VolumeBinding.
func ParseVolumeSpec(spec string) (types.VolumeBinding, error) {
	if spec == "" {
		return types.VolumeBinding{}, fmt.Errorf("config: empty volume spec")
	}
	host, container, ok := strings.Cut(spec, ":")
	if !ok {
		return types.VolumeBinding{ContainerPath: host}, nil
	}
	return types.VolumeBinding{HostPath: host, ContainerPath: container}, nil
}

// ParseLinkSpec parses "CONTAINER:ALIAS" into a NetworkLink.
func ParseLinkSpec(spec string) (types.NetworkLink, error) {
	container, alias, ok := strings.Cut(spec, ":")
	if !ok || container == "" || alias == "" {
		return types.NetworkLink{}, fmt.Errorf("config: invalid link spec %q, expected \"CONTAINER:ALIAS\"", spec)
	}
	return types.NetworkLink{Container: container, Alias: alias}, nil
}

// ParseVolumesFromSpec parses "CONTAINER:MODE" into a VolumesFromBinding;
// MODE is "rw" or "ro" (case-insensitive), matching rw=read-write.
func ParseVolumesFromSpec(spec string) (types.VolumesFromBinding, error) {
	container, mode, ok := strings.Cut(spec, ":")
	if !ok || container == "" {
		return types.VolumesFromBinding{}, fmt.Errorf("config: invalid volumes_from spec %q, expected \"CONTAINER:MODE\"", spec)
	}
	return types.VolumesFromBinding{Container: container, ReadWrite: strings.EqualFold(mode, "rw")}, nil
}

// ParseDerivationSpec parses "CONTAINER to IMAGE", the grammar shared by
// the commits and persists configuration keys.
func ParseDerivationSpec(spec string) (container, image string, err error) {
	parts := strings.SplitN(spec, " to ", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("config: invalid derivation spec %q, expected \"CONTAINER to IMAGE\"", spec)
	}
	container = strings.TrimSpace(parts[0])
	image = strings.TrimSpace(parts[1])
	if container == "" || image == "" {
		return "", "", fmt.Errorf("config: invalid derivation spec %q, expected \"CONTAINER to IMAGE\"", spec)
	}
	return container, image, nil
}

// truthyStrings mirrors aconf.py's boolean coercion table: a fixed set of strings
// (case-insensitive) are true, everything else is false.
var truthyStrings = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
}

// ParseBool coerces a configuration value using the truthy-string table
// rather than Go's strict strconv.ParseBool (§0.6: "boolean option
// coercion").
func ParseBool(value string) bool {
	return truthyStrings[strings.ToLower(strings.TrimSpace(value))]
}

// splitLines splits a multi-line configuration value (as produced by
// gopkg.in/ini.v1's Python-style multi-line values) into trimmed,
// non-empty lines.
func splitLines(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
