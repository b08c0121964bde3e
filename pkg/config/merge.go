package config

// LoadFleetConfigs reads every path in order and merges them into a single
// FleetConfig, later files' sections overriding earlier ones of the same
// name, mirroring nagoya/cli/cfg.py's read_config (dictionary.update per
// file). Declaration order tracks first appearance, not last.
func LoadFleetConfigs(paths []string) (*FleetConfig, error) {
	merged := &FleetConfig{Containers: make(map[string]*ContainerConfig)}
	for _, path := range paths {
		cfg, err := LoadFleetConfig(path)
		if err != nil {
			return nil, err
		}
		for _, name := range cfg.Order {
			if _, exists := merged.Containers[name]; !exists {
				merged.Order = append(merged.Order, name)
			}
			merged.Containers[name] = cfg.Containers[name]
		}
	}
	return merged, nil
}

// LoadImageConfigs reads every path in order and merges them into a single
// ImageConfig with the same override-by-name semantics as
// LoadFleetConfigs.
func LoadImageConfigs(paths []string) (*ImageConfig, error) {
	merged := &ImageConfig{
		Singles: make(map[string]*SingleImageSpec),
		Systems: make(map[string]*ContainerSystemSpec),
	}
	for _, path := range paths {
		cfg, err := LoadImageConfig(path)
		if err != nil {
			return nil, err
		}
		for _, name := range cfg.Order {
			if _, exists := merged.Singles[name]; !exists {
				if _, exists := merged.Systems[name]; !exists {
					merged.Order = append(merged.Order, name)
				}
			}
			delete(merged.Singles, name)
			delete(merged.Systems, name)
			if single, ok := cfg.Singles[name]; ok {
				merged.Singles[name] = single
			}
			if sys, ok := cfg.Systems[name]; ok {
				merged.Systems[name] = sys
			}
		}
	}
	return merged, nil
}
