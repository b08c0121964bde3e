package config

import "fmt"

// ConfigurationError reports a malformed configuration line or key, naming
// the offending file, section, key, and value so operators can find the
// problem without a stack trace (§0.2/§7 of SPEC_FULL.md).
type ConfigurationError struct {
	File    string
	Section string
	Key     string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s [%s] %s=%q: %s", e.File, e.Section, e.Key, e.Value, e.Reason)
}
