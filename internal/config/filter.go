package config

import (
	"fmt"
	"path"
	"strings"
)

// OperationFilter narrows the exposed operations by name. Patterns use
// path.Match syntax, e.g. "list_*" or "get_event?".
type OperationFilter struct {
	Mode       string   `json:"mode" yaml:"mode"` // "allowlist" or "blocklist"
	Operations []string `json:"operations" yaml:"operations"`
}

func (f *OperationFilter) Validate() error {
	if f.Mode == "" {
		return fmt.Errorf("filter.mode is required")
	}
	mode := strings.ToLower(f.Mode)
	if mode != "allowlist" && mode != "blocklist" {
		return fmt.Errorf("filter.mode must be 'allowlist' or 'blocklist', got %q", f.Mode)
	}
	if len(f.Operations) == 0 {
		return fmt.Errorf("filter.operations cannot be empty")
	}
	for j, pattern := range f.Operations {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("filter.operations[%d]: pattern is empty", j)
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("filter.operations[%d]: invalid glob pattern %q", j, pattern)
		}
	}
	return nil
}

// Allows reports whether the operation name passes the filter. A nil filter
// allows everything.
func (f *OperationFilter) Allows(name string) bool {
	if f == nil {
		return true
	}
	matched := false
	for _, pattern := range f.Operations {
		if ok, _ := path.Match(pattern, name); ok {
			matched = true
			break
		}
	}
	if strings.ToLower(f.Mode) == "blocklist" {
		return !matched
	}
	return matched
}
