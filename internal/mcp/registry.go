package mcp

import (
	"fmt"
	"sort"
	"strings"

	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/tools"
)

type Tool struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
}

// Registry is the MCP view of the operation registry.
type Registry struct {
	Tools map[string]*Tool
}

func NewRegistry(ops *tools.Registry) *Registry {
	registry := &Registry{Tools: map[string]*Tool{}}
	for _, op := range ops.Sorted() {
		registry.Tools[op.Name] = &Tool{
			Name:         op.Name,
			Description:  buildDescription(op),
			InputSchema:  op.InputSchema(),
			OutputSchema: outputSchema(),
		}
	}
	return registry
}

// outputSchema describes the structured result of every tool call.
func outputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind": map[string]any{
				"type": "string",
				"enum": []any{
					string(canonical.KindSuccess),
					string(canonical.KindUpstreamError),
					string(canonical.KindTransportError),
					string(canonical.KindValidationError),
				},
			},
			"status":  map[string]any{"type": "integer"},
			"body":    map[string]any{},
			"message": map[string]any{"type": "string"},
			"field":   map[string]any{"type": "string"},
		},
		"required": []string{"kind"},
	}
}

func (r *Registry) SortedTools() []*Tool {
	out := make([]*Tool, 0, len(r.Tools))
	for _, tool := range r.Tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func buildDescription(op *tools.Operation) string {
	base := strings.TrimSpace(op.Description)
	if base == "" {
		base = op.Name
	}
	if op.Result != "" {
		base += " Returns " + op.Result + "."
	}
	params := parameterDescriptions(op)
	if len(params) == 0 {
		return base
	}
	return base + " Parameters: " + strings.Join(params, "; ")
}

func parameterDescriptions(op *tools.Operation) []string {
	entries := []string{}
	for _, f := range op.Fields {
		entry := fmt.Sprintf("%s (%s, %s)", f.Name, requiredLabel(f.Required), f.Type)
		if f.Default != nil {
			entry += fmt.Sprintf(" default %v", f.Default)
		}
		entries = append(entries, entry)
	}
	if len(entries) > 12 {
		entries = append(entries[:12], fmt.Sprintf("... and %d more", len(entries)-12))
	}
	return entries
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}
