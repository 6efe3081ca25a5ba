package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry maps operation names to descriptors. It is built once and never
// mutated, so lookups need no locking.
type Registry struct {
	ops map[string]*Operation
}

// NewRegistry indexes ops and compiles each input schema. A duplicate name
// or an uncompilable schema is a configuration error.
func NewRegistry(ops []*Operation) (*Registry, error) {
	registry := &Registry{ops: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		if op == nil || op.Name == "" {
			return nil, fmt.Errorf("operation without a name")
		}
		if _, dup := registry.ops[op.Name]; dup {
			return nil, fmt.Errorf("duplicate operation %q", op.Name)
		}
		op.inputSchema = inputSchema(op.Fields)
		validator, err := compileSchema(op.Name, op.inputSchema)
		if err != nil {
			return nil, fmt.Errorf("operation %s: compile schema: %w", op.Name, err)
		}
		op.validator = validator
		registry.ops[op.Name] = op
	}
	return registry, nil
}

// Default builds the registry of every Calendly operation.
func Default() (*Registry, error) {
	return NewRegistry(Catalog())
}

func (r *Registry) Lookup(name string) (*Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

func (r *Registry) Len() int {
	return len(r.ops)
}

// Sorted returns the operations ordered by name.
func (r *Registry) Sorted() []*Operation {
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Filter returns a registry exposing only the operations keep accepts.
func (r *Registry) Filter(keep func(name string) bool) *Registry {
	out := &Registry{ops: map[string]*Operation{}}
	for name, op := range r.ops {
		if keep(name) {
			out.ops[name] = op
		}
	}
	return out
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	resource := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}
