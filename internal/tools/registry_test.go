package tools

import (
	"net/http"
	"strings"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	registry, err := Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if registry.Len() != len(Catalog()) {
		t.Fatalf("expected %d operations, got %d", len(Catalog()), registry.Len())
	}
	for _, op := range registry.Sorted() {
		if op.Description == "" {
			t.Fatalf("%s has no description", op.Name)
		}
		if op.InputSchema()["type"] != "object" {
			t.Fatalf("%s: unexpected schema %+v", op.Name, op.InputSchema())
		}
		for _, f := range op.Fields {
			if f.In == InPath && !strings.Contains(op.Path, "{"+f.Name+"}") {
				t.Fatalf("%s: path field %s missing from %s", op.Name, f.Name, op.Path)
			}
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	ops := []*Operation{
		{Name: "get_user", Method: http.MethodGet, Path: "/users/{uuid}", Fields: []Field{pathParam("uuid", "")}},
		{Name: "get_user", Method: http.MethodGet, Path: "/users/me"},
	}
	if _, err := NewRegistry(ops); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRegistryRejectsUnnamed(t *testing.T) {
	if _, err := NewRegistry([]*Operation{{Method: http.MethodGet}}); err == nil {
		t.Fatalf("expected error for unnamed operation")
	}
}

func TestRegistryFilter(t *testing.T) {
	registry, err := Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	readOnly := registry.Filter(func(name string) bool {
		return strings.HasPrefix(name, "get_") || strings.HasPrefix(name, "list_")
	})
	if readOnly.Len() == 0 || readOnly.Len() >= registry.Len() {
		t.Fatalf("unexpected filtered size %d of %d", readOnly.Len(), registry.Len())
	}
	if _, ok := readOnly.Lookup("delete_event_type"); ok {
		t.Fatalf("delete_event_type should be filtered out")
	}
	if _, ok := readOnly.Lookup("get_event"); !ok {
		t.Fatalf("get_event should remain")
	}
}

func TestInputSchemaRequired(t *testing.T) {
	op := lookup(t, "create_event_invitee")
	required, ok := op.InputSchema()["required"].([]any)
	if !ok {
		t.Fatalf("expected required list")
	}
	want := []string{"event_type", "start_time", "email", "name"}
	if len(required) != len(want) {
		t.Fatalf("unexpected required %v", required)
	}
	for i, name := range want {
		if required[i] != name {
			t.Fatalf("unexpected required %v", required)
		}
	}
}
