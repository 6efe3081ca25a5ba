package tools

// Placement says where a field lands in the upstream request.
type Placement int

const (
	InPath Placement = iota
	InQuery
	InBody
	// Local fields are not copied upstream; the location builder or the
	// operation's Finish hook reads them.
	Local
)

// ValueType is the declared type of an argument.
type ValueType string

const (
	TypeString     ValueType = "string"
	TypeInteger    ValueType = "integer"
	TypeBoolean    ValueType = "boolean"
	TypeStringList ValueType = "string_list"
	// TypeJSONArray and TypeJSONObject accept either structured values or a
	// string carrying JSON text, which is parsed before sending.
	TypeJSONArray  ValueType = "json_array"
	TypeJSONObject ValueType = "json_object"
)

// Field declares one caller-facing argument and how it maps upstream.
type Field struct {
	Name        string
	Description string
	Type        ValueType
	In          Placement
	Required    bool
	Default     any
	Enum        []string

	// Wire is the upstream name when it differs from Name.
	Wire string
	// Group nests the value under a body sub-object of that name.
	Group string
	// Ref names the resource collection of a reference field. Query and body
	// references are sent as full URIs; path references always as UUIDs.
	Ref string
}

func (f Field) wireName() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

func pathParam(name, description string) Field {
	return Field{Name: name, Description: description, Type: TypeString, In: InPath, Required: true}
}

func query(name string, typ ValueType, description string) Field {
	return Field{Name: name, Description: description, Type: typ, In: InQuery}
}

func body(name string, typ ValueType, description string) Field {
	return Field{Name: name, Description: description, Type: typ, In: InBody}
}

func (f Field) req() Field {
	f.Required = true
	return f
}

func (f Field) def(v any) Field {
	f.Default = v
	return f
}

func (f Field) ref(collection string) Field {
	f.Ref = collection
	return f
}

func (f Field) wire(name string) Field {
	f.Wire = name
	return f
}

func (f Field) group(name string) Field {
	f.Group = name
	return f
}

func (f Field) enum(values ...string) Field {
	f.Enum = values
	return f
}

// schema renders the JSON Schema property advertised for the field. Scalar
// types also admit strings since callers often send "20" or "true".
func (f Field) schema() map[string]any {
	prop := map[string]any{}
	switch f.Type {
	case TypeInteger:
		prop["type"] = []any{"integer", "string"}
	case TypeBoolean:
		prop["type"] = []any{"boolean", "string"}
	case TypeStringList:
		prop["type"] = []any{"array", "string"}
		prop["items"] = map[string]any{"type": "string"}
	case TypeJSONArray:
		prop["type"] = []any{"array", "string"}
	case TypeJSONObject:
		prop["type"] = []any{"object", "string"}
	default:
		prop["type"] = "string"
	}
	if f.Description != "" {
		prop["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		values := make([]any, len(f.Enum))
		for i, v := range f.Enum {
			values[i] = v
		}
		prop["enum"] = values
	}
	if f.Default != nil {
		prop["default"] = f.Default
	}
	return prop
}

func inputSchema(fields []Field) map[string]any {
	props := map[string]any{}
	required := []any{}
	for _, f := range fields {
		props[f.Name] = f.schema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
