// Package openapi describes the REST adapter's tool endpoints as an OpenAPI 3
// document.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/tools"
)

const resultSchema = "Result"

// Build renders one POST /tools/{name} path per registered operation, then
// reloads and validates the document before returning its JSON form.
func Build(ctx context.Context, registry *tools.Registry, version string) ([]byte, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Calendly MCP tools",
			Description: "Plain request/response access to the Calendly tool catalog.",
			Version:     version,
		},
		Paths: openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{resultSchema: openapi3.NewSchemaRef("", result())},
		},
	}
	resultRef := openapi3.NewSchemaRef("#/components/schemas/"+resultSchema, nil)

	for _, op := range registry.Sorted() {
		operation := openapi3.NewOperation()
		operation.OperationID = op.Name
		operation.Summary = op.Description
		operation.Tags = []string{tagFor(op)}
		operation.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(len(op.RequiredFields()) > 0).
				WithJSONSchema(arguments(op)),
		}
		operation.Responses = openapi3.Responses{
			"200": response("Calendly accepted the call", resultRef),
			"400": response("Arguments were rejected before any upstream call", resultRef),
			"502": response("Calendly failed or could not be reached", resultRef),
			"default": response("Calendly client error passed through", resultRef),
		}
		doc.Paths["/tools/"+op.Name] = &openapi3.PathItem{Post: operation}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	loaded, err := openapi3.NewLoader().LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := loaded.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return raw, nil
}

func response(description string, ref *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithContent(openapi3.NewContentWithJSONSchemaRef(ref)),
	}
}

func arguments(op *tools.Operation) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range op.Fields {
		schema.Properties[f.Name] = openapi3.NewSchemaRef("", property(f))
	}
	schema.Required = op.RequiredFields()
	return schema
}

// property mirrors the field's JSON Schema. OpenAPI 3.0 has no type unions,
// so loosely typed fields become oneOf with a string branch.
func property(f tools.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch f.Type {
	case tools.TypeInteger:
		s = openapi3.NewOneOfSchema(openapi3.NewIntegerSchema(), openapi3.NewStringSchema())
	case tools.TypeBoolean:
		s = openapi3.NewOneOfSchema(openapi3.NewBoolSchema(), openapi3.NewStringSchema())
	case tools.TypeStringList:
		s = openapi3.NewOneOfSchema(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()), openapi3.NewStringSchema())
	case tools.TypeJSONArray:
		s = openapi3.NewOneOfSchema(openapi3.NewArraySchema().WithItems(&openapi3.Schema{}), openapi3.NewStringSchema())
	case tools.TypeJSONObject:
		s = openapi3.NewOneOfSchema(openapi3.NewObjectSchema(), openapi3.NewStringSchema())
	default:
		s = openapi3.NewStringSchema()
		for _, v := range f.Enum {
			s.Enum = append(s.Enum, v)
		}
	}
	s.Description = f.Description
	s.Default = f.Default
	return s
}

func result() *openapi3.Schema {
	kind := openapi3.NewStringSchema()
	for _, k := range []canonical.Kind{
		canonical.KindSuccess,
		canonical.KindUpstreamError,
		canonical.KindTransportError,
		canonical.KindValidationError,
	} {
		kind.Enum = append(kind.Enum, string(k))
	}
	s := openapi3.NewObjectSchema()
	s.Properties["kind"] = openapi3.NewSchemaRef("", kind)
	s.Properties["status"] = openapi3.NewSchemaRef("", openapi3.NewIntegerSchema())
	s.Properties["body"] = openapi3.NewSchemaRef("", &openapi3.Schema{Description: "Decoded Calendly response"})
	s.Properties["message"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	s.Properties["field"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	s.Required = []string{"kind"}
	return s
}

func tagFor(op *tools.Operation) string {
	segment := op.Path
	for len(segment) > 0 && segment[0] == '/' {
		segment = segment[1:]
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] == '/' {
			return segment[:i]
		}
	}
	return segment
}
