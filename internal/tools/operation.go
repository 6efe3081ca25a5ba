package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/location"
)

var pathParamRE = regexp.MustCompile(`\{([^}]+)\}`)

// LocationMode selects how an operation builds its "location" object.
type LocationMode int

const (
	LocationNone LocationMode = iota
	// LocationFromArgs builds the object from location_kind and
	// location_details when location_kind is given.
	LocationFromArgs
	// LocationResolve additionally derives the location from the event type
	// named by LocationSource when location_kind is omitted.
	LocationResolve
)

const (
	argLocationKind    = "location_kind"
	argLocationDetails = "location_details"
)

// Env carries what transformers need beyond the arguments.
type Env struct {
	BaseURL  string
	Upstream location.Sender
}

// Operation is an immutable descriptor of one tool.
type Operation struct {
	Name        string
	Description string
	Method      string
	Path        string
	Fields      []Field
	Location    LocationMode
	// LocationSource is the field naming the event type for LocationResolve.
	LocationSource string
	// Result describes the shape of a successful body.
	Result string
	// Finish runs after the generic transform for operation-specific shaping.
	Finish func(ctx context.Context, env *Env, args map[string]any, req *canonical.Request) error

	inputSchema map[string]any
	validator   *jsonschema.Schema
}

func (op *Operation) InputSchema() map[string]any {
	return op.inputSchema
}

// RequiredFields lists required argument names in declaration order.
func (op *Operation) RequiredFields() []string {
	out := []string{}
	for _, f := range op.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// FirstMissing returns the first required field absent from args.
func (op *Operation) FirstMissing(args map[string]any) (string, bool) {
	for _, name := range op.RequiredFields() {
		if Missing(args, name) {
			return name, true
		}
	}
	return "", false
}

// Validate checks args against the compiled input schema.
func (op *Operation) Validate(args map[string]any) error {
	if op.validator == nil {
		return nil
	}
	err := op.validator.Validate(present(args))
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &FieldError{Message: err.Error()}
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &FieldError{Field: fieldFromPointer(leaf.InstanceLocation), Message: leaf.Message}
}

// present drops null and blank arguments, which Transform treats as unset.
func present(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func fieldFromPointer(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if idx := strings.Index(ptr, "/"); idx >= 0 {
		ptr = ptr[:idx]
	}
	return ptr
}

// Transform maps args to the upstream request. Errors are *FieldError.
func (op *Operation) Transform(ctx context.Context, env *Env, args map[string]any) (*canonical.Request, error) {
	path, err := fillPath(op.Path, args)
	if err != nil {
		return nil, err
	}
	req := &canonical.Request{
		Method: op.Method,
		Path:   path,
		Query:  url.Values{},
	}
	if hasBody(op.Method) {
		req.Body = map[string]any{}
	}

	for _, f := range op.Fields {
		if f.In == InPath || f.In == Local {
			continue
		}
		raw, ok := args[f.Name]
		if !ok || Missing(args, f.Name) {
			if f.Default == nil {
				continue
			}
			raw = f.Default
		}
		value, err := convert(env, f, raw)
		if err != nil {
			return nil, err
		}
		switch f.In {
		case InQuery:
			addQueryParam(req.Query, f.wireName(), value)
		case InBody:
			target := req.Body
			if f.Group != "" {
				nested, ok := target[f.Group].(map[string]any)
				if !ok {
					nested = map[string]any{}
					target[f.Group] = nested
				}
				target = nested
			}
			target[f.wireName()] = value
		}
	}

	if op.Location != LocationNone {
		loc, err := op.buildLocation(ctx, env, args)
		if err != nil {
			return nil, err
		}
		if loc != nil {
			req.Body["location"] = loc.Payload()
		}
	}

	if op.Finish != nil {
		if err := op.Finish(ctx, env, args, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (op *Operation) buildLocation(ctx context.Context, env *Env, args map[string]any) (*location.Descriptor, error) {
	kind := ""
	if v, ok := args[argLocationKind]; ok && v != nil {
		kind = asString(v)
	}
	detail := ""
	if v, ok := args[argLocationDetails]; ok && v != nil {
		detail = asString(v)
	}
	if kind != "" {
		return &location.Descriptor{Kind: kind, Detail: detail}, nil
	}
	if op.Location != LocationResolve || op.LocationSource == "" || env == nil || env.Upstream == nil {
		return nil, nil
	}

	source, ok := args[op.LocationSource]
	if !ok || source == nil {
		return nil, nil
	}
	resolved, err := location.Resolve(ctx, env.Upstream, asString(source))
	if err != nil {
		var ambiguous *location.AmbiguousError
		if errors.As(err, &ambiguous) {
			return nil, &FieldError{Field: argLocationKind, Message: ambiguous.Error()}
		}
		return nil, err
	}
	if resolved != nil && detail != "" {
		resolved.Detail = detail
	}
	return resolved, nil
}

func convert(env *Env, f Field, raw any) (any, error) {
	switch f.Type {
	case TypeInteger:
		return asInteger(f.Name, raw)
	case TypeBoolean:
		b, err := asBool(f.Name, raw)
		if err != nil {
			return nil, err
		}
		if f.In == InQuery {
			return strconv.FormatBool(b), nil
		}
		return b, nil
	case TypeStringList:
		items, err := asStringList(f.Name, raw)
		if err != nil {
			return nil, err
		}
		if f.Ref != "" {
			for i, item := range items {
				items[i] = calendly.URI(baseURL(env), f.Ref, item)
			}
		}
		return items, nil
	case TypeJSONArray:
		return asEmbeddedJSON(f.Name, "array", raw)
	case TypeJSONObject:
		return asEmbeddedJSON(f.Name, "object", raw)
	default:
		s := asString(raw)
		if f.Ref != "" {
			s = calendly.URI(baseURL(env), f.Ref, s)
		}
		return s, nil
	}
}

func baseURL(env *Env) string {
	if env == nil || env.BaseURL == "" {
		return calendly.DefaultBaseURL
	}
	return env.BaseURL
}

// fillPath substitutes {name} segments with the UUID form of each argument.
func fillPath(path string, args map[string]any) (string, error) {
	matches := pathParamRE.FindAllStringSubmatchIndex(path, -1)
	if len(matches) == 0 {
		return path, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(path[last:m[0]])
		name := path[m[2]:m[3]]
		val, ok := args[name]
		if !ok || val == nil {
			return "", fieldErrorf(name, "missing required path parameter")
		}
		id := calendly.UUID(asString(val))
		if id == "" {
			return "", fieldErrorf(name, "missing required path parameter")
		}
		b.WriteString(url.PathEscape(id))
		last = m[1]
	}
	b.WriteString(path[last:])
	return b.String(), nil
}

func addQueryParam(values url.Values, name string, value any) {
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			values.Add(name, item)
		}
	case int64:
		values.Add(name, strconv.FormatInt(v, 10))
	default:
		values.Add(name, fmt.Sprint(v))
	}
}

func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPatch, http.MethodPut:
		return true
	default:
		return false
	}
}
