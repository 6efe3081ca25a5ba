package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldError is a caller-side problem with one argument.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func fieldErrorf(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Normalize round-trips args through JSON so validation and coercion only
// ever see decoded JSON values (float64, []any, map[string]any).
func Normalize(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Missing reports whether a required argument counts as absent.
func Missing(args map[string]any, name string) bool {
	v, ok := args[name]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func asInteger(name string, v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, fieldErrorf(name, "must be a whole number, got %v", t)
		}
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fieldErrorf(name, "must be a whole number, got %q", t.String())
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fieldErrorf(name, "must be a whole number, got %q", t)
		}
		return n, nil
	default:
		return 0, fieldErrorf(name, "must be a whole number")
	}
}

func asBool(name string, v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fieldErrorf(name, "must be true or false, got %q", t)
		}
		return b, nil
	default:
		return false, fieldErrorf(name, "must be true or false")
	}
}

// asStringList accepts a list, a JSON array in a string, or a comma
// separated string.
func asStringList(name string, v any) ([]string, error) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fieldErrorf(name, "must contain only strings")
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return asStringList(name, toAnySlice(t))
	case string:
		text := strings.TrimSpace(t)
		if strings.HasPrefix(text, "[") {
			var items []any
			if err := json.Unmarshal([]byte(text), &items); err != nil {
				return nil, fieldErrorf(name, "invalid JSON array: %v", err)
			}
			return asStringList(name, items)
		}
		out := []string{}
		for _, part := range strings.Split(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fieldErrorf(name, "must be a list of strings")
	}
}

// asEmbeddedJSON parses a string carrying JSON; structured values pass
// through. want is "array" or "object".
func asEmbeddedJSON(name, want string, v any) (any, error) {
	parsed := v
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, fieldErrorf(name, "invalid JSON: %v", err)
		}
	}
	switch parsed.(type) {
	case []any:
		if want == "array" {
			return parsed, nil
		}
	case map[string]any:
		if want == "object" {
			return parsed, nil
		}
	}
	return nil, fieldErrorf(name, "must be a JSON %s", want)
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
