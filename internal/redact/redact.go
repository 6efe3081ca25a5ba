package redact

import (
	"strings"
)

const mask = "[REDACTED]"

// Redactor replaces configured secrets in strings.
type Redactor struct {
	secrets []string
}

func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	r.AddSecrets(secrets)
	return r
}

func (r *Redactor) AddSecrets(secrets []string) {
	for _, s := range secrets {
		if strings.TrimSpace(s) == "" {
			continue
		}
		r.secrets = append(r.secrets, s)
	}
}

func (r *Redactor) Redact(input string) string {
	if r == nil {
		return input
	}
	out := input
	for _, secret := range r.secrets {
		out = strings.ReplaceAll(out, secret, mask)
	}
	return out
}

// Args returns a copy of an argument bag with secrets masked in every
// string value. Nested maps and slices are walked.
func (r *Redactor) Args(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = r.value(v)
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case string:
		return r.Redact(t)
	case map[string]any:
		return r.Args(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = r.value(item)
		}
		return items
	default:
		return v
	}
}
