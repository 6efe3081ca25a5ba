package redact

import "testing"

func TestRedact(t *testing.T) {
	redactor := NewRedactor()
	redactor.AddSecrets([]string{"cal-token-123", "", "  "})

	input := `Get "https://api.calendly.com/users/me": Authorization: Bearer cal-token-123`
	got := redactor.Redact(input)
	if got != `Get "https://api.calendly.com/users/me": Authorization: Bearer [REDACTED]` {
		t.Fatalf("unexpected redaction: %s", got)
	}
}

func TestRedactNilRedactor(t *testing.T) {
	var redactor *Redactor
	if got := redactor.Redact("plain"); got != "plain" {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestRedactArgs(t *testing.T) {
	redactor := NewRedactor("whsec-abc")
	args := map[string]any{
		"signing_key": "whsec-abc",
		"count":       float64(20),
		"nested":      map[string]any{"key": "prefix-whsec-abc"},
		"list":        []any{"whsec-abc", true},
	}
	got := redactor.Args(args)
	if got["signing_key"] != "[REDACTED]" {
		t.Fatalf("signing_key not masked: %v", got["signing_key"])
	}
	if got["count"] != float64(20) {
		t.Fatalf("count changed: %v", got["count"])
	}
	if nested := got["nested"].(map[string]any); nested["key"] != "prefix-[REDACTED]" {
		t.Fatalf("nested not masked: %v", nested)
	}
	if list := got["list"].([]any); list[0] != "[REDACTED]" || list[1] != true {
		t.Fatalf("list not masked: %v", list)
	}
	if args["signing_key"] != "whsec-abc" {
		t.Fatalf("input mutated")
	}
}
