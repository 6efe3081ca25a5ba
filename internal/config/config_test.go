package config

import (
	"strings"
	"testing"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	t.Setenv("CALENDLY_API_KEY", "pat-123")

	cfg, err := LoadFromBytes(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "pat-123" {
		t.Fatalf("expected api key from env, got %q", cfg.APIKey)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Fatalf("expected 30s timeout, got %d", cfg.TimeoutSeconds)
	}
	if cfg.Transport != TransportStdio {
		t.Fatalf("expected stdio transport, got %q", cfg.Transport)
	}
	if !cfg.Filter.Allows("get_event") {
		t.Fatalf("nil filter must allow everything")
	}
}

func TestLoadFromBytesMissingAPIKey(t *testing.T) {
	t.Setenv("CALENDLY_API_KEY", "")
	if _, err := LoadFromBytes(nil); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api_key error, got %v", err)
	}
}

func TestLoadFromBytes(t *testing.T) {
	t.Setenv("CAL_TOKEN", "pat-456")
	t.Setenv("INBOUND_TOKEN", "dev-token")
	data := []byte(`
base_url: https://calendly.internal.example.com
api_key: ${CAL_TOKEN}
transport: http
listen: 0.0.0.0:9000
timeout_seconds: 10
auth:
  type: bearer
  token: ${INBOUND_TOKEN}
filter:
  mode: allowlist
  operations: ["list_*", "get_*"]
audit:
  path: /tmp/calendly-audit.db
rate_limit:
  requests_per_minute: 60
log_format: json
`)
	cfg, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "pat-456" || cfg.Auth.Token != "dev-token" {
		t.Fatalf("env expansion failed: %+v %+v", cfg, cfg.Auth)
	}
	if cfg.Transport != TransportHTTP || cfg.Listen != "0.0.0.0:9000" || cfg.TimeoutSeconds != 10 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Audit.Path != "/tmp/calendly-audit.db" {
		t.Fatalf("unexpected audit path %q", cfg.Audit.Path)
	}
	if cfg.RateLimit.RequestsPerMinute != 60 || cfg.RateLimit.RequestsPerHour != 0 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	secrets := cfg.Secrets()
	if len(secrets) != 2 || secrets[0] != "pat-456" || secrets[1] != "dev-token" {
		t.Fatalf("unexpected secrets %v", secrets)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid stdio",
			cfg:  Config{APIKey: "k", Transport: "stdio", LogFormat: "text"},
		},
		{
			name:    "unknown transport",
			cfg:     Config{APIKey: "k", Transport: "carrier", LogFormat: "text"},
			wantErr: "unsupported transport",
		},
		{
			name:    "bad base url",
			cfg:     Config{APIKey: "k", BaseURL: "api.calendly.com", Transport: "stdio", LogFormat: "text"},
			wantErr: "base_url",
		},
		{
			name:    "negative timeout",
			cfg:     Config{APIKey: "k", TimeoutSeconds: -1, Transport: "stdio", LogFormat: "text"},
			wantErr: "timeout_seconds",
		},
		{
			name:    "negative rate limit",
			cfg:     Config{APIKey: "k", Transport: "stdio", LogFormat: "text", RateLimit: RateLimitConfig{RequestsPerHour: -5}},
			wantErr: "rate_limit",
		},
		{
			name:    "bad log format",
			cfg:     Config{APIKey: "k", Transport: "stdio", LogFormat: "xml"},
			wantErr: "log_format",
		},
		{
			name: "bearer without token",
			cfg: Config{APIKey: "k", Transport: "http", Listen: ":8080", LogFormat: "text",
				Auth: &AuthConfig{Type: "bearer"}},
			wantErr: "auth.token is required",
		},
		{
			name: "filter without mode",
			cfg: Config{APIKey: "k", Transport: "stdio", LogFormat: "text",
				Filter: &OperationFilter{Operations: []string{"get_*"}}},
			wantErr: "filter.mode is required",
		},
		{
			name: "filter with bad glob",
			cfg: Config{APIKey: "k", Transport: "stdio", LogFormat: "text",
				Filter: &OperationFilter{Mode: "blocklist", Operations: []string{"get_[*"}}},
			wantErr: "invalid glob pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOperationFilterAllows(t *testing.T) {
	allow := &OperationFilter{Mode: "allowlist", Operations: []string{"list_*", "get_event"}}
	block := &OperationFilter{Mode: "blocklist", Operations: []string{"delete_*"}}

	cases := []struct {
		filter *OperationFilter
		name   string
		want   bool
	}{
		{allow, "list_events", true},
		{allow, "get_event", true},
		{allow, "get_event_type", false},
		{block, "delete_event_type", false},
		{block, "create_event_type", true},
		{nil, "delete_event_type", true},
	}
	for _, tc := range cases {
		if got := tc.filter.Allows(tc.name); got != tc.want {
			t.Fatalf("Allows(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
