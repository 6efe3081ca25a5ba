package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"calendly-mcp/internal/audit"
	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/dispatch"
	"calendly-mcp/internal/logging"
	"calendly-mcp/internal/metrics"
	"calendly-mcp/internal/redact"
	"calendly-mcp/internal/tools"
)

// fakeCalendly answers the few endpoints the end-to-end tests touch.
func fakeCalendly(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer pat-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/organizations/ORG1":
			_, _ = io.WriteString(w, `{"resource":{"name":"Acme"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/organizations/MISSING":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"title":"Resource Not Found"}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestRESTEndToEnd(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeCalendly(t, &calls)
	defer upstream.Close()

	client, err := calendly.NewClient(calendly.Options{BaseURL: upstream.URL, Token: "pat-test", Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ops, err := tools.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	collector := metrics.NewCollector()
	dispatcher := dispatch.New(ops, client, dispatch.WithLogger(logging.Discard()), dispatch.WithRecorder(collector))
	server := NewServer(NewRegistry(ops), dispatcher, logging.Discard(), "test")
	ts := httptest.NewServer(NewHTTPServer(server, logging.Discard(), nil, WithMetrics(collector)).handler())
	defer ts.Close()

	cases := []struct {
		name     string
		tool     string
		body     string
		status   int
		kind     canonical.Kind
		upstream bool
	}{
		{"success", "get_organization", `{"uuid":"ORG1"}`, http.StatusOK, canonical.KindSuccess, true},
		{"uri argument", "get_organization", `{"uuid":"https://api.calendly.com/organizations/ORG1"}`, http.StatusOK, canonical.KindSuccess, true},
		{"not found passthrough", "get_organization", `{"uuid":"MISSING"}`, http.StatusNotFound, canonical.KindUpstreamError, true},
		{"no content", "delete_webhook_subscription", `{"webhook_uuid":"W1"}`, http.StatusOK, canonical.KindSuccess, true},
		{"upstream failure", "get_event", `{"uuid":"EV1"}`, http.StatusBadGateway, canonical.KindUpstreamError, true},
		{"missing field", "get_organization", `{}`, http.StatusBadRequest, canonical.KindValidationError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := calls.Load()
			resp, err := http.Post(ts.URL+"/tools/"+tc.tool, "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var got canonical.Result
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Kind != tc.kind {
				t.Fatalf("expected %s, got %+v", tc.kind, got)
			}
			if called := calls.Load() != before; called != tc.upstream {
				t.Fatalf("upstream called=%v, want %v", called, tc.upstream)
			}
		})
	}

	snap := collector.Snapshot()
	if snap.TotalInvocations != int64(len(cases)) || snap.KindInvocations["validation_error"] != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func newRealDispatcher(t *testing.T, upstreamURL string, opts ...dispatch.Option) (*tools.Registry, *dispatch.Dispatcher) {
	t.Helper()
	client, err := calendly.NewClient(calendly.Options{BaseURL: upstreamURL, Token: "pat-test", Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ops, err := tools.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	opts = append([]dispatch.Option{dispatch.WithLogger(logging.Discard())}, opts...)
	return ops, dispatch.New(ops, client, opts...)
}

func TestUnknownToolSameOnEveryTransport(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeCalendly(t, &calls)
	defer upstream.Close()
	ops, dispatcher := newRealDispatcher(t, upstream.URL)
	server := NewServer(NewRegistry(ops), dispatcher, logging.Discard(), "test")

	responses := runStdio(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"launch_rocket","arguments":{}}}`)
	if len(responses) != 1 || responses[0].Error != nil {
		t.Fatalf("expected an in-band tool result, got %+v", responses)
	}
	structured := responses[0].Result.(map[string]any)["structuredContent"].(map[string]any)
	if structured["kind"] != "validation_error" || structured["message"] != "unknown operation" {
		t.Fatalf("stdio: unexpected result %+v", structured)
	}

	ts := httptest.NewServer(NewHTTPServer(server, logging.Discard(), nil).handler())
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/tools/launch_rocket", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("rest: expected 404, got %d", resp.StatusCode)
	}
	var got canonical.Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != canonical.KindValidationError || got.Message != "unknown operation" {
		t.Fatalf("rest: unexpected result %+v", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("unknown tools must not reach Calendly")
	}
}

func TestAuditEndpoint(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeCalendly(t, &calls)
	defer upstream.Close()

	auditLog, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.db"), redact.NewRedactor("pat-test"), logging.Discard())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	defer auditLog.Close()
	ops, dispatcher := newRealDispatcher(t, upstream.URL, dispatch.WithRecorder(auditLog))
	server := NewServer(NewRegistry(ops), dispatcher, logging.Discard(), "test")
	ts := httptest.NewServer(NewHTTPServer(server, logging.Discard(), nil, WithAudit(auditLog)).handler())
	defer ts.Close()

	for _, body := range []string{`{"uuid":"ORG1"}`, `{"uuid":"MISSING"}`, `{}`} {
		resp, err := http.Post(ts.URL+"/tools/get_organization", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
	}

	cases := []struct {
		name   string
		query  string
		status int
		events int
	}{
		{"all", "", http.StatusOK, 3},
		{"by kind", "?kind=upstream_error", http.StatusOK, 1},
		{"limit", "?limit=2", http.StatusOK, 2},
		{"other tool", "?tool=get_event", http.StatusOK, 0},
		{"bad since", "?since=yesterday", http.StatusBadRequest, 0},
		{"bad limit", "?limit=0", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/audit" + tc.query)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if tc.status != http.StatusOK {
				return
			}
			var page struct {
				Events []audit.Event `json:"events"`
				Stats  audit.Stats   `json:"stats"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(page.Events) != tc.events {
				t.Fatalf("expected %d events, got %d", tc.events, len(page.Events))
			}
			if page.Stats.Total != 3 {
				t.Fatalf("expected 3 in stats, got %+v", page.Stats)
			}
		})
	}
}

func TestAuditEndpointDisabled(t *testing.T) {
	ts := httptest.NewServer(newTestHTTPServer(t, &stubDispatcher{}, nil).handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/audit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
