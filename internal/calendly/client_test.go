package calendly

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/logging"
	"calendly-mcp/internal/ratelimit"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL: baseURL,
		Token:   "test-token",
		Timeout: timeout,
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(Options{Token: "  "}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestSendAttachesCredentialAndBody(t *testing.T) {
	var gotAuth, gotContentType, gotPath, gotQuery string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resource":{"uri":"https://api.calendly.com/scheduling_links/L1"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	result := client.Send(context.Background(), &canonical.Request{
		Method: http.MethodPost,
		Path:   "/scheduling_links",
		Query:  url.Values{"dry": []string{"true"}},
		Body:   map[string]any{"max_event_count": 1},
	})
	if result.Kind != canonical.KindSuccess || result.Status != http.StatusCreated {
		t.Fatalf("unexpected result %+v", result)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotPath != "/scheduling_links" || gotQuery != "dry=true" {
		t.Fatalf("unexpected target %s?%s", gotPath, gotQuery)
	}
	if gotBody["max_event_count"] != float64(1) {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	body, ok := result.Body.(map[string]any)
	if !ok || body["resource"] == nil {
		t.Fatalf("expected parsed body, got %#v", result.Body)
	}
}

func TestSendNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	result := client.Send(context.Background(), &canonical.Request{Method: http.MethodDelete, Path: "/event_types/ET1"})
	if result.Kind != canonical.KindSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if !reflect.DeepEqual(result.Body, map[string]any{"success": true}) {
		t.Fatalf("unexpected body %#v", result.Body)
	}
}

func TestSendUpstreamErrorKeepsRawMessage(t *testing.T) {
	const raw = `{"title":"Resource Not Found","message":"The server could not find the requested resource."}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, raw)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	result := client.Send(context.Background(), &canonical.Request{Method: http.MethodGet, Path: "/organizations/missing"})
	if result.Kind != canonical.KindUpstreamError {
		t.Fatalf("expected upstream error, got %+v", result)
	}
	if result.Status != http.StatusNotFound || result.Message != raw {
		t.Fatalf("unexpected error %d %q", result.Status, result.Message)
	}
}

func TestSendConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := newTestClient(t, "http://"+addr, 0)
	result := client.Send(context.Background(), &canonical.Request{Method: http.MethodGet, Path: "/users/me"})
	if result.Kind != canonical.KindTransportError {
		t.Fatalf("expected transport error, got %+v", result)
	}
	if strings.Contains(result.Message, "test-token") {
		t.Fatalf("token leaked into message %q", result.Message)
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newTestClient(t, srv.URL, 50*time.Millisecond)
	result := client.Send(context.Background(), &canonical.Request{Method: http.MethodGet, Path: "/users/me"})
	if result.Kind != canonical.KindTransportError {
		t.Fatalf("expected transport error, got %+v", result)
	}
	if !strings.Contains(result.Message, "timed out") {
		t.Fatalf("expected timeout message, got %q", result.Message)
	}
}

func TestSendIgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"resource":{}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv.URL, 0)
	result := client.Send(ctx, &canonical.Request{Method: http.MethodGet, Path: "/users/me"})
	if result.Kind != canonical.KindSuccess {
		t.Fatalf("expected the call to complete, got %+v", result)
	}
}

func TestSendUndecodableBody(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"html page", http.StatusOK, "<html>maintenance</html>"},
		{"empty 200", http.StatusOK, ""},
		{"blank 201", http.StatusCreated, "  \n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, 0)
			result := client.Send(context.Background(), &canonical.Request{Method: http.MethodGet, Path: "/users/me"})
			if result.Kind != canonical.KindTransportError {
				t.Fatalf("expected transport error, got %+v", result)
			}
		})
	}
}

func TestSendHourlyQuotaExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"resource":{}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Options{
		BaseURL: srv.URL,
		Token:   "test-token",
		Logger:  logging.Discard(),
		Limiter: ratelimit.New(0, 1),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	req := &canonical.Request{Method: http.MethodGet, Path: "/users/me"}
	if result := client.Send(context.Background(), req); result.Kind != canonical.KindSuccess {
		t.Fatalf("first call should pass, got %+v", result)
	}
	result := client.Send(context.Background(), req)
	if result.Kind != canonical.KindTransportError || !strings.Contains(result.Message, "quota") {
		t.Fatalf("expected quota transport error, got %+v", result)
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
}
