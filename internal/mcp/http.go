package mcp

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"calendly-mcp/internal/config"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 15 * time.Second
)

// MetricsSink receives connection events and renders the metrics page.
type MetricsSink interface {
	RecordConnection(connected bool)
	PrometheusFormat() string
}

// HTTPServer carries the MCP server over SSE and streamable POST and adds
// the plain /tools REST adapter.
type HTTPServer struct {
	server   *Server
	logger   *slog.Logger
	auth     *config.AuthConfig
	sessions *sessions
	openapi  []byte
	metrics  MetricsSink
	audit    AuditSource
}

type HTTPOption func(*HTTPServer)

// WithOpenAPI serves doc at /openapi.json.
func WithOpenAPI(doc []byte) HTTPOption {
	return func(h *HTTPServer) { h.openapi = doc }
}

// WithMetrics serves m at /metrics and reports SSE sessions to it.
func WithMetrics(m MetricsSink) HTTPOption {
	return func(h *HTTPServer) { h.metrics = m }
}

// WithAudit serves recent invocations from a at /audit.
func WithAudit(a AuditSource) HTTPOption {
	return func(h *HTTPServer) { h.audit = a }
}

func NewHTTPServer(server *Server, logger *slog.Logger, auth *config.AuthConfig, opts ...HTTPOption) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPServer{
		server:   server,
		logger:   logger.With("component", "http"),
		auth:     auth,
		sessions: newSessions(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve listens on addr until ctx is cancelled, then waits for in-flight
// requests to finish before returning.
func (h *HTTPServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	h.logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}

func (h *HTTPServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /sse", h.guard(h.handleSSE))
	mux.Handle("POST /message", h.guard(h.handleMessage))
	mux.Handle("POST /mcp", h.guard(h.handleStreamable))
	mux.Handle("GET /tools", h.guard(h.handleListTools))
	mux.Handle("POST /tools/{name}", h.guard(h.handleToolCall))
	mux.Handle("GET /audit", h.guard(h.handleAudit))
	mux.HandleFunc("GET /openapi.json", h.handleOpenAPI)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

// guard applies inbound auth and rejects cross-site browser requests.
func (h *HTTPServer) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !sameOrigin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

func (h *HTTPServer) authorized(r *http.Request) bool {
	if h.auth == nil {
		return true
	}
	header, want := credential(h.auth)
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(header)), []byte(want)) == 1
}

// credential names the header a client must send and its exact value.
func credential(a *config.AuthConfig) (header, value string) {
	switch a.Type {
	case "bearer":
		if token := strings.TrimSpace(a.Token); token != "" {
			return "Authorization", "Bearer " + token
		}
	case "basic":
		if a.Username != "" && a.Password != "" {
			return "Authorization", "Basic " + base64.StdEncoding.EncodeToString([]byte(a.Username+":"+a.Password))
		}
	case "api-key":
		if a.Header != "" && a.Value != "" {
			return a.Header, a.Value
		}
	}
	return "", ""
}

// sameOrigin admits requests without an Origin header, from localhost, or
// from the host being addressed.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	target, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		target = r.Host
	}
	return strings.EqualFold(host, target)
}

func supportedProtocol(version string) bool {
	switch version {
	case "", "2025-03-26", "2025-06-18", protocolVersion:
		return true
	}
	return false
}

// handleStreamable answers JSON-RPC posted to /mcp in the response body.
func (h *HTTPServer) handleStreamable(w http.ResponseWriter, r *http.Request) {
	if !supportedProtocol(strings.TrimSpace(r.Header.Get("Mcp-Protocol-Version"))) {
		http.Error(w, "unsupported mcp protocol version", http.StatusBadRequest)
		return
	}
	reqs, batch, err := readRPC(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	responses := h.server.handleAll(r.Context(), reqs)
	switch {
	case len(responses) == 0:
		w.WriteHeader(http.StatusAccepted)
	case batch:
		writeJSON(w, http.StatusOK, responses)
	default:
		writeJSON(w, http.StatusOK, responses[0])
	}
}

// readRPC decodes a single JSON-RPC request or a batch.
func readRPC(w http.ResponseWriter, r *http.Request) (reqs []rpcRequest, batch bool, err error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, false, errors.New("invalid body")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false, errors.New("empty body")
	}
	if body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, true, errors.New("invalid json")
		}
		return reqs, true, nil
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, errors.New("invalid json")
	}
	return []rpcRequest{req}, false, nil
}
