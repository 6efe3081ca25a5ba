package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"calendly-mcp/internal/audit"
)

// AuditSource reads back recorded invocations.
type AuditSource interface {
	Flush() error
	Query(opts audit.QueryOptions) ([]audit.Event, error)
	GetStats(since time.Time) (*audit.Stats, error)
}

// handleToolCall is the plain request/response adapter: the JSON body is the
// argument bag and the response is the canonical result.
func (h *HTTPServer) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	args := map[string]any{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body = bytes.TrimSpace(body); len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			http.Error(w, "request body must be a JSON object", http.StatusBadRequest)
			return
		}
	}

	result := h.server.dispatcher.Dispatch(r.Context(), name, args)
	status := httpStatus(result)
	if _, known := h.server.registry.Tools[name]; !known {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

func (h *HTTPServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := h.server.registry.SortedTools()
	out := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		out = append(out, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

// handleAudit lists recent invocations. Filters: tool, kind, since
// (RFC 3339) and limit.
func (h *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	opts := audit.QueryOptions{ToolName: q.Get("tool"), Kind: q.Get("kind")}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 time", http.StatusBadRequest)
			return
		}
		opts.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	if err := h.audit.Flush(); err != nil {
		h.logger.Warn("audit flush failed", "error", err)
	}
	events, err := h.audit.Query(opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	stats, err := h.audit.GetStats(opts.Since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "stats": stats})
}

func (h *HTTPServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if len(h.openapi) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.openapi)
}

func (h *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = io.WriteString(w, h.metrics.PrometheusFormat())
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tools": len(h.server.registry.Tools)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
