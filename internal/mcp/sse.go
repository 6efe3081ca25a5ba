package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionBuffer = 64
	keepAlive     = 15 * time.Second
)

// sessions maps an SSE session ID to the queue its /message posts reply on.
type sessions struct {
	mu   sync.Mutex
	byID map[string]chan []byte
}

func newSessions() *sessions {
	return &sessions{byID: map[string]chan []byte{}}
}

func (s *sessions) open() (string, chan []byte) {
	id := uuid.NewString()
	out := make(chan []byte, sessionBuffer)
	s.mu.Lock()
	s.byID[id] = out
	s.mu.Unlock()
	return id, out
}

func (s *sessions) lookup(id string) (chan []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.byID[id]
	return out, ok
}

func (s *sessions) close(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// handleSSE opens a session: the first event names the URL to post
// requests to, later events carry the responses.
func (h *HTTPServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	id, out := h.sessions.open()
	defer h.sessions.close(id)
	if h.metrics != nil {
		h.metrics.RecordConnection(true)
		defer h.metrics.RecordConnection(false)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	endpoint, _ := json.Marshal(map[string]string{"url": messageURL(r, id)})
	if err := writeEvent(w, "endpoint", endpoint); err != nil {
		return
	}
	flusher.Flush()
	h.logger.Debug("sse session opened", "session", id)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("sse session closed", "session", id)
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
		case msg := <-out:
			if err := writeEvent(w, "message", msg); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

// handleMessage answers requests posted for an open session on its stream.
func (h *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		id = r.Header.Get("Mcp-Session-Id")
	}
	out, ok := h.sessions.lookup(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	reqs, _, err := readRPC(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, resp := range h.server.handleAll(r.Context(), reqs) {
		encoded, err := json.Marshal(resp)
		if err != nil {
			h.logger.Error("encode response", "session", id, "error", err)
			continue
		}
		select {
		case out <- encoded:
		default:
			h.logger.Warn("session queue full, response dropped", "session", id)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeEvent(w io.Writer, event string, data []byte) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}

func messageURL(r *http.Request, id string) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/message", RawQuery: url.Values{"session_id": {id}}.Encode()}
	return u.String()
}
