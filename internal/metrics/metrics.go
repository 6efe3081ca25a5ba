package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/dispatch"
	"calendly-mcp/internal/ratelimit"
)

// Histogram buckets in milliseconds.
var durationBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Collector collects invocation metrics for Prometheus export.
type Collector struct {
	totalInvocations  atomic.Int64
	totalConnections  atomic.Int64
	activeConnections atomic.Int64

	// Per-tool and per-outcome counters
	toolInvocations map[string]*atomic.Int64
	kindInvocations map[canonical.Kind]*atomic.Int64
	mu              sync.RWMutex

	durationBuckets map[float64]*atomic.Int64
	durationSum     atomic.Int64
	durationCount   atomic.Int64

	startTime time.Time

	limiter LimiterSource
}

// LimiterSource reports outbound rate limit headroom.
type LimiterSource interface {
	Stats() ratelimit.Stats
}

func NewCollector() *Collector {
	c := &Collector{
		toolInvocations: make(map[string]*atomic.Int64),
		kindInvocations: make(map[canonical.Kind]*atomic.Int64),
		durationBuckets: make(map[float64]*atomic.Int64, len(durationBuckets)),
		startTime:       time.Now(),
	}
	for _, b := range durationBuckets {
		c.durationBuckets[b] = &atomic.Int64{}
	}
	for _, k := range []canonical.Kind{
		canonical.KindSuccess, canonical.KindUpstreamError, canonical.KindTransportError, canonical.KindValidationError,
	} {
		c.kindInvocations[k] = &atomic.Int64{}
	}
	return c
}

// Record implements dispatch.Recorder.
func (c *Collector) Record(_ context.Context, inv dispatch.Invocation) {
	c.RecordInvocation(inv.Tool, inv.Result.Kind, inv.Duration)
}

func (c *Collector) RecordInvocation(tool string, kind canonical.Kind, duration time.Duration) {
	c.totalInvocations.Add(1)

	c.counter(c.toolInvocations, tool).Add(1)
	c.mu.Lock()
	kc, ok := c.kindInvocations[kind]
	if !ok {
		kc = &atomic.Int64{}
		c.kindInvocations[kind] = kc
	}
	c.mu.Unlock()
	kc.Add(1)

	ms := duration.Milliseconds()
	c.durationSum.Add(ms)
	c.durationCount.Add(1)
	for _, bucket := range durationBuckets {
		if float64(ms) <= bucket {
			c.durationBuckets[bucket].Add(1)
		}
	}
}

func (c *Collector) counter(m map[string]*atomic.Int64, key string) *atomic.Int64 {
	c.mu.RLock()
	counter, ok := m[key]
	c.mu.RUnlock()
	if ok {
		return counter
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok = m[key]; !ok {
		counter = &atomic.Int64{}
		m[key] = counter
	}
	return counter
}

// TrackLimiter adds the limiter's remaining allowance to the exported gauges.
func (c *Collector) TrackLimiter(l LimiterSource) {
	c.mu.Lock()
	c.limiter = l
	c.mu.Unlock()
}

// RecordConnection tracks push-channel sessions.
func (c *Collector) RecordConnection(connected bool) {
	if connected {
		c.totalConnections.Add(1)
		c.activeConnections.Add(1)
	} else {
		c.activeConnections.Add(-1)
	}
}

// PrometheusFormat exports metrics in Prometheus text format.
func (c *Collector) PrometheusFormat() string {
	var b strings.Builder

	writeHeader(&b, "calendly_mcp_invocations_total", "counter", "Total number of tool invocations")
	fmt.Fprintf(&b, "calendly_mcp_invocations_total %d\n\n", c.totalInvocations.Load())

	snap := c.Snapshot()

	writeHeader(&b, "calendly_mcp_invocations_by_kind_total", "counter", "Tool invocations per result kind")
	for _, kind := range sortedKeys(snap.KindInvocations) {
		fmt.Fprintf(&b, "calendly_mcp_invocations_by_kind_total{kind=%q} %d\n", kind, snap.KindInvocations[kind])
	}
	b.WriteString("\n")

	writeHeader(&b, "calendly_mcp_invocations_by_tool_total", "counter", "Tool invocations per tool")
	for _, tool := range sortedKeys(snap.ToolInvocations) {
		fmt.Fprintf(&b, "calendly_mcp_invocations_by_tool_total{tool=%q} %d\n", tool, snap.ToolInvocations[tool])
	}
	b.WriteString("\n")

	writeHeader(&b, "calendly_mcp_connections_active", "gauge", "Number of open SSE sessions")
	fmt.Fprintf(&b, "calendly_mcp_connections_active %d\n\n", c.activeConnections.Load())

	writeHeader(&b, "calendly_mcp_connections_total", "counter", "Total number of SSE sessions")
	fmt.Fprintf(&b, "calendly_mcp_connections_total %d\n\n", c.totalConnections.Load())

	// Buckets are recorded cumulatively already.
	writeHeader(&b, "calendly_mcp_invocation_duration_milliseconds", "histogram", "Invocation duration in milliseconds")
	for _, bucket := range durationBuckets {
		fmt.Fprintf(&b, "calendly_mcp_invocation_duration_milliseconds_bucket{le=\"%.0f\"} %d\n", bucket, c.durationBuckets[bucket].Load())
	}
	fmt.Fprintf(&b, "calendly_mcp_invocation_duration_milliseconds_bucket{le=\"+Inf\"} %d\n", c.durationCount.Load())
	fmt.Fprintf(&b, "calendly_mcp_invocation_duration_milliseconds_sum %d\n", c.durationSum.Load())
	fmt.Fprintf(&b, "calendly_mcp_invocation_duration_milliseconds_count %d\n\n", c.durationCount.Load())

	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if limiter != nil {
		stats := limiter.Stats()
		if stats.PerMinute > 0 {
			writeHeader(&b, "calendly_mcp_ratelimit_tokens_left", "gauge", "Outbound requests available in the per-minute bucket")
			fmt.Fprintf(&b, "calendly_mcp_ratelimit_tokens_left %.0f\n\n", stats.TokensLeft)
		}
		if stats.PerHour > 0 {
			writeHeader(&b, "calendly_mcp_ratelimit_hour_remaining", "gauge", "Outbound requests left in the current hour")
			fmt.Fprintf(&b, "calendly_mcp_ratelimit_hour_remaining %d\n\n", stats.HourRemaining)
		}
	}

	writeHeader(&b, "calendly_mcp_uptime_seconds", "counter", "Uptime in seconds")
	fmt.Fprintf(&b, "calendly_mcp_uptime_seconds %.0f\n", snap.UptimeSeconds)

	return b.String()
}

func writeHeader(b *strings.Builder, name, typ, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Snapshot struct {
	TotalInvocations  int64            `json:"total_invocations"`
	ActiveConnections int64            `json:"active_connections"`
	TotalConnections  int64            `json:"total_connections"`
	AvgDurationMs     float64          `json:"avg_duration_ms"`
	ToolInvocations   map[string]int64 `json:"tool_invocations"`
	KindInvocations   map[string]int64 `json:"kind_invocations"`
	UptimeSeconds     float64          `json:"uptime_seconds"`
}

func (c *Collector) Snapshot() *Snapshot {
	snap := &Snapshot{
		TotalInvocations:  c.totalInvocations.Load(),
		ActiveConnections: c.activeConnections.Load(),
		TotalConnections:  c.totalConnections.Load(),
		ToolInvocations:   make(map[string]int64),
		KindInvocations:   make(map[string]int64),
		UptimeSeconds:     time.Since(c.startTime).Seconds(),
	}
	if n := c.durationCount.Load(); n > 0 {
		snap.AvgDurationMs = float64(c.durationSum.Load()) / float64(n)
	}

	c.mu.RLock()
	for tool, counter := range c.toolInvocations {
		snap.ToolInvocations[tool] = counter.Load()
	}
	for kind, counter := range c.kindInvocations {
		snap.KindInvocations[string(kind)] = counter.Load()
	}
	c.mu.RUnlock()

	return snap
}
