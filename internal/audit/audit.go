package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"calendly-mcp/internal/dispatch"
	"calendly-mcp/internal/redact"
)

// Event is one audited tool invocation.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Kind       string         `json:"kind"`
	StatusCode int            `json:"status_code,omitempty"`
	Field      string         `json:"field,omitempty"`
	ErrorMsg   string         `json:"error_msg,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("audit log closed")

// Logger buffers events and writes them to SQLite in batches. After Close,
// Record and Flush are no-ops.
type Logger struct {
	db          *sql.DB
	mu          sync.Mutex // guards db and dbClosed
	dbClosed    bool
	batchSize   int
	flushTicker *time.Ticker
	done        chan struct{}
	buffer      []Event
	bufferMu    sync.Mutex // guards buffer and closed
	closed      bool
	redactor    *redact.Redactor
	logger      *slog.Logger
}

func NewLogger(dbPath string, redactor *redact.Redactor, logger *slog.Logger) (*Logger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		tool_name TEXT NOT NULL,
		arguments TEXT,
		kind TEXT NOT NULL,
		status_code INTEGER,
		field TEXT,
		error_msg TEXT,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invocations_timestamp ON invocations(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_invocations_tool_name ON invocations(tool_name);
	CREATE INDEX IF NOT EXISTS idx_invocations_kind ON invocations(kind);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		db:          db,
		batchSize:   100,
		buffer:      make([]Event, 0, 100),
		flushTicker: time.NewTicker(5 * time.Second),
		done:        make(chan struct{}),
		redactor:    redactor,
		logger:      logger.With("component", "audit"),
	}
	go l.backgroundFlush()
	return l, nil
}

// Record implements dispatch.Recorder.
func (l *Logger) Record(_ context.Context, inv dispatch.Invocation) {
	event := Event{
		ID:         inv.ID,
		Timestamp:  inv.Started.UTC(),
		ToolName:   inv.Tool,
		Arguments:  inv.Args,
		Kind:       string(inv.Result.Kind),
		StatusCode: inv.Result.Status,
		Field:      inv.Result.Field,
		DurationMs: inv.Duration.Milliseconds(),
	}
	if inv.Result.IsError() {
		event.ErrorMsg = l.redactor.Redact(inv.Result.Message)
	}
	l.bufferEvent(event)
}

func (l *Logger) bufferEvent(event Event) {
	l.bufferMu.Lock()
	if l.closed {
		l.bufferMu.Unlock()
		l.logger.Warn("audit log closed, dropping event", "id", event.ID, "tool", event.ToolName)
		return
	}
	l.buffer = append(l.buffer, event)
	full := len(l.buffer) >= l.batchSize
	l.bufferMu.Unlock()

	if full {
		go func() {
			if err := l.Flush(); err != nil {
				l.logger.Error("flush failed", "error", err)
			}
		}()
	}
}

// take empties the buffer. It reports false once the logger is closed.
func (l *Logger) take() ([]Event, bool) {
	l.bufferMu.Lock()
	defer l.bufferMu.Unlock()
	if l.closed {
		return nil, false
	}
	events := l.buffer
	l.buffer = make([]Event, 0, l.batchSize)
	return events, true
}

// Flush writes all buffered events to the database.
func (l *Logger) Flush() error {
	events, ok := l.take()
	if !ok {
		return nil
	}
	return l.write(events)
}

func (l *Logger) write(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dbClosed {
		l.logger.Warn("audit log closed, dropping events", "count", len(events))
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO invocations (
			id, timestamp, tool_name, arguments, kind,
			status_code, field, error_msg, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		var argsJSON []byte
		if event.Arguments != nil {
			argsJSON, _ = json.Marshal(event.Arguments)
		}
		_, err := stmt.Exec(
			event.ID,
			event.Timestamp,
			event.ToolName,
			string(argsJSON),
			event.Kind,
			event.StatusCode,
			event.Field,
			event.ErrorMsg,
			event.DurationMs,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

func (l *Logger) backgroundFlush() {
	for {
		select {
		case <-l.done:
			return
		case <-l.flushTicker.C:
			if err := l.Flush(); err != nil {
				l.logger.Error("flush failed", "error", err)
			}
		}
	}
}

type QueryOptions struct {
	ToolName string
	Kind     string
	Since    time.Time
	Limit    int
}

// Query returns flushed events, newest first.
func (l *Logger) Query(opts QueryOptions) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dbClosed {
		return nil, ErrClosed
	}

	query := `
		SELECT id, timestamp, tool_name, arguments, kind,
		       status_code, field, error_msg, duration_ms
		FROM invocations
		WHERE 1=1
	`
	args := make([]any, 0)
	if opts.ToolName != "" {
		query += " AND tool_name = ?"
		args = append(args, opts.ToolName)
	}
	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC())
	}
	limit := 100
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var argsJSON, field, errMsg sql.NullString
		var status sql.NullInt64
		if err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.ToolName,
			&argsJSON,
			&event.Kind,
			&status,
			&field,
			&errMsg,
			&event.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.StatusCode = int(status.Int64)
		event.Field = field.String
		event.ErrorMsg = errMsg.String
		if argsJSON.Valid && argsJSON.String != "" {
			_ = json.Unmarshal([]byte(argsJSON.String), &event.Arguments)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type Stats struct {
	Total         int64            `json:"total"`
	ByKind        map[string]int64 `json:"by_kind"`
	AvgDurationMs int64            `json:"avg_duration_ms"`
	MaxDurationMs int64            `json:"max_duration_ms"`
}

// GetStats aggregates flushed events since the given time (zero for all).
func (l *Logger) GetStats(since time.Time) (*Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dbClosed {
		return nil, ErrClosed
	}

	where := ""
	args := make([]any, 0)
	if !since.IsZero() {
		where = " WHERE timestamp >= ?"
		args = append(args, since.UTC())
	}

	stats := &Stats{ByKind: map[string]int64{}}
	var avg sql.NullFloat64
	var maxDuration sql.NullInt64
	err := l.db.QueryRow(`SELECT COUNT(*), AVG(duration_ms), MAX(duration_ms) FROM invocations`+where, args...).
		Scan(&stats.Total, &avg, &maxDuration)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	stats.AvgDurationMs = int64(avg.Float64)
	stats.MaxDurationMs = maxDuration.Int64

	rows, err := l.db.Query(`SELECT kind, COUNT(*) FROM invocations`+where+` GROUP BY kind`, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByKind[kind] = n
	}
	return stats, rows.Err()
}

// Close writes what is buffered and closes the database. Call it once the
// transports have drained; later calls are no-ops.
func (l *Logger) Close() error {
	l.bufferMu.Lock()
	if l.closed {
		l.bufferMu.Unlock()
		return nil
	}
	l.closed = true
	events := l.buffer
	l.buffer = nil
	l.bufferMu.Unlock()

	l.flushTicker.Stop()
	close(l.done)
	err := l.write(events)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.dbClosed = true
	if cerr := l.db.Close(); err == nil {
		err = cerr
	}
	return err
}
