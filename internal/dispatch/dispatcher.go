// Package dispatch routes a named invocation through the operation registry
// to the upstream API and always answers with a canonical.Result.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/redact"
	"calendly-mcp/internal/tools"
)

// Upstream performs one call against the API.
type Upstream interface {
	Send(ctx context.Context, req *canonical.Request) canonical.Result
}

// Invocation describes one finished dispatch. Args are already redacted.
type Invocation struct {
	ID       string
	Tool     string
	Args     map[string]any
	Result   canonical.Result
	Started  time.Time
	Duration time.Duration
}

// Recorder observes finished invocations (audit log, metrics).
type Recorder interface {
	Record(ctx context.Context, inv Invocation)
}

type Dispatcher struct {
	registry  *tools.Registry
	upstream  Upstream
	env       *tools.Env
	logger    *slog.Logger
	redactor  *redact.Redactor
	recorders []Recorder
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithRedactor(r *redact.Redactor) Option {
	return func(d *Dispatcher) { d.redactor = r }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorders = append(d.recorders, r)
		}
	}
}

// WithBaseURL sets the host bare identifiers are expanded under. It defaults
// to the upstream's own base URL when the upstream exposes one.
func WithBaseURL(base string) Option {
	return func(d *Dispatcher) { d.env.BaseURL = base }
}

func New(registry *tools.Registry, upstream Upstream, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		upstream: upstream,
		env:      &tools.Env{BaseURL: calendly.DefaultBaseURL, Upstream: upstream},
		logger:   slog.Default(),
	}
	if b, ok := upstream.(interface{ BaseURL() string }); ok && b.BaseURL() != "" {
		d.env.BaseURL = b.BaseURL()
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")
	return d
}

func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Dispatch runs one invocation. Every outcome, including unknown operations
// and malformed arguments, is returned as a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) canonical.Result {
	started := time.Now()
	id := uuid.NewString()

	result := d.dispatch(ctx, name, args)

	inv := Invocation{
		ID:       id,
		Tool:     name,
		Args:     d.redactor.Args(args),
		Result:   result,
		Started:  started,
		Duration: time.Since(started),
	}
	d.log(inv)
	for _, r := range d.recorders {
		r.Record(ctx, inv)
	}
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args map[string]any) canonical.Result {
	op, ok := d.registry.Lookup(name)
	if !ok {
		return canonical.ValidationError("", "unknown operation")
	}
	normalized, err := tools.Normalize(args)
	if err != nil {
		return canonical.ValidationError("", "arguments are not valid JSON values: "+err.Error())
	}
	if field, missing := op.FirstMissing(normalized); missing {
		return canonical.ValidationError(field, "missing required field")
	}
	if err := op.Validate(normalized); err != nil {
		return fieldResult(err)
	}
	req, err := op.Transform(ctx, d.env, normalized)
	if err != nil {
		return fieldResult(err)
	}
	return d.upstream.Send(ctx, req)
}

func fieldResult(err error) canonical.Result {
	var fe *tools.FieldError
	if errors.As(err, &fe) {
		return canonical.ValidationError(fe.Field, fe.Message)
	}
	return canonical.ValidationError("", err.Error())
}

func (d *Dispatcher) log(inv Invocation) {
	attrs := []any{
		"id", inv.ID,
		"tool", inv.Tool,
		"kind", inv.Result.Kind,
		"elapsed", inv.Duration,
	}
	if inv.Result.Status != 0 {
		attrs = append(attrs, "status", inv.Result.Status)
	}
	switch inv.Result.Kind {
	case canonical.KindSuccess:
		d.logger.Info("tool call", attrs...)
	case canonical.KindValidationError:
		attrs = append(attrs, "field", inv.Result.Field, "error", inv.Result.Message)
		d.logger.Info("tool call rejected", attrs...)
	default:
		attrs = append(attrs, "error", d.redactor.Redact(inv.Result.Message))
		d.logger.Warn("tool call failed", attrs...)
	}
}
