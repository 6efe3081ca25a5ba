package canonical

import (
	"net/url"
)

// Request is the upstream call an operation resolves to.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Kind discriminates the variants of Result.
type Kind string

const (
	KindSuccess         Kind = "success"
	KindUpstreamError   Kind = "upstream_error"
	KindTransportError  Kind = "transport_error"
	KindValidationError Kind = "validation_error"
)

// Result is the single outcome shape returned by every dispatch. Only the
// fields belonging to Kind are populated.
type Result struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Body    any    `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func Success(status int, body any) Result {
	return Result{Kind: KindSuccess, Status: status, Body: body}
}

func UpstreamError(status int, message string) Result {
	return Result{Kind: KindUpstreamError, Status: status, Message: message}
}

func TransportError(message string) Result {
	return Result{Kind: KindTransportError, Message: message}
}

func ValidationError(field, message string) Result {
	return Result{Kind: KindValidationError, Field: field, Message: message}
}

// IsError reports whether the result is any of the error variants.
func (r Result) IsError() bool {
	return r.Kind != KindSuccess
}
