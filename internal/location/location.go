// Package location models where a booked meeting takes place and derives a
// booking location from an event type's configuration.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/canonical"
)

const (
	Physical     = "physical"
	InboundCall  = "inbound_call"
	OutboundCall = "outbound_call"
	AskInvitee   = "ask_invitee"
	Custom       = "custom"

	ZoomConference        = "zoom_conference"
	GoogleConference      = "google_conference"
	TeamsConference       = "microsoft_teams_conference"
	WebexConference       = "webex_conference"
	GoToMeetingConference = "gotomeeting_conference"
)

// Kinds lists the location kinds accepted by the API, in schema order.
var Kinds = []string{
	Physical, InboundCall, OutboundCall, AskInvitee,
	ZoomConference, GoogleConference, TeamsConference, WebexConference, GoToMeetingConference,
	Custom,
}

// Descriptor is a location kind plus its optional secondary detail.
type Descriptor struct {
	Kind   string
	Detail string
}

// DetailKey names the payload field that carries the detail for kind.
func DetailKey(kind string) string {
	switch kind {
	case Physical:
		return "location"
	case InboundCall, OutboundCall:
		return "phone_number"
	default:
		return "additional_info"
	}
}

// Payload renders d as the API's location object.
func (d Descriptor) Payload() map[string]any {
	out := map[string]any{"kind": d.Kind}
	if d.Detail != "" {
		out[DetailKey(d.Kind)] = d.Detail
	}
	return out
}

// FromResource reads one entry of an event type's "locations" list.
func FromResource(entry map[string]any) (Descriptor, bool) {
	kind, _ := entry["kind"].(string)
	if strings.TrimSpace(kind) == "" {
		return Descriptor{}, false
	}
	d := Descriptor{Kind: kind}
	if detail, ok := entry[DetailKey(kind)].(string); ok && detail != "" {
		d.Detail = detail
		return d, true
	}
	for _, key := range []string{"location", "phone_number", "additional_info"} {
		if detail, ok := entry[key].(string); ok && detail != "" {
			d.Detail = detail
			break
		}
	}
	return d, true
}

// AmbiguousError reports an event type offering more than one location.
type AmbiguousError struct {
	EventType string
	Kinds     []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("event type %s offers %d locations (%s); set location_kind to choose one",
		e.EventType, len(e.Kinds), strings.Join(e.Kinds, ", "))
}

// Sender performs an upstream call.
type Sender interface {
	Send(ctx context.Context, req *canonical.Request) canonical.Result
}

// Resolve fetches the event type and returns its single configured location.
// It returns nil when the fetch fails or no location is configured, and an
// *AmbiguousError when several are.
func Resolve(ctx context.Context, sender Sender, eventType string) (*Descriptor, error) {
	id := calendly.UUID(eventType)
	result := sender.Send(ctx, &canonical.Request{
		Method: http.MethodGet,
		Path:   "/" + calendly.EventTypes + "/" + id,
	})
	if result.IsError() {
		slog.Debug("location lookup failed, booking without location",
			"component", "location", "event_type", id, "kind", result.Kind, "status", result.Status)
		return nil, nil
	}

	entries := locationEntries(result.Body)
	switch len(entries) {
	case 0:
		return nil, nil
	case 1:
		d := entries[0]
		return &d, nil
	default:
		kinds := make([]string, 0, len(entries))
		for _, d := range entries {
			kinds = append(kinds, d.Kind)
		}
		return nil, &AmbiguousError{EventType: id, Kinds: kinds}
	}
}

func locationEntries(body any) []Descriptor {
	root, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	resource, ok := root["resource"].(map[string]any)
	if !ok {
		resource = root
	}
	raw, ok := resource["locations"].([]any)
	if !ok {
		return nil
	}
	out := make([]Descriptor, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if d, ok := FromResource(entry); ok {
			out = append(out, d)
		}
	}
	return out
}
