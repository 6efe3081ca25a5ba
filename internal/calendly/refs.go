package calendly

import (
	"strings"
)

// DefaultBaseURL is the Calendly API v2 host. Resource URIs returned by the
// API are rooted here.
const DefaultBaseURL = "https://api.calendly.com"

// Resource collections that appear in resource URIs.
const (
	Users           = "users"
	Organizations   = "organizations"
	EventTypes      = "event_types"
	ScheduledEvents = "scheduled_events"
	RoutingForms    = "routing_forms"
)

// IsURI reports whether ref is a fully-qualified resource URI rather than a
// bare identifier.
func IsURI(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// UUID returns the identifier part of ref: the text after the final "/" for
// a URI, ref itself otherwise.
func UUID(ref string) string {
	ref = strings.TrimSpace(ref)
	if !IsURI(ref) {
		return ref
	}
	ref = strings.TrimRight(ref, "/")
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// URI returns ref as a resource URI under base. A ref that already is a URI
// is returned unchanged.
func URI(base, collection, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsURI(ref) {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + collection + "/" + ref
}
