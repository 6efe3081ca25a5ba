package tools

import (
	"net/http"

	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/location"
)

// Catalog returns fresh descriptors for every exposed Calendly operation.
func Catalog() []*Operation {
	var ops []*Operation
	ops = append(ops, userOperations()...)
	ops = append(ops, eventTypeOperations()...)
	ops = append(ops, availabilityOperations()...)
	ops = append(ops, scheduledEventOperations()...)
	ops = append(ops, organizationOperations()...)
	ops = append(ops, webhookOperations()...)
	ops = append(ops, routingFormOperations()...)
	ops = append(ops, schedulingOperations()...)
	return ops
}

const (
	resultResource   = "resource: the requested object"
	resultCollection = "collection: list of objects, pagination: next_page_token"
	resultAck        = "success: true when the API returns no content"
)

func countField() Field {
	return query("count", TypeInteger, "Number of results to return (max 100)").def(20)
}

func pageTokenField() Field {
	return query("page_token", TypeString, "Token for the next page of results")
}

func locationFields() []Field {
	return []Field{
		{
			Name:        argLocationKind,
			Description: "Location kind (physical, zoom_conference, google_conference, inbound_call, ...)",
			Type:        TypeString,
			In:          Local,
			Enum:        location.Kinds,
		},
		{
			Name:        argLocationDetails,
			Description: "Address for physical, phone number for calls, additional info otherwise",
			Type:        TypeString,
			In:          Local,
		},
	}
}

func userOperations() []*Operation {
	return []*Operation{
		{
			Name:        "get_current_user",
			Description: "Get information about the currently authenticated user.",
			Method:      http.MethodGet,
			Path:        "/users/me",
			Result:      resultResource,
		},
		{
			Name:        "get_user",
			Description: "Get information about a specific user.",
			Method:      http.MethodGet,
			Path:        "/users/{uuid}",
			Fields: []Field{
				pathParam("uuid", "User UUID or URI (\"me\" for the current user)"),
			},
			Result: resultResource,
		},
	}
}

func eventTypeOperations() []*Operation {
	createFields := []Field{
		body("name", TypeString, "Name of the event type").req(),
		body("duration", TypeInteger, "Duration in minutes").req(),
		body("owner", TypeString, "User UUID or URI hosting the event type").req().wire("host").ref(calendly.Users),
		body("description", TypeString, "Plain text description"),
		body("timezone", TypeString, "IANA timezone for the event type"),
		body("color", TypeString, "Hex color code (e.g. #8247f5)"),
		body("visibility", TypeString, "Visibility of the event type"),
		body("locale", TypeString, "Locale (e.g. en, de, fr)"),
	}
	updateFields := []Field{
		pathParam("uuid", "Event type UUID or URI"),
		body("name", TypeString, "New name"),
		body("duration", TypeInteger, "New duration in minutes"),
		body("description_plain", TypeString, "Plain text description"),
		body("description_html", TypeString, "HTML description"),
		body("color", TypeString, "Hex color code (e.g. #8247f5)"),
		body("active", TypeBoolean, "Whether the event type is active"),
		body("visibility", TypeString, "Visibility of the event type"),
	}
	return []*Operation{
		{
			Name:        "list_event_types",
			Description: "List event types for a user or organization.",
			Method:      http.MethodGet,
			Path:        "/event_types",
			Fields: []Field{
				query("user", TypeString, "User UUID or URI").ref(calendly.Users),
				query("organization", TypeString, "Organization UUID or URI").ref(calendly.Organizations),
				query("active", TypeBoolean, "Filter by active status"),
				query("sort", TypeString, "Sort order (e.g. name:asc)"),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_event_type",
			Description: "Get details of a specific event type.",
			Method:      http.MethodGet,
			Path:        "/event_types/{uuid}",
			Fields:      []Field{pathParam("uuid", "Event type UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "create_event_type",
			Description: "Create a one-on-one event type.",
			Method:      http.MethodPost,
			Path:        "/event_types",
			Fields:      append(createFields, locationFields()...),
			Location:    LocationFromArgs,
			Result:      resultResource,
		},
		{
			Name:        "update_event_type",
			Description: "Update an existing event type.",
			Method:      http.MethodPatch,
			Path:        "/event_types/{uuid}",
			Fields:      append(updateFields, locationFields()...),
			Location:    LocationFromArgs,
			Result:      resultResource,
		},
		{
			Name:        "delete_event_type",
			Description: "Delete an event type.",
			Method:      http.MethodDelete,
			Path:        "/event_types/{uuid}",
			Fields:      []Field{pathParam("uuid", "Event type UUID or URI")},
			Result:      resultAck,
		},
		{
			Name:        "list_event_type_available_times",
			Description: "List available time slots for an event type within a range (max 7 days).",
			Method:      http.MethodGet,
			Path:        "/event_type_available_times",
			Fields: []Field{
				query("event_type", TypeString, "Event type UUID or URI").req().ref(calendly.EventTypes),
				query("start_time", TypeString, "Start of range (ISO 8601)").req(),
				query("end_time", TypeString, "End of range (ISO 8601)").req(),
			},
			Result: resultCollection,
		},
		{
			Name:        "list_event_type_availability_schedules",
			Description: "List availability schedules attached to an event type.",
			Method:      http.MethodGet,
			Path:        "/event_type_availability_schedules",
			Fields: []Field{
				query("event_type", TypeString, "Event type UUID or URI").req().ref(calendly.EventTypes),
				query("user", TypeString, "User UUID or URI").ref(calendly.Users),
			},
			Result: resultCollection,
		},
		{
			Name:        "update_event_type_availability_schedule",
			Description: "Replace the availability rules of an event type.",
			Method:      http.MethodPatch,
			Path:        "/event_type_availability_schedules",
			Fields: []Field{
				body("event_type", TypeString, "Event type UUID or URI").req().ref(calendly.EventTypes),
				body("availability_rules", TypeJSONObject, "JSON availability rule (timezone, rules)").req().wire("availability_rule"),
				body("user", TypeString, "User UUID or URI").ref(calendly.Users),
				body("availability_setting", TypeString, "Availability setting (e.g. host)"),
			},
			Result: resultResource,
		},
		{
			Name:        "list_user_meeting_locations",
			Description: "List the meeting locations configured for a user.",
			Method:      http.MethodGet,
			Path:        "/locations",
			Fields: []Field{
				query("user", TypeString, "User UUID or URI").req().ref(calendly.Users),
			},
			Result: resultCollection,
		},
	}
}

func availabilityOperations() []*Operation {
	return []*Operation{
		{
			Name:        "list_user_availability_schedules",
			Description: "List all availability schedules for a user.",
			Method:      http.MethodGet,
			Path:        "/user_availability_schedules",
			Fields: []Field{
				query("user", TypeString, "User UUID or URI").req().ref(calendly.Users),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_user_availability_schedule",
			Description: "Get details of a user availability schedule.",
			Method:      http.MethodGet,
			Path:        "/user_availability_schedules/{uuid}",
			Fields:      []Field{pathParam("uuid", "Availability schedule UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "create_user_availability_schedule",
			Description: "Create an availability schedule for a user.",
			Method:      http.MethodPost,
			Path:        "/user_availability_schedules",
			Fields: []Field{
				body("user", TypeString, "User UUID or URI").req().ref(calendly.Users),
				body("name", TypeString, "Schedule name").req(),
				body("timezone", TypeString, "IANA timezone (e.g. America/New_York)").req(),
				body("rules", TypeJSONArray, "JSON array of availability rules").req(),
			},
			Result: resultResource,
		},
		{
			Name:        "update_user_availability_schedule",
			Description: "Update an availability schedule.",
			Method:      http.MethodPatch,
			Path:        "/user_availability_schedules/{uuid}",
			Fields: []Field{
				pathParam("uuid", "Availability schedule UUID or URI"),
				body("name", TypeString, "New schedule name"),
				body("timezone", TypeString, "New IANA timezone"),
				body("rules", TypeJSONArray, "JSON array of availability rules"),
			},
			Result: resultResource,
		},
		{
			Name:        "delete_user_availability_schedule",
			Description: "Delete an availability schedule.",
			Method:      http.MethodDelete,
			Path:        "/user_availability_schedules/{uuid}",
			Fields:      []Field{pathParam("uuid", "Availability schedule UUID or URI")},
			Result:      resultAck,
		},
		{
			Name:        "list_user_busy_times",
			Description: "List busy time blocks for a user within a range (max 7 days).",
			Method:      http.MethodGet,
			Path:        "/user_busy_times",
			Fields: []Field{
				query("user", TypeString, "User UUID or URI").req().ref(calendly.Users),
				query("start_time", TypeString, "Start of range (ISO 8601)").req(),
				query("end_time", TypeString, "End of range (ISO 8601)").req(),
			},
			Result: resultCollection,
		},
	}
}
