package tools

import (
	"context"
	"net/http"

	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/canonical"
)

func scheduledEventOperations() []*Operation {
	bookingFields := []Field{
		body("event_type", TypeString, "Event type UUID or URI to book").req().ref(calendly.EventTypes),
		body("start_time", TypeString, "Start time of the meeting (ISO 8601, UTC)").req(),
		body("email", TypeString, "Invitee email").req().group("invitee"),
		body("name", TypeString, "Invitee full name").req().group("invitee"),
		body("first_name", TypeString, "Invitee first name").group("invitee"),
		body("last_name", TypeString, "Invitee last name").group("invitee"),
		body("timezone", TypeString, "Invitee IANA timezone").group("invitee"),
		body("text_reminder_number", TypeString, "Phone number for SMS reminders").group("invitee"),
		body("guests", TypeStringList, "Additional guest emails").wire("event_guests"),
		body("questions_and_answers", TypeJSONArray, "JSON array of {question, answer, position}"),
		body("tracking", TypeJSONObject, "JSON object of UTM tracking parameters"),
	}
	return []*Operation{
		{
			Name:        "list_events",
			Description: "List scheduled events.",
			Method:      http.MethodGet,
			Path:        "/scheduled_events",
			Fields: []Field{
				query("user", TypeString, "User UUID or URI").ref(calendly.Users),
				query("organization", TypeString, "Organization UUID or URI").ref(calendly.Organizations),
				query("invitee_email", TypeString, "Filter by invitee email"),
				query("status", TypeString, "Filter by status").enum("active", "canceled"),
				query("min_start_time", TypeString, "Minimum start time (ISO 8601)"),
				query("max_start_time", TypeString, "Maximum start time (ISO 8601)"),
				query("sort", TypeString, "Sort order (e.g. start_time:asc)"),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_event",
			Description: "Get details of a scheduled event.",
			Method:      http.MethodGet,
			Path:        "/scheduled_events/{uuid}",
			Fields:      []Field{pathParam("uuid", "Scheduled event UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "cancel_event",
			Description: "Cancel a scheduled event.",
			Method:      http.MethodPost,
			Path:        "/scheduled_events/{uuid}/cancellation",
			Fields: []Field{
				pathParam("uuid", "Scheduled event UUID or URI"),
				body("reason", TypeString, "Reason for cancellation (sent to invitees)"),
			},
			Result: resultResource,
		},
		{
			Name: "create_event_invitee",
			Description: "Book a meeting on an event type. When location_kind is omitted the event type's " +
				"single configured location is used; event types with several locations require location_kind.",
			Method:         http.MethodPost,
			Path:           "/invitees",
			Fields:         append(bookingFields, locationFields()...),
			Location:       LocationResolve,
			LocationSource: "event_type",
			Result:         resultResource,
		},
		{
			Name:        "list_event_invitees",
			Description: "List invitees of a scheduled event.",
			Method:      http.MethodGet,
			Path:        "/scheduled_events/{event_uuid}/invitees",
			Fields: []Field{
				pathParam("event_uuid", "Scheduled event UUID or URI"),
				query("email", TypeString, "Filter by invitee email"),
				query("status", TypeString, "Filter by status").enum("active", "canceled"),
				query("sort", TypeString, "Sort order (e.g. created_at:asc)"),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_event_invitee",
			Description: "Get details of one invitee of a scheduled event.",
			Method:      http.MethodGet,
			Path:        "/scheduled_events/{event_uuid}/invitees/{invitee_uuid}",
			Fields: []Field{
				pathParam("event_uuid", "Scheduled event UUID or URI"),
				pathParam("invitee_uuid", "Invitee UUID or URI"),
			},
			Result: resultResource,
		},
	}
}

func organizationOperations() []*Operation {
	return []*Operation{
		{
			Name:        "get_organization",
			Description: "Get organization details.",
			Method:      http.MethodGet,
			Path:        "/organizations/{uuid}",
			Fields:      []Field{pathParam("uuid", "Organization UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "list_organization_memberships",
			Description: "List members of an organization.",
			Method:      http.MethodGet,
			Path:        "/organization_memberships",
			Fields: []Field{
				query("organization", TypeString, "Organization UUID or URI").req().ref(calendly.Organizations),
				query("email", TypeString, "Filter by member email"),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_organization_membership",
			Description: "Get details of an organization membership.",
			Method:      http.MethodGet,
			Path:        "/organization_memberships/{uuid}",
			Fields:      []Field{pathParam("uuid", "Membership UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "delete_organization_membership",
			Description: "Remove a user from an organization.",
			Method:      http.MethodDelete,
			Path:        "/organization_memberships/{uuid}",
			Fields:      []Field{pathParam("uuid", "Membership UUID or URI")},
			Result:      resultAck,
		},
		{
			Name:        "list_organization_invitations",
			Description: "List invitations sent by an organization.",
			Method:      http.MethodGet,
			Path:        "/organizations/{organization}/invitations",
			Fields: []Field{
				pathParam("organization", "Organization UUID or URI"),
				query("email", TypeString, "Filter by invitee email"),
				query("status", TypeString, "Filter by status").enum("pending", "accepted", "declined"),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_organization_invitation",
			Description: "Get details of an organization invitation.",
			Method:      http.MethodGet,
			Path:        "/organizations/{organization}/invitations/{invitation_uuid}",
			Fields: []Field{
				pathParam("organization", "Organization UUID or URI"),
				pathParam("invitation_uuid", "Invitation UUID or URI"),
			},
			Result: resultResource,
		},
		{
			Name:        "create_organization_invitation",
			Description: "Invite a user to an organization.",
			Method:      http.MethodPost,
			Path:        "/organizations/{organization}/invitations",
			Fields: []Field{
				pathParam("organization", "Organization UUID or URI"),
				body("email", TypeString, "Email address to invite").req(),
			},
			Result: resultResource,
		},
		{
			Name:        "revoke_organization_invitation",
			Description: "Revoke a pending organization invitation.",
			Method:      http.MethodDelete,
			Path:        "/organizations/{organization}/invitations/{invitation_uuid}",
			Fields: []Field{
				pathParam("organization", "Organization UUID or URI"),
				pathParam("invitation_uuid", "Invitation UUID or URI"),
			},
			Result: resultAck,
		},
	}
}

func webhookOperations() []*Operation {
	return []*Operation{
		{
			Name:        "list_webhook_subscriptions",
			Description: "List webhook subscriptions.",
			Method:      http.MethodGet,
			Path:        "/webhook_subscriptions",
			Fields: []Field{
				query("organization", TypeString, "Organization UUID or URI").req().ref(calendly.Organizations),
				query("scope", TypeString, "Subscription scope").def("organization").enum("organization", "user", "group"),
				query("user", TypeString, "User UUID or URI (user scope)").ref(calendly.Users),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "create_webhook_subscription",
			Description: "Create a webhook subscription.",
			Method:      http.MethodPost,
			Path:        "/webhook_subscriptions",
			Fields: []Field{
				body("url", TypeString, "Callback URL receiving webhook events").req(),
				body("organization", TypeString, "Organization UUID or URI").req().ref(calendly.Organizations),
				body("events", TypeStringList, "Events to subscribe to (e.g. invitee.created)").req(),
				body("scope", TypeString, "Subscription scope").def("organization").enum("organization", "user", "group"),
				body("user", TypeString, "User UUID or URI (user scope)").ref(calendly.Users),
				body("signing_key", TypeString, "Key used to sign webhook payloads"),
			},
			Result: resultResource,
		},
		{
			Name:        "get_webhook_subscription",
			Description: "Get details of a webhook subscription.",
			Method:      http.MethodGet,
			Path:        "/webhook_subscriptions/{webhook_uuid}",
			Fields:      []Field{pathParam("webhook_uuid", "Webhook subscription UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "delete_webhook_subscription",
			Description: "Delete a webhook subscription.",
			Method:      http.MethodDelete,
			Path:        "/webhook_subscriptions/{webhook_uuid}",
			Fields:      []Field{pathParam("webhook_uuid", "Webhook subscription UUID or URI")},
			Result:      resultAck,
		},
	}
}

func routingFormOperations() []*Operation {
	return []*Operation{
		{
			Name:        "list_routing_forms",
			Description: "List routing forms of an organization.",
			Method:      http.MethodGet,
			Path:        "/routing_forms",
			Fields: []Field{
				query("organization", TypeString, "Organization UUID or URI").req().ref(calendly.Organizations),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_routing_form",
			Description: "Get details of a routing form.",
			Method:      http.MethodGet,
			Path:        "/routing_forms/{uuid}",
			Fields:      []Field{pathParam("uuid", "Routing form UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "list_routing_form_submissions",
			Description: "List submissions of a routing form.",
			Method:      http.MethodGet,
			Path:        "/routing_form_submissions",
			Fields: []Field{
				query("form", TypeString, "Routing form UUID or URI").req().ref(calendly.RoutingForms),
				pageTokenField(),
				countField(),
			},
			Result: resultCollection,
		},
		{
			Name:        "get_routing_form_submission",
			Description: "Get details of a routing form submission.",
			Method:      http.MethodGet,
			Path:        "/routing_form_submissions/{uuid}",
			Fields:      []Field{pathParam("uuid", "Submission UUID or URI")},
			Result:      resultResource,
		},
	}
}

func schedulingOperations() []*Operation {
	return []*Operation{
		{
			Name:        "create_scheduling_link",
			Description: "Create a single-use scheduling link for an event type.",
			Method:      http.MethodPost,
			Path:        "/scheduling_links",
			Fields: []Field{
				body("owner", TypeString, "Event type UUID or URI").req().ref(calendly.EventTypes),
				body("max_event_count", TypeInteger, "Number of bookings allowed").def(1),
				body("owner_type", TypeString, "Owner resource type").def("EventType").enum("EventType"),
			},
			Result: resultResource,
		},
		{
			Name:        "create_invitee_no_show",
			Description: "Mark an invitee as a no-show.",
			Method:      http.MethodPost,
			Path:        "/invitee_no_shows",
			Fields: []Field{
				body("invitee", TypeString, "Invitee URI, or invitee UUID together with event_uuid").req(),
				{Name: "event_uuid", Description: "Scheduled event UUID or URI, needed when invitee is a bare UUID", Type: TypeString, In: Local},
			},
			Finish: inviteeURI,
			Result: resultResource,
		},
		{
			Name:        "get_invitee_no_show",
			Description: "Get details of an invitee no-show.",
			Method:      http.MethodGet,
			Path:        "/invitee_no_shows/{uuid}",
			Fields:      []Field{pathParam("uuid", "No-show UUID or URI")},
			Result:      resultResource,
		},
		{
			Name:        "delete_invitee_no_show",
			Description: "Unmark an invitee as a no-show.",
			Method:      http.MethodDelete,
			Path:        "/invitee_no_shows/{uuid}",
			Fields:      []Field{pathParam("uuid", "No-show UUID or URI")},
			Result:      resultAck,
		},
		{
			Name:        "delete_invitee_data",
			Description: "Delete all data for the given invitee emails.",
			Method:      http.MethodPost,
			Path:        "/data_compliance/deletion/invitees",
			Fields: []Field{
				body("emails", TypeStringList, "Invitee emails to erase").req(),
			},
			Result: resultAck,
		},
	}
}

// inviteeURI expands a bare invitee UUID into its URI, which is nested under
// the scheduled event.
func inviteeURI(_ context.Context, env *Env, args map[string]any, req *canonical.Request) error {
	invitee, _ := req.Body["invitee"].(string)
	if calendly.IsURI(invitee) {
		return nil
	}
	if Missing(args, "event_uuid") {
		return &FieldError{Field: "event_uuid", Message: "required when invitee is not a URI"}
	}
	event := calendly.UUID(asString(args["event_uuid"]))
	req.Body["invitee"] = calendly.URI(baseURL(env), calendly.ScheduledEvents+"/"+event+"/invitees", invitee)
	return nil
}
