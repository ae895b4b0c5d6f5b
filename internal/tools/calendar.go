package tools

import (
	"context"
	"fmt"

	"github.com/inboxpilot/inboxpilot/internal/gcal"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// ListCalendars lists all calendars visible to the account.
type ListCalendars struct {
	svc *gcal.Client
}

// NewListCalendars creates the calendar listing tool.
func NewListCalendars(svc *gcal.Client) *ListCalendars {
	return &ListCalendars{svc: svc}
}

func (t *ListCalendars) Name() string { return "list_calendars" }

func (t *ListCalendars) Description() string {
	return "List all available calendars"
}

func (t *ListCalendars) ParamDomain() models.Domain { return "" }
func (t *ListCalendars) Destructive() bool          { return false }

func (t *ListCalendars) Execute(ctx context.Context, _ models.Params) models.ToolResult {
	cals, err := t.svc.ListCalendars(ctx)
	if err != nil {
		return models.Fail(fmt.Sprintf("failed to list calendars: %v", err))
	}
	out := make([]map[string]any, 0, len(cals))
	for _, cal := range cals {
		tz := cal.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		out = append(out, map[string]any{
			"id":       cal.ID,
			"summary":  cal.Summary,
			"primary":  cal.Primary,
			"timezone": tz,
		})
	}
	return models.Succeed(map[string]any{
		"total":     len(out),
		"calendars": out,
	})
}

// QueryEvents searches events on a calendar with a time range and optional
// search text.
type QueryEvents struct {
	svc *gcal.Client
}

// NewQueryEvents creates the event query tool.
func NewQueryEvents(svc *gcal.Client) *QueryEvents {
	return &QueryEvents{svc: svc}
}

func (t *QueryEvents) Name() string { return "query_events" }

func (t *QueryEvents) Description() string {
	return "Query events from a calendar. Can filter by calendar id, time range, and search text. " +
		"Default calendar is primary. Use time_min/time_max for date ranges (ISO 8601 like '2026-08-27')."
}

func (t *QueryEvents) ParamDomain() models.Domain { return models.DomainCalendar }
func (t *QueryEvents) Destructive() bool          { return false }

func (t *QueryEvents) Execute(ctx context.Context, params models.Params) models.ToolResult {
	events, err := t.svc.ListEvents(ctx,
		params.String("calendar_id", "primary"),
		params.String("time_min", ""),
		params.String("time_max", ""),
		params.String("search_text", ""),
		params.Int("max_results", 10),
	)
	if err != nil {
		return models.Fail(fmt.Sprintf("calendar query failed: %v", err))
	}

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"id":      ev.ID,
			"summary": ev.Summary,
			"start":   eventTime(ev.Start),
			"end":     eventTime(ev.End),
		})
	}
	return models.Succeed(map[string]any{
		"total":  len(out),
		"events": out,
	})
}

func eventTime(t gcal.EventTime) string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// CreateEvent inserts an event. Destructive in the auto-dispatch sense: it
// mutates remote state, so the deterministic path only runs it when the
// goal carried explicit dates.
type CreateEvent struct {
	svc *gcal.Client
}

// NewCreateEvent creates the event creation tool.
func NewCreateEvent(svc *gcal.Client) *CreateEvent {
	return &CreateEvent{svc: svc}
}

func (t *CreateEvent) Name() string { return "create_event" }

func (t *CreateEvent) Description() string {
	return "Create a calendar event. Requires start_time (ISO 8601); optional end_time, summary, calendar_id."
}

func (t *CreateEvent) ParamDomain() models.Domain { return "" }
func (t *CreateEvent) Destructive() bool          { return true }

func (t *CreateEvent) Execute(ctx context.Context, params models.Params) models.ToolResult {
	start := params.String("start_time", "")
	if start == "" {
		return models.Fail("create_event: start_time is required")
	}
	end := params.String("end_time", start)
	summary := params.String("summary", "New Event")

	event := &gcal.Event{
		Summary: summary,
		Start:   toEventTime(start),
		End:     toEventTime(end),
	}
	id, err := t.svc.CreateEvent(ctx, params.String("calendar_id", "primary"), event)
	if err != nil {
		return models.Fail(fmt.Sprintf("failed to create event: %v", err))
	}
	return models.Succeed(map[string]any{
		"event_id": id,
		"summary":  summary,
		"start":    start,
		"end":      end,
		"status":   "created",
	})
}

// toEventTime maps a bare date to an all-day boundary and anything longer
// to a timed boundary.
func toEventTime(s string) gcal.EventTime {
	if len(s) == len("2006-01-02") {
		return gcal.EventTime{Date: s}
	}
	return gcal.EventTime{DateTime: s}
}

// DeleteEvent removes an event by id. Destructive: requires an explicit
// event id, never auto-dispatched from keyword matching alone.
type DeleteEvent struct {
	svc *gcal.Client
}

// NewDeleteEvent creates the event deletion tool.
func NewDeleteEvent(svc *gcal.Client) *DeleteEvent {
	return &DeleteEvent{svc: svc}
}

func (t *DeleteEvent) Name() string { return "delete_event" }

func (t *DeleteEvent) Description() string {
	return "Delete a calendar event by id. Get the id from query_events first."
}

func (t *DeleteEvent) ParamDomain() models.Domain { return "" }
func (t *DeleteEvent) Destructive() bool          { return true }

func (t *DeleteEvent) Execute(ctx context.Context, params models.Params) models.ToolResult {
	eventID := params.String("event_id", "")
	if eventID == "" {
		return models.Fail("delete_event: event_id is required")
	}
	if err := t.svc.DeleteEvent(ctx, params.String("calendar_id", "primary"), eventID); err != nil {
		return models.Fail(fmt.Sprintf("failed to delete event: %v", err))
	}
	return models.Succeed(map[string]any{
		"event_id": eventID,
		"status":   "deleted",
	})
}
