// Package gcal is a thin REST client for the calendar service: calendar
// listing, event queries, event creation and deletion. Like the mail
// client, it sits at the collaborator boundary with an injected token
// source.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production calendar API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// TokenSource supplies a bearer token per request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the calendar REST API.
type Client struct {
	base   string
	client *http.Client
	tokens TokenSource
}

// New creates a calendar client. An empty base URL selects the production
// endpoint.
func New(base string, tokens TokenSource) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base:   base,
		client: &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
	}
}

// Calendar is one calendar in the user's list.
type Calendar struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Primary  bool   `json:"primary,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is one calendar event.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   EventTime `json:"start"`
	End     EventTime `json:"end"`
}

// EventTime carries either a timed or an all-day boundary.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// ListCalendars fetches the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var resp struct {
		Items []Calendar `json:"items"`
	}
	if err := c.do(ctx, "GET", "/users/me/calendarList", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ListEvents queries events on one calendar. Bare dates in timeMin/timeMax
// are widened to full-day RFC 3339 bounds.
func (c *Client) ListEvents(ctx context.Context, calendarID, timeMin, timeMax, searchText string, max int) ([]Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if max < 1 {
		max = 10
	}
	if max > 100 {
		max = 100
	}

	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(max))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	if timeMin != "" {
		q.Set("timeMin", widenStart(timeMin))
	}
	if timeMax != "" {
		q.Set("timeMax", widenEnd(timeMax))
	}
	if searchText != "" {
		q.Set("q", searchText)
	}

	var resp struct {
		Items []Event `json:"items"`
	}
	path := "/calendars/" + url.PathEscape(calendarID) + "/events?" + q.Encode()
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateEvent inserts an event and returns its id.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, event *Event) (string, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	var resp struct {
		ID string `json:"id"`
	}
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	if err := c.do(ctx, "POST", path, event, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// DeleteEvent removes an event by id.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if calendarID == "" {
		calendarID = "primary"
	}
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	return c.do(ctx, "DELETE", path, nil, nil)
}

// widenStart turns a bare date into the start-of-day RFC 3339 instant.
func widenStart(t string) string {
	if !strings.Contains(t, "T") {
		return t + "T00:00:00Z"
	}
	if !strings.HasSuffix(t, "Z") {
		return t + "Z"
	}
	return t
}

// widenEnd turns a bare date into the end-of-day RFC 3339 instant.
func widenEnd(t string) string {
	if !strings.Contains(t, "T") {
		return t + "T23:59:59Z"
	}
	if !strings.HasSuffix(t, "Z") {
		return t + "Z"
	}
	return t
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("gcal: token: %w", err)
	}

	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gcal: encode request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("gcal: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gcal: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gcal: status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gcal: decode response: %w", err)
	}
	return nil
}
