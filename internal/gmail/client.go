// Package gmail is a thin REST client for the mail service, exposed to the
// core only at its interface boundary: message listing (paged), metadata
// and full reads, sending, and label listing. Authentication is an
// injected token source; the client performs no credential refresh.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// DefaultBaseURL is the production mail API endpoint.
const DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// pageSize is the capability-defined page size for paged listing.
const pageSize = 100

// TokenSource supplies a bearer token per request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource around a fixed token string.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("gmail: no access token configured")
	}
	return string(t), nil
}

// Client calls the mail REST API.
type Client struct {
	base   string
	client *http.Client
	tokens TokenSource
}

// New creates a mail client. An empty base URL selects the production
// endpoint; tests point it at a local fake.
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

// ── Wire shapes ─────────────────────────────────────────────

type listResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken      string `json:"nextPageToken"`
	ResultSizeEstimate int    `json:"resultSizeEstimate"`
}

type messageResponse struct {
	ID      string `json:"id"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		MimeType string `json:"mimeType"`
		Body     struct {
			Data string `json:"data"`
		} `json:"body"`
		Parts []struct {
			MimeType string `json:"mimeType"`
			Body     struct {
				Data string `json:"data"`
			} `json:"body"`
		} `json:"parts"`
	} `json:"payload"`
}

// MessageMeta is the header summary of one message.
type MessageMeta struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// Message is a full message including the decoded plain-text body.
type Message struct {
	MessageMeta
	Body string `json:"body"`
}

// Label is one mail label (folder/category).
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── Paged listing capability ────────────────────────────────

// ListPage fetches one page of message ids matching the query. The
// returned EstimatedTotal is the upstream estimate and is known to be
// inaccurate; exact counting paginates instead of trusting it.
func (c *Client) ListPage(ctx context.Context, query, cursor string) (*models.Page, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("maxResults", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("pageToken", cursor)
	}

	var resp listResponse
	if err := c.get(ctx, "/users/me/messages?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	page := &models.Page{
		NextCursor:     resp.NextPageToken,
		EstimatedTotal: resp.ResultSizeEstimate,
	}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.ID)
	}
	return page, nil
}

// ListMessages fetches up to max message ids in a single page.
func (c *Client) ListMessages(ctx context.Context, query string, max int) (*models.Page, error) {
	if max < 1 {
		max = 10
	}
	if max > pageSize {
		max = pageSize
	}
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("maxResults", strconv.Itoa(max))

	var resp listResponse
	if err := c.get(ctx, "/users/me/messages?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	page := &models.Page{
		NextCursor:     resp.NextPageToken,
		EstimatedTotal: resp.ResultSizeEstimate,
	}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.ID)
	}
	return page, nil
}

// ── Reads ───────────────────────────────────────────────────

// GetMetadata fetches the From/To/Subject/Date headers of a message.
func (c *Client) GetMetadata(ctx context.Context, id string) (*MessageMeta, error) {
	path := "/users/me/messages/" + url.PathEscape(id) +
		"?format=metadata&metadataHeaders=From&metadataHeaders=To&metadataHeaders=Subject&metadataHeaders=Date"
	var resp messageResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	meta := metaFromHeaders(&resp)
	return &meta, nil
}

// GetFull fetches a message with its decoded plain-text body.
func (c *Client) GetFull(ctx context.Context, id string) (*Message, error) {
	var resp messageResponse
	if err := c.get(ctx, "/users/me/messages/"+url.PathEscape(id)+"?format=full", &resp); err != nil {
		return nil, err
	}

	msg := &Message{MessageMeta: metaFromHeaders(&resp)}

	// Multipart: first text/plain part wins. Simple: body on the payload.
	if len(resp.Payload.Parts) > 0 {
		for _, part := range resp.Payload.Parts {
			if part.MimeType == "text/plain" && part.Body.Data != "" {
				if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data); err == nil {
					msg.Body = string(decoded)
				}
				break
			}
		}
	} else if resp.Payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(resp.Payload.Body.Data); err == nil {
			msg.Body = string(decoded)
		}
	}
	return msg, nil
}

func metaFromHeaders(resp *messageResponse) MessageMeta {
	meta := MessageMeta{
		ID:      resp.ID,
		From:    "[Unknown]",
		To:      "[Unknown]",
		Subject: "[No Subject]",
		Date:    "[Unknown]",
	}
	for _, h := range resp.Payload.Headers {
		switch h.Name {
		case "From":
			meta.From = h.Value
		case "To":
			meta.To = h.Value
		case "Subject":
			meta.Subject = h.Value
		case "Date":
			meta.Date = h.Value
		}
	}
	return meta
}

// ── Send ────────────────────────────────────────────────────

// Send composes and sends a plain-text message, returning the new message
// id. Sent messages cannot be unsent.
func (c *Client) Send(ctx context.Context, to, subject, body string) (string, error) {
	// Header order matters for the upstream parser.
	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)
	payload := map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/users/me/messages/send", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ── Labels ──────────────────────────────────────────────────

// ListLabels fetches all mail labels.
func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	var resp struct {
		Labels []Label `json:"labels"`
	}
	if err := c.get(ctx, "/users/me/labels", &resp); err != nil {
		return nil, err
	}
	return resp.Labels, nil
}

// ── Transport ───────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, "GET", path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("gmail: encode request: %w", err)
	}
	return c.do(ctx, "POST", path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("gmail: token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("gmail: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gmail: status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gmail: decode response: %w", err)
	}
	return nil
}
