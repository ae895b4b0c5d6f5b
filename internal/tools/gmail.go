package tools

import (
	"context"
	"fmt"

	"github.com/inboxpilot/inboxpilot/internal/count"
	"github.com/inboxpilot/inboxpilot/internal/gmail"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// QueryGmail searches mail by query string. Three modes: plain listing,
// count_only (upstream estimate, flagged inaccurate), and count_all (exact
// count via full pagination).
type QueryGmail struct {
	svc *gmail.Client
}

// NewQueryGmail creates the mail query tool.
func NewQueryGmail(svc *gmail.Client) *QueryGmail {
	return &QueryGmail{svc: svc}
}

func (t *QueryGmail) Name() string { return "query_gmail" }

func (t *QueryGmail) Description() string {
	return "Search emails by query string. Supports 'from:user@example.com', 'subject:keyword', " +
		"'is:unread', 'in:inbox', and combinations like 'from:user is:unread'. " +
		"Optional: max_results (1-100, default 10). " +
		"Use count_all=true to count all matching emails (accurate but slower), " +
		"or count_only=true for the API estimate."
}

func (t *QueryGmail) ParamDomain() models.Domain { return models.DomainGmail }
func (t *QueryGmail) Destructive() bool          { return false }

func (t *QueryGmail) Execute(ctx context.Context, params models.Params) models.ToolResult {
	query := params.String("query", "")

	if params.Bool("count_all", false) {
		n, err := count.All(ctx, t.svc, query)
		if err != nil {
			return models.Fail(err.Error())
		}
		return models.Succeed(map[string]any{
			"query":   query,
			"count":   n,
			"summary": fmt.Sprintf("Found %d emails matching query (accurate count)", n),
		})
	}

	if params.Bool("count_only", false) {
		page, err := t.svc.ListMessages(ctx, query, 1)
		if err != nil {
			return models.Fail(fmt.Sprintf("mail query failed: %v", err))
		}
		return models.Succeed(map[string]any{
			"query":      query,
			"count":      page.EstimatedTotal,
			"count_note": "This is an API estimate and may be inaccurate. Use count_all=true for an accurate count.",
			"summary":    fmt.Sprintf("Found %d emails (API estimate)", page.EstimatedTotal),
		})
	}

	page, err := t.svc.ListMessages(ctx, query, params.Int("max_results", 10))
	if err != nil {
		return models.Fail(fmt.Sprintf("mail query failed: %v", err))
	}

	summaries := make([]map[string]any, 0, len(page.IDs))
	senders := map[string]bool{}
	for _, id := range page.IDs {
		meta, err := t.svc.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		senders[meta.From] = true
		summaries = append(summaries, map[string]any{
			"id":      meta.ID,
			"subject": meta.Subject,
			"from":    meta.From,
			"date":    meta.Date,
		})
	}

	returned := len(summaries)
	total := page.EstimatedTotal

	summary := fmt.Sprintf("Found %d emails", returned)
	if returned < total {
		summary += fmt.Sprintf(" (showing %d of %d total matching emails)", returned, total)
	} else {
		summary += " total"
	}

	// The upstream estimate is known to inflate; flag large discrepancies
	// rather than presenting the estimate as truth.
	warning := ""
	if returned > 0 && total > returned*2 {
		warning = fmt.Sprintf("API reports %d total results but only %d were retrieved; "+
			"the estimate may be inflated. Use count_all=true for an accurate count.", total, returned)
	}

	uniqueSenders := make([]string, 0, len(senders))
	for s := range senders {
		uniqueSenders = append(uniqueSenders, s)
	}

	result := map[string]any{
		"query":          query,
		"total_results":  total,
		"returned":       returned,
		"summary":        summary,
		"unique_senders": uniqueSenders,
		"emails":         summaries,
	}
	if warning != "" {
		result["discrepancy_warning"] = warning
	}
	return models.Succeed(result)
}

// ReadEmail reads the full content of a message by id. Ids come from a
// preceding query_gmail step.
type ReadEmail struct {
	svc *gmail.Client
}

// NewReadEmail creates the mail read tool.
func NewReadEmail(svc *gmail.Client) *ReadEmail {
	return &ReadEmail{svc: svc}
}

func (t *ReadEmail) Name() string { return "read_email" }

func (t *ReadEmail) Description() string {
	return "Read the full content of an email by its id. Get the id from query_gmail first."
}

func (t *ReadEmail) ParamDomain() models.Domain { return "" }
func (t *ReadEmail) Destructive() bool          { return false }

func (t *ReadEmail) Execute(ctx context.Context, params models.Params) models.ToolResult {
	id := params.String("message_id", "")
	if id == "" {
		return models.Fail("read_email: message_id is required")
	}
	msg, err := t.svc.GetFull(ctx, id)
	if err != nil {
		return models.Fail(fmt.Sprintf("failed to read email: %v", err))
	}
	return models.Succeed(map[string]any{
		"id":      msg.ID,
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"date":    msg.Date,
		"body":    msg.Body,
	})
}

// SendEmail sends a message. Destructive: sent mail cannot be unsent, so
// this tool is never auto-dispatched from the deterministic path without
// explicit recognized parameters.
type SendEmail struct {
	svc *gmail.Client
}

// NewSendEmail creates the mail send tool.
func NewSendEmail(svc *gmail.Client) *SendEmail {
	return &SendEmail{svc: svc}
}

func (t *SendEmail) Name() string { return "send_email" }

func (t *SendEmail) Description() string {
	return "Send an email. Use carefully - sent emails cannot be unsent."
}

func (t *SendEmail) ParamDomain() models.Domain { return "" }
func (t *SendEmail) Destructive() bool          { return true }

func (t *SendEmail) Execute(ctx context.Context, params models.Params) models.ToolResult {
	to := params.String("to", "")
	subject := params.String("subject", "")
	body := params.String("body", "")
	if to == "" || subject == "" {
		return models.Fail("send_email: to and subject are required")
	}
	id, err := t.svc.Send(ctx, to, subject, body)
	if err != nil {
		return models.Fail(fmt.Sprintf("failed to send email: %v", err))
	}
	return models.Succeed(map[string]any{
		"message_id": id,
		"to":         to,
		"subject":    subject,
		"status":     "sent successfully",
	})
}

// ListGmailLabels lists all mail labels (folders/categories).
type ListGmailLabels struct {
	svc *gmail.Client
}

// NewListGmailLabels creates the label listing tool.
func NewListGmailLabels(svc *gmail.Client) *ListGmailLabels {
	return &ListGmailLabels{svc: svc}
}

func (t *ListGmailLabels) Name() string { return "list_gmail_labels" }

func (t *ListGmailLabels) Description() string {
	return "List all available email labels (folders/categories)"
}

func (t *ListGmailLabels) ParamDomain() models.Domain { return "" }
func (t *ListGmailLabels) Destructive() bool          { return false }

func (t *ListGmailLabels) Execute(ctx context.Context, _ models.Params) models.ToolResult {
	labels, err := t.svc.ListLabels(ctx)
	if err != nil {
		return models.Fail(fmt.Sprintf("failed to list labels: %v", err))
	}
	out := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		out = append(out, map[string]any{"id": l.ID, "name": l.Name})
	}
	return models.Succeed(map[string]any{
		"total":  len(out),
		"labels": out,
	})
}
