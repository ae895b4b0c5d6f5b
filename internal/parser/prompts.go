package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/schema"
)

// calendarPrompt builds the date-range extraction instruction. The current
// date is embedded so the model resolves relative expressions against the
// injected clock, not its own notion of today.
func calendarPrompt(goal string, now time.Time) string {
	return fmt.Sprintf(`Parse this calendar query and extract the date range.

Query: %q

Current date/time: %s (%s)
Current year: %d
Current month: %d

Return ONLY valid JSON:
{
    "time_min": "YYYY-MM-DD start date",
    "time_max": "YYYY-MM-DD end date (inclusive)",
    "search_text": "optional event name/keyword to search for, or null",
    "calendar_id": "primary"
}

IMPORTANT: Parse month names CAREFULLY:
- If the query mentions a month name (January, February, etc), identify it first
- If that month has not started yet this year, use this year
- If that month has passed, use next year
- "third week in january" means: find January, then the 3rd Monday-Sunday range

Rules:
- Weeks: Monday=start, Sunday=end
- If month/date doesn't parse, return the current week
- search_text is null unless an event name is mentioned

JSON only:`,
		goal,
		now.Format("2006-01-02 15:04:05"),
		now.Format("Monday, January 02, 2006"),
		now.Year(),
		int(now.Month()),
	)
}

// gmailPrompt builds the mail search-filter extraction instruction.
func gmailPrompt(goal string) string {
	return fmt.Sprintf(`Parse this Gmail query and extract the search filter.

Query: %q

Return ONLY valid JSON:
{
    "query": "Gmail search filter string (e.g., 'in:inbox is:unread from:user@example.com')",
    "count_all": boolean whether this is asking for a count
}

Rules:
- Use Gmail search syntax: from:, to:, subject:, in:, is:unread, is:read, etc.
- If asking "how many" or "count", set count_all to true
- Combine filters with spaces
- For inbox without specification, add "in:inbox"
- For unread, add "is:unread"
- For a specific sender, use "from:email@example.com"
- For a specific recipient, use "to:email@example.com"
- For subject matches, use "subject:keyword"

JSON only, no explanation:`, goal)
}

// toolPrompt asks for a bare tool name from the registered set.
func toolPrompt(goal string, valid []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Determine which tool is best for this query.\n\nQuery: %q\n\n", goal)
	b.WriteString("Return ONLY the tool name, nothing else. Choose from:\n")
	for _, name := range valid {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nReturn only the tool name, nothing else:")
	return b.String()
}

// genericPrompt builds an instruction for a registered domain that has no
// hand-written template, describing the schema field by field.
func genericPrompt(goal string, sch *schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the %s parameters from this query.\n\nQuery: %q\n\n", sch.Domain, goal)
	b.WriteString("Return ONLY valid JSON with these keys:\n")
	for _, f := range sch.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "- %q: %s (%s)\n", f.Name, f.Kind, req)
	}
	b.WriteString("\nJSON only:")
	return b.String()
}

// customPrompt wraps a caller-supplied instruction for ParseCustom.
func customPrompt(goal, instruction string, out *schema.Schema) string {
	var b strings.Builder
	b.WriteString(instruction)
	fmt.Fprintf(&b, "\n\nQuery: %q\n\n", goal)
	if out != nil && len(out.Fields) > 0 {
		b.WriteString("Expected output keys:\n")
		for _, f := range out.Fields {
			fmt.Fprintf(&b, "- %q: %s\n", f.Name, f.Kind)
		}
		b.WriteString("\n")
	}
	b.WriteString("Return ONLY valid JSON:")
	return b.String()
}
