package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/schema"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	isoDatePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	weekOrdinal    = regexp.MustCompile(`\b(first|second|third|fourth|fifth|1st|2nd|3rd|4th|5th)\s+week\b`)
	// Full month names before their prefixes so "march" never matches as "mar".
	monthName = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekOrdinals = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
	"fifth": 5, "5th": 5,
}

// RuleExtractor is the deterministic fallback strategy. It shares schemas
// with the model path, so everything it produces is safe to hand to the
// same tools.
type RuleExtractor struct {
	schemas *schema.Registry
	now     Clock
}

// NewRuleExtractor creates the rule-based extractor.
func NewRuleExtractor(schemas *schema.Registry, now Clock) *RuleExtractor {
	if now == nil {
		now = time.Now
	}
	return &RuleExtractor{schemas: schemas, now: now}
}

// Extract derives a domain's parameters from the goal text. It never fails
// for a non-empty goal; when nothing matches it returns the schema's
// documented defaults.
func (e *RuleExtractor) Extract(goal string, domain models.Domain) models.Params {
	sch, err := e.schemas.Get(domain)
	if err != nil {
		return models.Params{}
	}
	params := sch.Defaults()

	switch domain {
	case models.DomainGmail:
		e.extractGmail(goal, params)
	case models.DomainCalendar:
		e.extractCalendar(goal, params)
	}
	return params
}

// extractGmail builds a provider search query from literal sender
// addresses, folder keywords, unread/count intent, and coarse date
// keywords.
func (e *RuleExtractor) extractGmail(goal string, params models.Params) {
	lower := strings.ToLower(goal)
	var tokens []string

	if addr := emailPattern.FindString(goal); addr != "" {
		tokens = append(tokens, "from:"+addr)
	}

	switch {
	case strings.Contains(lower, "inbox"):
		tokens = append(tokens, "in:inbox")
	case strings.Contains(lower, "sent"):
		tokens = append(tokens, "in:sent")
	case strings.Contains(lower, "draft"):
		tokens = append(tokens, "in:draft")
	}

	if strings.Contains(lower, "unread") {
		tokens = append(tokens, "is:unread")
	}

	now := e.now()
	switch {
	case strings.Contains(lower, "today"):
		tokens = append(tokens, "after:"+now.Format("2006/01/02"))
	case strings.Contains(lower, "this week"):
		tokens = append(tokens, "after:"+startOfWeek(now).Format("2006/01/02"))
	}

	params["query"] = strings.Join(tokens, " ")

	if containsAny(lower, "how many", "count", "total") {
		params["count_all"] = true
	}
}

// extractCalendar resolves coarse date expressions to an absolute
// Monday-start week range against the injected current date.
func (e *RuleExtractor) extractCalendar(goal string, params models.Params) {
	lower := strings.ToLower(goal)
	now := e.now()

	if strings.Contains(lower, "work") {
		params["search_text"] = "Work"
	}

	switch {
	case strings.Contains(lower, "today"):
		params["time_min"] = now.Format("2006-01-02")
		params["time_max"] = now.AddDate(0, 0, 1).Format("2006-01-02")

	case strings.Contains(lower, "week"):
		start, end := e.weekRange(lower, now)
		params["time_min"] = start.Format("2006-01-02")
		params["time_max"] = end.Format("2006-01-02")
	}
}

// weekRange picks the Monday-Sunday range a goal refers to: an explicit
// "Nth week of <month>", "next week", or the current week.
func (e *RuleExtractor) weekRange(lower string, now time.Time) (time.Time, time.Time) {
	ordMatch := weekOrdinal.FindStringSubmatch(lower)
	monMatch := monthName.FindStringSubmatch(lower)

	if ordMatch != nil && monMatch != nil {
		n := weekOrdinals[ordMatch[1]]
		month := monthsByName[monMatch[1]]
		start := nthWeekOfMonth(now, month, n)
		return start, start.AddDate(0, 0, 6)
	}

	start := startOfWeek(now)
	if strings.Contains(lower, "next") {
		start = start.AddDate(0, 0, 7)
	}
	return start, start.AddDate(0, 0, 6)
}

// EventTimes scans the goal for explicit ISO dates for event creation. The
// deterministic path dispatches event creation only when such explicit
// parameters are present.
func (e *RuleExtractor) EventTimes(goal string) models.Params {
	params := models.Params{}
	dates := isoDatePattern.FindAllString(goal, 2)
	if len(dates) > 0 {
		params["start_time"] = dates[0]
	}
	if len(dates) > 1 {
		params["end_time"] = dates[1]
	}
	return params
}

// ── Tool selection ───────────────────────────────────────────

// mailWords and calendarWords gate the deterministic tool table.
var (
	mailWords     = []string{"email", "gmail", "inbox", "mail", "message"}
	calendarWords = []string{"calendar", "event", "schedule", "meeting", "appointment"}
)

// SelectTools maps goal keywords to tool names without any external call.
// An empty result means no registered capability matches the goal.
func (e *RuleExtractor) SelectTools(goal string) []string {
	lower := strings.ToLower(goal)
	var tools []string

	if containsAny(lower, mailWords...) {
		switch {
		case containsAny(lower, "send", "write"):
			tools = append(tools, "send_email")
		case containsAny(lower, "label", "folder"):
			tools = append(tools, "list_gmail_labels")
		default:
			// Counting, reading, and showing all start from a query.
			tools = append(tools, "query_gmail")
		}
	}

	if containsAny(lower, calendarWords...) {
		switch {
		case containsAny(lower, "create", "add"):
			tools = append(tools, "create_event")
		case containsAny(lower, "delete", "remove", "cancel"):
			tools = append(tools, "delete_event")
		case strings.Contains(lower, "list all") || strings.Contains(lower, "list calendars"):
			tools = append(tools, "list_calendars")
		default:
			tools = append(tools, "query_events")
		}
	}

	return tools
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ── Date helpers ─────────────────────────────────────────────

// startOfWeek returns the Monday of t's ISO week, at midnight.
func startOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(wd - 1))
}

// nthWeekOfMonth returns the Monday starting the Nth week of the given
// month. A month that has already passed resolves to next year.
func nthWeekOfMonth(now time.Time, month time.Month, n int) time.Time {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	wd := int(first.Weekday())
	if wd == 0 {
		wd = 7
	}
	daysUntilMonday := (8 - wd) % 7
	firstMonday := first.AddDate(0, 0, daysUntilMonday)
	if n < 1 {
		n = 1
	}
	return firstMonday.AddDate(0, 0, 7*(n-1))
}
