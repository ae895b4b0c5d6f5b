package agent

import (
	"sort"
	"strings"
)

// Tool suggestion works on two levels. After a normal task, registered
// tools the task did not use are ranked by how much of their name and
// description overlaps the goal. When no tool matched at all, a static
// keyword table points at capability families worth adding.

// staticHints maps goal keywords to capability suggestions for goals no
// registered tool covers.
var staticHints = []struct {
	keywords   []string
	suggestion string
}{
	{[]string{"filter", "rule", "automatic"},
		"Gmail Filters Tool - Create and manage email filters"},
	{[]string{"template", "draft", "canned"},
		"Email Templates Tool - Manage reusable email templates"},
	{[]string{"remind", "reminder", "follow up", "followup"},
		"Reminders Tool - Set follow-up reminders on messages"},
	{[]string{"schedule", "availability", "free slot", "meeting time"},
		"Scheduling Tool - Find open meeting slots across calendars"},
	{[]string{"share", "permission", "access"},
		"Calendar Sharing Tool - Manage calendar access and sharing"},
	{[]string{"bulk", "batch", "all at once"},
		"Bulk Operations Tool - Apply one action to many messages"},
}

// staticSuggestions returns capability hints for a goal that matched no
// registered tool. Empty when no hint keyword matches either.
func staticSuggestions(goal string) []string {
	lower := strings.ToLower(goal)
	out := []string{}
	for _, hint := range staticHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, hint.suggestion)
				break
			}
		}
	}
	return out
}

// suggestTools ranks registered tools the task did not use by keyword
// overlap between the goal and the tool's name plus description. Tools
// with zero overlap are omitted.
func (a *Agent) suggestTools(goal string, used map[string]bool) []string {
	goalTokens := tokenize(goal)

	type scored struct {
		name  string
		score int
	}
	var ranked []scored
	for name, desc := range a.registry.List() {
		if used[name] {
			continue
		}
		score := overlap(goalTokens, tokenize(name+" "+desc))
		if score > 0 {
			ranked = append(ranked, scored{name, score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	out := []string{}
	for _, s := range ranked {
		out = append(out, s.name)
	}
	return out
}

// stopwords excluded from overlap scoring; they match every goal.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true,
	"in": true, "my": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true,
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(tok) > 1 && !stopwords[tok] {
			out[tok] = true
		}
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if b[tok] {
			n++
		}
	}
	return n
}
