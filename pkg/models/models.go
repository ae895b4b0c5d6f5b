// Package models holds the shared domain types for the inboxpilot agent:
// goals, parsed parameters, tool results, task records, and the wire shapes
// exchanged with language-model providers.
package models

import (
	"time"
)

// ── Domains ──────────────────────────────────────────────────

// Domain identifies which parameter schema and extraction prompt apply to a
// parsing attempt. Chosen by the orchestrator based on the targeted tool.
type Domain string

const (
	DomainGmail    Domain = "gmail"
	DomainCalendar Domain = "calendar"
	DomainTool     Domain = "tool"
)

// ── Parameters ───────────────────────────────────────────────

// Params is a validated set of keyword arguments for one tool invocation.
// Values are the JSON scalar types: string, bool, float64.
type Params map[string]any

// String returns the named parameter as a string, or fallback when absent
// or not a string.
func (p Params) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// Bool returns the named parameter as a bool, or fallback when absent.
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// Int returns the named parameter as an int. JSON decoding produces
// float64 for all numbers, so both forms are accepted.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// Clone returns a shallow copy of the parameter set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ── Tool Results ─────────────────────────────────────────────

// ToolResult is the uniform envelope every tool returns. OK=false implies
// Result is nil and Error is populated; OK=true implies Error is empty.
type ToolResult struct {
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Fail builds a failed ToolResult with a formatted error message.
func Fail(msg string) ToolResult {
	return ToolResult{OK: false, Error: msg}
}

// Succeed builds a successful ToolResult around a result payload.
func Succeed(result map[string]any) ToolResult {
	return ToolResult{OK: true, Result: result}
}

// ── Task Records ─────────────────────────────────────────────

// Step is one tool invocation inside a task.
type Step struct {
	Tool   string     `json:"tool"`
	Params Params     `json:"params"`
	Result ToolResult `json:"result"`
}

// TaskRecord is the immutable record of one ExecuteTask call. Records are
// appended to the task history and never mutated after the call returns.
type TaskRecord struct {
	ID             int        `json:"task_id"`
	TraceID        string     `json:"trace_id"`
	Goal           string     `json:"goal"`
	StartedAt      time.Time  `json:"started_at"`
	Steps          []Step     `json:"steps"`
	Result         *ToolResult `json:"result"`
	SuggestedTools []string   `json:"suggested_tools"`
	Error          string     `json:"error,omitempty"`
}

// TaskResult is the envelope ExecuteTask returns to the caller. Every call
// returns a well-formed TaskResult, including failures.
type TaskResult struct {
	OK             bool           `json:"ok"`
	Goal           string         `json:"goal"`
	Result         map[string]any `json:"result"`
	StepsExecuted  int            `json:"steps_executed"`
	SuggestedTools []string       `json:"suggested_tools"`
	TaskID         int            `json:"task_id"`
}

// AgentStatus summarizes the agent's history and registered capabilities.
type AgentStatus struct {
	Status          string   `json:"status"`
	TotalTasks      int      `json:"total_tasks_executed"`
	SuccessfulTasks int      `json:"successful_tasks"`
	FailedTasks     int      `json:"failed_tasks"`
	AvailableTools  int      `json:"available_tools"`
	Tools           []string `json:"tools"`
}

// ── Paged Listing ────────────────────────────────────────────

// Page is one page of a paged-listing capability. EstimatedTotal carries
// the upstream estimate, which is documented as inaccurate; exact counting
// never reads it.
type Page struct {
	IDs            []string `json:"ids"`
	NextCursor     string   `json:"next_cursor,omitempty"`
	EstimatedTotal int      `json:"estimated_total,omitempty"`
}

// ── Model Providers ──────────────────────────────────────────

// ProviderKind selects the request shape used when calling a provider.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderOllama    ProviderKind = "ollama"
)

// ModelProvider is one configured language-understanding backend.
type ModelProvider struct {
	Name      string       `json:"name" yaml:"name"`
	Kind      ProviderKind `json:"kind" yaml:"kind"`
	Endpoint  string       `json:"endpoint,omitempty" yaml:"endpoint"`
	APIKey    string       `json:"-" yaml:"api_key"`
	Model     string       `json:"model" yaml:"model"`
	IsDefault bool         `json:"is_default,omitempty" yaml:"default"`
}

// ChatMessage is a single message in a provider chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
