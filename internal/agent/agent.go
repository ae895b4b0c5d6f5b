// Package agent implements the dispatch orchestrator: the loop that turns
// one free-form goal into tool invocations and a recorded task.
//
// Flow per ExecuteTask call:
//
//	select tool(s) → extract parameters → invoke (bounded by max_steps) →
//	aggregate results → record history + suggest follow-up tools
//
// Selection and extraction each try the language-model path first and fall
// back to the deterministic rules only on the recoverable failure variants
// (backend unavailable, malformed reply). Tool-level failures surface
// verbatim in the task record; parser-path failures never do.
//
// Multi-step merge policy: the last successful step's result is the task
// result. All steps, successful or not, stay in the record.
//
// Execution is synchronous: one goal runs start-to-finish before the next.
// Concurrent callers must serialize access or use one Agent per goroutine.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/inboxpilot/inboxpilot/internal/metrics"
	"github.com/inboxpilot/inboxpilot/internal/parser"
	"github.com/inboxpilot/inboxpilot/internal/policy"
	"github.com/inboxpilot/inboxpilot/internal/schema"
	"github.com/inboxpilot/inboxpilot/internal/store"
	"github.com/inboxpilot/inboxpilot/internal/tools"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// DefaultMaxSteps is the hard cap on tool executions per task.
const DefaultMaxSteps = 10

var tracer = otel.Tracer("inboxpilot-agent")

// Agent orchestrates goal interpretation and tool dispatch. It owns its
// task history; there is no process-global state.
type Agent struct {
	registry *tools.Registry
	parser   *parser.LLMParser
	rules    *parser.RuleExtractor
	schemas  *schema.Registry
	history  store.Store
}

// New creates an orchestrator over the given registry, extraction
// strategies, and history store.
func New(registry *tools.Registry, llmParser *parser.LLMParser, rules *parser.RuleExtractor, schemas *schema.Registry, history store.Store) *Agent {
	return &Agent{
		registry: registry,
		parser:   llmParser,
		rules:    rules,
		schemas:  schemas,
		history:  history,
	}
}

// ExecuteTask runs one goal to completion. It always returns a well-formed
// TaskResult; failures are reported in the envelope, never raised.
func (a *Agent) ExecuteTask(ctx context.Context, goal string, maxSteps int) models.TaskResult {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	start := time.Now()
	defer func() {
		metrics.TaskDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := tracer.Start(ctx, "agent.execute_task")
	defer span.End()
	span.SetAttributes(attribute.Int("task.max_steps", maxSteps))

	record := &models.TaskRecord{
		TraceID:        uuid.New().String(),
		Goal:           goal,
		StartedAt:      start,
		SuggestedTools: []string{},
	}

	log.Info().Str("goal", goal).Str("trace_id", record.TraceID).Msg("Starting task")

	if strings.TrimSpace(goal) == "" {
		record.Error = "empty goal"
		return a.finish(ctx, record, 0)
	}

	toolNames := a.selectTools(ctx, goal)
	if len(toolNames) == 0 {
		record.Error = "no matching tool"
		record.SuggestedTools = staticSuggestions(goal)
		return a.finish(ctx, record, 0)
	}
	log.Debug().Strs("tools", toolNames).Msg("Tools identified for task")

	stepsExecuted := 0
	used := map[string]bool{}

	for _, name := range toolNames {
		if stepsExecuted >= maxSteps {
			record.Error = fmt.Sprintf("step limit exceeded (max_steps=%d)", maxSteps)
			break
		}

		params, viaFallback := a.extractParams(ctx, goal, name)

		if viaFallback {
			if err := a.checkFallbackGate(name, params); err != nil {
				record.Error = err.Error()
				break
			}
		}

		res := a.invoke(ctx, name, params, record)
		stepsExecuted++
		used[name] = true

		// A search step may feed one bounded follow-up read when the goal
		// asks for full content.
		if name == "query_gmail" && res.OK && wantsFullRead(goal) {
			id := firstMessageID(res)
			if id == "" {
				continue
			}
			if stepsExecuted >= maxSteps {
				record.Error = fmt.Sprintf("step limit exceeded (max_steps=%d)", maxSteps)
				break
			}
			a.invoke(ctx, "read_email", models.Params{"message_id": id}, record)
			stepsExecuted++
			used["read_email"] = true
		}
	}

	// A task is never silently successful when its terminal step failed.
	if record.Error == "" && len(record.Steps) > 0 {
		if last := record.Steps[len(record.Steps)-1].Result; !last.OK {
			record.Error = last.Error
		}
	}

	record.Result = lastSuccessful(record.Steps)
	record.SuggestedTools = a.suggestTools(goal, used)

	return a.finish(ctx, record, stepsExecuted)
}

// invoke runs one tool and appends the step to the record.
func (a *Agent) invoke(ctx context.Context, name string, params models.Params, record *models.TaskRecord) models.ToolResult {
	log.Debug().Str("tool", name).Interface("params", params).Msg("Executing tool")
	res := a.registry.Execute(ctx, name, params)
	metrics.StepsTotal.WithLabelValues(name).Inc()
	record.Steps = append(record.Steps, models.Step{Tool: name, Params: params, Result: res})

	if res.OK {
		log.Debug().Str("tool", name).Msg("Tool executed successfully")
	} else {
		log.Warn().Str("tool", name).Str("error", res.Error).Msg("Tool failed")
	}
	return res
}

// finish records the task and builds the caller envelope.
func (a *Agent) finish(ctx context.Context, record *models.TaskRecord, stepsExecuted int) models.TaskResult {
	id, err := a.history.AppendTask(ctx, record)
	if err != nil {
		log.Error().Err(err).Msg("Cannot append task record")
	}

	ok := record.Error == ""
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	metrics.TasksTotal.WithLabelValues(outcome).Inc()

	var result map[string]any
	if record.Result != nil {
		result = record.Result.Result
	}

	return models.TaskResult{
		OK:             ok,
		Goal:           record.Goal,
		Result:         result,
		StepsExecuted:  stepsExecuted,
		SuggestedTools: record.SuggestedTools,
		TaskID:         id,
	}
}

// ── Selection ───────────────────────────────────────────────

// selectTools picks the target tool(s): model path first, deterministic
// keyword table on recoverable failure. Only registered names survive.
func (a *Agent) selectTools(ctx context.Context, goal string) []string {
	name, err := a.parser.SelectTool(ctx, goal, a.registry.Names())
	if err == nil {
		log.Debug().Str("tool", name).Msg("Model selected tool")
		return []string{name}
	}
	if !parser.Recoverable(err) {
		log.Warn().Err(err).Msg("Tool selection failed")
		return nil
	}

	metrics.ParserFallbacks.WithLabelValues("select").Inc()
	log.Debug().Err(err).Msg("Model tool selection unavailable, using keyword rules")

	var out []string
	for _, n := range a.rules.SelectTools(goal) {
		if _, ok := a.registry.Get(n); ok {
			out = append(out, n)
		}
	}
	return out
}

// ── Extraction ──────────────────────────────────────────────

// extractParams produces the tool's parameters via the two-stage strategy.
// The second return reports whether the deterministic path produced them.
func (a *Agent) extractParams(ctx context.Context, goal, toolName string) (models.Params, bool) {
	tool, ok := a.registry.Get(toolName)
	if !ok {
		return models.Params{}, true
	}

	domain := tool.ParamDomain()
	if domain == "" {
		// No parameter schema. Event creation is the one schemaless tool
		// with a deterministic extraction: explicit ISO dates in the goal.
		if toolName == "create_event" {
			return a.rules.EventTimes(goal), true
		}
		return models.Params{}, true
	}

	params, err := a.parser.Parse(ctx, goal, domain)
	if err == nil {
		log.Debug().Str("domain", string(domain)).Interface("params", params).Msg("Model extracted parameters")
		return params, false
	}
	if parser.Recoverable(err) {
		metrics.ParserFallbacks.WithLabelValues("extract").Inc()
		log.Debug().Err(err).Str("domain", string(domain)).Msg("Model extraction unavailable, using rules")
	} else {
		log.Warn().Err(err).Str("domain", string(domain)).Msg("Model extraction failed, using rules")
	}
	return a.rules.Extract(goal, domain), true
}

// checkFallbackGate blocks destructive tools whose parameters came from
// the deterministic path without explicit recognized values.
func (a *Agent) checkFallbackGate(toolName string, params models.Params) error {
	tool, ok := a.registry.Get(toolName)
	if !ok {
		return nil
	}
	defaults := models.Params{}
	if domain := tool.ParamDomain(); domain != "" {
		if sch, err := a.schemas.Get(domain); err == nil {
			defaults = sch.Defaults()
		}
	}
	return policy.CheckFallbackDispatch(tool, params, defaults)
}

// ── Aggregation helpers ─────────────────────────────────────

// lastSuccessful returns the last OK step result; nil when none succeeded.
func lastSuccessful(steps []models.Step) *models.ToolResult {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Result.OK {
			res := steps[i].Result
			return &res
		}
	}
	return nil
}

// wantsFullRead reports whether the goal asks for message content rather
// than a listing or count. Matches whole words only; "unread" is a listing
// filter, not a read intent.
func wantsFullRead(goal string) bool {
	lower := strings.ToLower(goal)
	if strings.Contains(lower, "full content") {
		return true
	}
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "read" || word == "open" {
			return true
		}
	}
	return false
}

// firstMessageID pulls the first message id out of a query_gmail result.
func firstMessageID(res models.ToolResult) string {
	if res.Result == nil {
		return ""
	}
	switch emails := res.Result["emails"].(type) {
	case []map[string]any:
		if len(emails) > 0 {
			if id, ok := emails[0]["id"].(string); ok {
				return id
			}
		}
	case []any:
		if len(emails) > 0 {
			if m, ok := emails[0].(map[string]any); ok {
				if id, ok := m["id"].(string); ok {
					return id
				}
			}
		}
	}
	return ""
}

// ── Caller surface beyond ExecuteTask ───────────────────────

// ListAvailableTools returns name → description for every registered tool.
func (a *Agent) ListAvailableTools() map[string]string {
	return a.registry.List()
}

// AddCustomTool registers an additional tool at runtime. Fails with
// tools.ErrDuplicateName if the name is taken; it never overwrites.
func (a *Agent) AddCustomTool(tool tools.Tool) error {
	if err := a.registry.Register(tool); err != nil {
		return err
	}
	log.Info().Str("tool", tool.Name()).Msg("Custom tool registered")
	return nil
}

// TaskHistory returns all recorded tasks in execution order.
func (a *Agent) TaskHistory(ctx context.Context) ([]models.TaskRecord, error) {
	return a.history.ListTasks(ctx)
}

// GetTask returns one recorded task by id.
func (a *Agent) GetTask(ctx context.Context, id int) (*models.TaskRecord, error) {
	return a.history.GetTask(ctx, id)
}

// ResetHistory clears the task history; task ids restart from 0.
func (a *Agent) ResetHistory(ctx context.Context) error {
	log.Info().Msg("Task history cleared")
	return a.history.ResetTasks(ctx)
}

// ExportHistory writes the task history as JSON to the given path.
func (a *Agent) ExportHistory(ctx context.Context, path string) error {
	return a.history.ExportTasks(ctx, path)
}

// Status summarizes the agent's history and registered tools.
func (a *Agent) Status(ctx context.Context) (*models.AgentStatus, error) {
	records, err := a.history.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	successful := 0
	for _, r := range records {
		if r.Error == "" {
			successful++
		}
	}
	names := a.registry.Names()
	return &models.AgentStatus{
		Status:          "active",
		TotalTasks:      len(records),
		SuccessfulTasks: successful,
		FailedTasks:     len(records) - successful,
		AvailableTools:  len(names),
		Tools:           names,
	}, nil
}
