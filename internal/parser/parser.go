// Package parser turns free-form goals into validated tool parameters.
//
// Two independent strategies share the schema contract in internal/schema:
//
//   - LLMParser asks a language-understanding backend to produce a strict
//     JSON reply and rejects anything that does not decode against the
//     domain schema. Its failures are tagged recoverable so the
//     orchestrator can move to the second stage.
//   - RuleExtractor derives parameters directly from the goal text with
//     patterns and keyword tables. It never fails for a non-empty goal; on
//     no match it returns the schema's documented defaults.
//
// The orchestrator calls stage one, inspects the error tag, and calls
// stage two only on the recoverable variants.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/schema"
	"github.com/inboxpilot/inboxpilot/pkg/models"
	"github.com/rs/zerolog/log"
)

// Recoverable parse failures. Both trigger the fallback path inside the
// orchestrator and never propagate as a whole-task failure by themselves.
var (
	// ErrBackendUnavailable tags failures to reach the language backend:
	// no provider configured, no credential, transport error.
	ErrBackendUnavailable = errors.New("parser: backend unavailable")

	// ErrMalformedReply tags backend replies that cannot be decoded
	// strictly into the domain schema.
	ErrMalformedReply = errors.New("parser: malformed backend reply")
)

// ErrEmptyGoal is returned for blank input. Not recoverable, since there is
// nothing for either strategy to work with.
var ErrEmptyGoal = errors.New("parser: empty goal")

// Recoverable reports whether a parse failure should trigger the
// deterministic fallback rather than fail the task.
func Recoverable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrMalformedReply)
}

// Backend is the language-understanding collaborator contract.
type Backend interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Clock supplies the current date for relative-date resolution. Injected so
// parsing stays deterministic in tests; the parser never reads the ambient
// wall clock.
type Clock func() time.Time

// LLMParser is the primary, language-model-backed extraction strategy.
type LLMParser struct {
	backend Backend
	schemas *schema.Registry
	now     Clock
}

// NewLLMParser creates the model-backed parser.
func NewLLMParser(backend Backend, schemas *schema.Registry, now Clock) *LLMParser {
	if now == nil {
		now = time.Now
	}
	return &LLMParser{backend: backend, schemas: schemas, now: now}
}

// Parse extracts parameters for a registered domain from the goal.
// One outbound backend call per invocation; no caching.
func (p *LLMParser) Parse(ctx context.Context, goal string, domain models.Domain) (models.Params, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}
	sch, err := p.schemas.Get(domain)
	if err != nil {
		return nil, err
	}

	var prompt string
	switch domain {
	case models.DomainCalendar:
		prompt = calendarPrompt(goal, p.now())
	case models.DomainGmail:
		prompt = gmailPrompt(goal)
	default:
		prompt = genericPrompt(goal, sch)
	}

	return p.complete(ctx, prompt, sch)
}

// ParseCustom extracts parameters using a caller-supplied instruction and
// output schema instead of a registered domain.
func (p *LLMParser) ParseCustom(ctx context.Context, goal, instruction string, out *schema.Schema) (models.Params, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}
	prompt := customPrompt(goal, instruction, out)
	return p.complete(ctx, prompt, out)
}

// SelectTool asks the backend which registered tool satisfies the goal.
// The reply must be exactly one of the valid names; anything else is a
// malformed reply.
func (p *LLMParser) SelectTool(ctx context.Context, goal string, valid []string) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", ErrEmptyGoal
	}
	reply, err := p.backend.Complete(ctx, toolPrompt(goal, valid), 50)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	name := strings.ToLower(strings.TrimSpace(stripFences(reply)))
	for _, v := range valid {
		if name == v {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a registered tool", ErrMalformedReply, name)
}

func (p *LLMParser) complete(ctx context.Context, prompt string, sch *schema.Schema) (models.Params, error) {
	reply, err := p.backend.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	params, err := sch.Decode([]byte(stripFences(reply)))
	if err != nil {
		log.Debug().Err(err).Str("domain", string(sch.Domain)).Msg("Backend reply failed schema decode")
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return params, nil
}

// stripFences removes a surrounding markdown code block, which models emit
// despite the JSON-only instruction.
func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return strings.TrimSpace(text)
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}
