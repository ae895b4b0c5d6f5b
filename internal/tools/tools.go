// Package tools defines the capability interface every tool implements and
// the registry the orchestrator dispatches through.
//
// Tools are registered once at startup or dynamically via Register; they
// are never mutated after registration. The registry holds interface
// references only; dispatch is always by registered name, never by
// concrete type.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/inboxpilot/inboxpilot/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrDuplicateName is returned when registering a tool under a name that
// is already taken. Registration never silently overwrites; replacing a
// tool requires an explicit Deregister first.
var ErrDuplicateName = errors.New("tools: duplicate tool name")

// Tool is one registered capability.
type Tool interface {
	// Name is the stable identifier used for dispatch.
	Name() string
	// Description is shown to callers and to the tool-selection prompt.
	Description() string
	// ParamDomain names the parameter schema used to extract this tool's
	// arguments from a goal. Empty means the tool takes no goal-derived
	// parameters.
	ParamDomain() models.Domain
	// Destructive marks tools with remote side effects that cannot be
	// undone. Destructive tools are excluded from deterministic
	// auto-dispatch unless explicit parameters were recognized.
	Destructive() bool
	// Execute runs the tool. Implementations report failures through the
	// ToolResult envelope, never by panicking.
	Execute(ctx context.Context, params models.Params) models.ToolResult
}

// Registry maps tool names to capability objects.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Fails with ErrDuplicateName if the name is taken.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, t.Name())
	}
	r.tools[t.Name()] = t
	log.Debug().Str("tool", t.Name()).Msg("Tool registered")
	return nil
}

// Deregister removes a tool by name, returning whether it was present.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[name]
	delete(r.tools, name)
	return ok
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns name → description for every registered tool.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Description()
	}
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByDomain returns the names of tools whose parameter domain matches,
// sorted.
func (r *Registry) ByDomain(domain models.Domain) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, t := range r.tools {
		if t.ParamDomain() == domain {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Execute dispatches to a tool by name and converts every failure mode
// (unknown tool, tool error, even a panicking implementation) into the
// ToolResult envelope. Nothing escapes this boundary as a fault.
func (r *Registry) Execute(ctx context.Context, name string, params models.Params) (result models.ToolResult) {
	tool, ok := r.Get(name)
	if !ok {
		return models.Fail(fmt.Sprintf("tool %q not found", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("tool", name).Interface("panic", rec).Msg("Tool panicked")
			result = models.Fail(fmt.Sprintf("failed to execute %s: %v", name, rec))
		}
	}()

	return tool.Execute(ctx, params)
}
