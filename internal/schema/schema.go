// Package schema declares, per domain, the expected output shape of a
// parsing attempt: which parameters exist, which are required, and what the
// documented defaults are. Both extraction paths (language-model and
// rule-based) share these schemas, so anything the fallback produces is a
// valid input for the same tools the model path feeds.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// ErrUnknownDomain is returned when a parsing attempt names a domain that
// was never registered.
var ErrUnknownDomain = errors.New("schema: unknown domain")

// Kind is the value type of a schema field.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
)

// Field describes one parameter in a schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is applied for optional fields that are absent (or JSON null)
	// after a successful decode. Required fields have no default.
	Default any
}

// Schema is the declared output shape for one domain.
type Schema struct {
	Domain models.Domain
	Fields []Field
}

// field looks up a field definition by name.
func (s *Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns the documented default parameter set for the schema:
// every field with a default, at its default value.
func (s *Schema) Defaults() models.Params {
	out := models.Params{}
	for _, f := range s.Fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Validate checks a parameter set against the schema: every required key
// present, no unknown keys, every value of the declared kind.
func (s *Schema) Validate(params models.Params) error {
	for _, f := range s.Fields {
		v, ok := params[f.Name]
		if !ok {
			if f.Required {
				return fmt.Errorf("schema %s: missing required key %q", s.Domain, f.Name)
			}
			continue
		}
		if err := checkKind(f, v); err != nil {
			return fmt.Errorf("schema %s: %w", s.Domain, err)
		}
	}
	for k := range params {
		if _, ok := s.field(k); !ok {
			return fmt.Errorf("schema %s: unknown key %q", s.Domain, k)
		}
	}
	return nil
}

// Decode parses a JSON object strictly against the schema. Unknown keys,
// missing required keys, and wrong value types are all rejected; a reply
// that does not conform is a parse failure, never a guess. JSON null on an
// optional field is treated as absent, and defaults are applied before
// returning.
func (s *Schema) Decode(data []byte) (models.Params, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("schema %s: not a JSON object: %w", s.Domain, err)
	}
	params := models.Params{}
	for k, v := range raw {
		f, ok := s.field(k)
		if !ok {
			return nil, fmt.Errorf("schema %s: unknown key %q", s.Domain, k)
		}
		if v == nil {
			if f.Required {
				return nil, fmt.Errorf("schema %s: required key %q is null", s.Domain, k)
			}
			continue
		}
		if err := checkKind(f, v); err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.Domain, err)
		}
		if f.Kind == KindInt {
			v = int(v.(float64))
		}
		params[k] = v
	}
	for _, f := range s.Fields {
		if _, ok := params[f.Name]; ok {
			continue
		}
		if f.Required {
			return nil, fmt.Errorf("schema %s: missing required key %q", s.Domain, f.Name)
		}
		if f.Default != nil {
			params[f.Name] = f.Default
		}
	}
	return params, nil
}

func checkKind(f Field, v any) error {
	switch f.Kind {
	case KindString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("key %q: want string, got %T", f.Name, v)
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("key %q: want bool, got %T", f.Name, v)
		}
	case KindInt:
		n, ok := v.(float64)
		if !ok {
			if _, isInt := v.(int); isInt {
				return nil
			}
			return fmt.Errorf("key %q: want integer, got %T", f.Name, v)
		}
		if n != float64(int(n)) {
			return fmt.Errorf("key %q: want integer, got %v", f.Name, n)
		}
	default:
		return fmt.Errorf("key %q: unsupported kind %q", f.Name, f.Kind)
	}
	return nil
}

// ── Registry ─────────────────────────────────────────────────

// Registry is a thread-safe lookup of schemas by domain, seeded with the
// built-in gmail, calendar, and tool schemas.
type Registry struct {
	mu      sync.RWMutex
	schemas map[models.Domain]*Schema
}

// NewRegistry creates a registry with the built-in domain schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[models.Domain]*Schema)}
	for _, s := range builtins() {
		r.schemas[s.Domain] = s
	}
	return r
}

// Get returns the schema for a domain.
func (r *Registry) Get(domain models.Domain) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	return s, nil
}

// Register adds a schema for a new domain. Registering an already-known
// domain replaces it; schemas are configuration, not user data.
func (r *Registry) Register(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Domain] = s
}

// Domains lists the registered domain tags.
func (r *Registry) Domains() []models.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Domain, 0, len(r.schemas))
	for d := range r.schemas {
		out = append(out, d)
	}
	return out
}

// builtins returns the schemas both extraction paths agree on.
//
// The gmail defaults ({query: "", count_all: false}) are the documented
// safe fallback: an empty query lists recent mail and never mutates
// anything.
func builtins() []*Schema {
	return []*Schema{
		{
			Domain: models.DomainGmail,
			Fields: []Field{
				{Name: "query", Kind: KindString, Required: false, Default: ""},
				{Name: "count_all", Kind: KindBool, Required: false, Default: false},
				{Name: "count_only", Kind: KindBool, Required: false, Default: false},
				{Name: "max_results", Kind: KindInt, Required: false, Default: 10},
			},
		},
		{
			Domain: models.DomainCalendar,
			Fields: []Field{
				{Name: "time_min", Kind: KindString, Required: false, Default: ""},
				{Name: "time_max", Kind: KindString, Required: false, Default: ""},
				{Name: "search_text", Kind: KindString, Required: false},
				{Name: "calendar_id", Kind: KindString, Required: false, Default: "primary"},
				{Name: "max_results", Kind: KindInt, Required: false, Default: 10},
			},
		},
		{
			Domain: models.DomainTool,
			Fields: []Field{
				{Name: "tool", Kind: KindString, Required: true},
			},
		},
	}
}
