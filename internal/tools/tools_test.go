package tools_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/tools"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// stubTool is a configurable in-memory tool.
type stubTool struct {
	name        string
	domain      models.Domain
	destructive bool
	execute     func(ctx context.Context, params models.Params) models.ToolResult
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub tool " + s.name }
func (s *stubTool) ParamDomain() models.Domain { return s.domain }
func (s *stubTool) Destructive() bool          { return s.destructive }
func (s *stubTool) Execute(ctx context.Context, params models.Params) models.ToolResult {
	if s.execute != nil {
		return s.execute(ctx, params)
	}
	return models.Succeed(map[string]any{"tool": s.name})
}

func TestRegister_DuplicateNameRejected(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(&stubTool{name: "alpha"})
	if !errors.Is(err, tools.ErrDuplicateName) {
		t.Errorf("second Register error = %v, want ErrDuplicateName", err)
	}

	// The original registration is untouched.
	if _, ok := r.Get("alpha"); !ok {
		t.Error("original tool gone after rejected duplicate")
	}
}

func TestDeregisterThenRegister(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&stubTool{name: "alpha"})

	if !r.Deregister("alpha") {
		t.Error("Deregister(alpha) = false, want true")
	}
	if r.Deregister("alpha") {
		t.Error("second Deregister(alpha) = true, want false")
	}
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Errorf("Register after Deregister: %v", err)
	}
}

func TestNames_Sorted(t *testing.T) {
	r := tools.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(&stubTool{name: name})
	}

	got := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestByDomain(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&stubTool{name: "query_gmail", domain: models.DomainGmail})
	r.Register(&stubTool{name: "query_events", domain: models.DomainCalendar})
	r.Register(&stubTool{name: "read_email"})

	got := r.ByDomain(models.DomainGmail)
	if !reflect.DeepEqual(got, []string{"query_gmail"}) {
		t.Errorf("ByDomain(gmail) = %v, want [query_gmail]", got)
	}
}

func TestExecute_UnknownToolReturnsEnvelope(t *testing.T) {
	r := tools.NewRegistry()

	res := r.Execute(context.Background(), "nope", models.Params{})
	if res.OK {
		t.Error("Execute(unknown) OK = true, want false")
	}
	if res.Error == "" {
		t.Error("Execute(unknown) Error empty, want message")
	}
}

func TestExecute_PanicBecomesFailureEnvelope(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&stubTool{
		name: "boom",
		execute: func(context.Context, models.Params) models.ToolResult {
			panic("unexpected nil")
		},
	})

	res := r.Execute(context.Background(), "boom", models.Params{})
	if res.OK {
		t.Error("panicking tool OK = true, want false")
	}
	if res.Error == "" {
		t.Error("panicking tool Error empty, want message")
	}
}

func TestExecute_PassesParamsThrough(t *testing.T) {
	r := tools.NewRegistry()
	var got models.Params
	r.Register(&stubTool{
		name: "echo",
		execute: func(_ context.Context, params models.Params) models.ToolResult {
			got = params
			return models.Succeed(nil)
		},
	})

	want := models.Params{"query": "is:unread", "count_all": true}
	res := r.Execute(context.Background(), "echo", want)
	if !res.OK {
		t.Fatalf("Execute: %s", res.Error)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("params passed = %v, want %v", got, want)
	}
}
