package schema_test

import (
	"errors"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/schema"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

func TestDefaults_Gmail(t *testing.T) {
	r := schema.NewRegistry()
	s, err := r.Get(models.DomainGmail)
	if err != nil {
		t.Fatalf("Get(gmail): %v", err)
	}

	d := s.Defaults()
	if got := d.String("query", ""); got != "" {
		t.Errorf("default query = %q, want empty", got)
	}
	if got := d.Bool("count_all", false); got != false {
		t.Errorf("default count_all = %v, want false", got)
	}
	if got := d.Int("max_results", 0); got != 10 {
		t.Errorf("default max_results = %d, want 10", got)
	}
}

func TestDecode_AppliesDefaultsForAbsentFields(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	params, err := s.Decode([]byte(`{"query": "is:unread"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := params.String("query", ""); got != "is:unread" {
		t.Errorf("query = %q, want %q", got, "is:unread")
	}
	if got := params.Bool("count_all", false); got != false {
		t.Errorf("count_all = %v, want default false", got)
	}
	if got := params.Int("max_results", 0); got != 10 {
		t.Errorf("max_results = %d, want default 10", got)
	}
}

func TestDecode_RejectsUnknownKey(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	_, err := s.Decode([]byte(`{"query": "", "folder": "inbox"}`))
	if err == nil {
		t.Fatal("Decode with unknown key: want error, got nil")
	}
}

func TestDecode_RejectsMissingRequiredKey(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainTool)

	_, err := s.Decode([]byte(`{}`))
	if err == nil {
		t.Fatal("Decode without required key: want error, got nil")
	}
}

func TestDecode_RejectsWrongType(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	cases := []struct {
		name string
		data string
	}{
		{"bool for string", `{"query": true}`},
		{"string for bool", `{"count_all": "yes"}`},
		{"fraction for int", `{"max_results": 2.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Decode([]byte(tc.data)); err == nil {
				t.Errorf("Decode(%s): want error, got nil", tc.data)
			}
		})
	}
}

func TestDecode_NullOptionalFieldGetsDefault(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	params, err := s.Decode([]byte(`{"query": null}`))
	if err != nil {
		t.Fatalf("Decode with null optional: %v", err)
	}
	if got := params.String("query", ""); got != "" {
		t.Errorf("query = %q, want default empty", got)
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	if _, err := s.Decode([]byte(`"just a string"`)); err == nil {
		t.Fatal("Decode non-object: want error, got nil")
	}
}

func TestValidate_FallbackOutputConformsToSchema(t *testing.T) {
	// Whatever one path produces must validate against the shared schema.
	r := schema.NewRegistry()
	s, _ := r.Get(models.DomainGmail)

	params := models.Params{"query": "is:unread", "count_all": true, "count_only": false, "max_results": 10}
	if err := s.Validate(params); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := models.Params{"query": "is:unread", "made_up": 1}
	if err := s.Validate(bad); err == nil {
		t.Error("Validate with unknown key: want error, got nil")
	}
}

func TestRegistry_UnknownDomain(t *testing.T) {
	r := schema.NewRegistry()
	_, err := r.Get(models.Domain("spreadsheet"))
	if !errors.Is(err, schema.ErrUnknownDomain) {
		t.Errorf("Get(unknown) error = %v, want ErrUnknownDomain", err)
	}
}

func TestRegistry_RegisterNewDomain(t *testing.T) {
	r := schema.NewRegistry()
	r.Register(&schema.Schema{
		Domain: models.Domain("notes"),
		Fields: []schema.Field{
			{Name: "text", Kind: schema.KindString, Required: true},
		},
	})

	s, err := r.Get(models.Domain("notes"))
	if err != nil {
		t.Fatalf("Get(notes): %v", err)
	}
	params, err := s.Decode([]byte(`{"text": "remember the milk"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := params.String("text", ""); got != "remember the milk" {
		t.Errorf("text = %q", got)
	}
}
