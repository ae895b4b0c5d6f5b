package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/llm"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

func TestComplete_NoProviders(t *testing.T) {
	c := llm.NewClient(nil)

	_, err := c.Complete(context.Background(), "hello", 0)
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestComplete_Anthropic(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `{"query": "is:unread"}`},
			},
		})
	}))
	defer srv.Close()

	c := llm.NewClient([]models.ModelProvider{{
		Name:     "anthropic",
		Kind:     models.ProviderAnthropic,
		Endpoint: srv.URL,
		Model:    "test-model",
		APIKey:   "test-key",
	}})

	text, err := c.Complete(context.Background(), "extract params", 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"query": "is:unread"}` {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotReq["model"] != "test-model" {
		t.Errorf("request model = %v", gotReq["model"])
	}
	if gotReq["max_tokens"] != float64(100) {
		t.Errorf("request max_tokens = %v, want 100", gotReq["max_tokens"])
	}
}

func TestComplete_FallsBackToNextProvider(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "fallback answer"})
	}))
	defer good.Close()

	c := llm.NewClient([]models.ModelProvider{
		// Default provider fails; the client must try the next one.
		{Name: "primary", Kind: models.ProviderAnthropic, Endpoint: bad.URL, APIKey: "k", IsDefault: true},
		{Name: "secondary", Kind: models.ProviderOllama, Endpoint: good.URL, Model: "local"},
	})

	text, err := c.Complete(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "fallback answer" {
		t.Errorf("text = %q, want fallback answer", text)
	}
}

func TestComplete_AllProvidersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := llm.NewClient([]models.ModelProvider{
		{Name: "only", Kind: models.ProviderOllama, Endpoint: srv.URL, Model: "m"},
	})

	_, err := c.Complete(context.Background(), "anything", 0)
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	c := llm.NewClient([]models.ModelProvider{
		{Name: "anthropic", Kind: models.ProviderAnthropic, Model: "m"},
	})

	_, err := c.Complete(context.Background(), "anything", 0)
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestLatencyTracking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer srv.Close()

	c := llm.NewClient([]models.ModelProvider{
		{Name: "local", Kind: models.ProviderOllama, Endpoint: srv.URL, Model: "m"},
	})

	if got := c.Latency("local"); got != 0 {
		t.Errorf("Latency before any call = %d, want 0", got)
	}
	if _, err := c.Complete(context.Background(), "hi", 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := c.Latency("local"); got < 0 {
		t.Errorf("Latency after call = %d, want >= 0", got)
	}
}
