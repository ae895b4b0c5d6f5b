package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INBOXPILOT_PORT", "INBOXPILOT_DATA_DIR", "INBOXPILOT_PROVIDERS_FILE",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OLLAMA_BASE_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.DataDir)
	}
	if cfg.MaxSteps != 10 {
		t.Errorf("MaxSteps = %d, want 10", cfg.MaxSteps)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("Providers = %v, want none without keys", cfg.Providers)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INBOXPILOT_PORT", "9191")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("len(Providers) = %d, want 1", len(cfg.Providers))
	}
	p := cfg.Providers[0]
	if p.Kind != models.ProviderAnthropic {
		t.Errorf("Kind = %q, want anthropic", p.Kind)
	}
	if p.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", p.APIKey)
	}
	if !p.IsDefault {
		t.Error("sole provider should be the default")
	}
}

func TestLoad_ProvidersFileWinsByName(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	path := filepath.Join(t.TempDir(), "providers.yaml")
	yaml := `providers:
  - name: ollama
    kind: ollama
    endpoint: http://gpu-box:11434
    model: llama3.3
    default: true
  - name: anthropic
    kind: anthropic
    api_key: sk-from-file
    model: claude-3-5-haiku-latest
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INBOXPILOT_PROVIDERS_FILE", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("len(Providers) = %d, want 2 (file entries replace env by name)", len(cfg.Providers))
	}

	byName := map[string]models.ModelProvider{}
	for _, p := range cfg.Providers {
		byName[p.Name] = p
	}
	if got := byName["ollama"].Endpoint; got != "http://gpu-box:11434" {
		t.Errorf("ollama endpoint = %q, want file value", got)
	}
	if got := byName["anthropic"].APIKey; got != "sk-from-file" {
		t.Errorf("anthropic key = %q, want file value", got)
	}
}

func TestLoad_BadProvidersFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INBOXPILOT_PROVIDERS_FILE", path)

	if _, err := config.Load(); err == nil {
		t.Error("Load with malformed providers file: want error, got nil")
	}
}

func TestLoad_MissingProvidersFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("INBOXPILOT_PROVIDERS_FILE", "/does/not/exist.yaml")

	if _, err := config.Load(); err == nil {
		t.Error("Load with missing providers file: want error, got nil")
	}
}
