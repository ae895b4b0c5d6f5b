// Package config loads runtime configuration from the environment plus an
// optional YAML file for model providers.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// Config holds all configuration for the inboxpilot server.
type Config struct {
	Port     int
	Version  string
	DataDir  string
	MaxSteps int

	Gmail     GoogleConfig
	Calendar  GoogleConfig
	Providers []models.ModelProvider
	Telemetry TelemetryConfig
}

// GoogleConfig configures one Google API client.
type GoogleConfig struct {
	BaseURL     string
	AccessToken string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// providerFile is the YAML shape of the optional provider config file.
type providerFile struct {
	Providers []models.ModelProvider `yaml:"providers"`
}

// Load reads configuration from environment variables with sensible
// defaults, then merges providers from INBOXPILOT_PROVIDERS_FILE if set.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     envInt("INBOXPILOT_PORT", 8080),
		Version:  envStr("INBOXPILOT_VERSION", "0.1.0"),
		DataDir:  envStr("INBOXPILOT_DATA_DIR", "data"),
		MaxSteps: envInt("INBOXPILOT_MAX_STEPS", 10),
		Gmail: GoogleConfig{
			BaseURL:     envStr("GMAIL_BASE_URL", ""),
			AccessToken: envStr("GOOGLE_ACCESS_TOKEN", ""),
		},
		Calendar: GoogleConfig{
			BaseURL:     envStr("GCAL_BASE_URL", ""),
			AccessToken: envStr("GOOGLE_ACCESS_TOKEN", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "inboxpilot"),
		},
	}

	cfg.Providers = envProviders()

	if path := os.Getenv("INBOXPILOT_PROVIDERS_FILE"); path != "" {
		fromFile, err := loadProviderFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Providers = mergeProviders(cfg.Providers, fromFile)
	}

	return cfg, nil
}

// envProviders builds providers from well-known environment variables.
// Only providers with a key (or a local endpoint) are included.
func envProviders() []models.ModelProvider {
	var out []models.ModelProvider
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		out = append(out, models.ModelProvider{
			Name:      "anthropic",
			Kind:      models.ProviderAnthropic,
			Endpoint:  envStr("ANTHROPIC_BASE_URL", ""),
			Model:     envStr("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			APIKey:    key,
			IsDefault: true,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		out = append(out, models.ModelProvider{
			Name:      "openai",
			Kind:      models.ProviderOpenAI,
			Endpoint:  envStr("OPENAI_BASE_URL", ""),
			Model:     envStr("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:    key,
			IsDefault: len(out) == 0,
		})
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		out = append(out, models.ModelProvider{
			Name:      "ollama",
			Kind:      models.ProviderOllama,
			Endpoint:  url,
			Model:     envStr("OLLAMA_MODEL", "llama3.2"),
			IsDefault: len(out) == 0,
		})
	}
	return out
}

// loadProviderFile parses a YAML provider list.
func loadProviderFile(path string) ([]models.ModelProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read providers file: %w", err)
	}
	var pf providerFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("config: parse providers file %s: %w", path, err)
	}
	return pf.Providers, nil
}

// mergeProviders layers file entries over env entries by name. File
// entries win; env-only entries are kept.
func mergeProviders(env, file []models.ModelProvider) []models.ModelProvider {
	if len(file) == 0 {
		return env
	}
	byName := map[string]bool{}
	for _, p := range file {
		byName[p.Name] = true
	}
	out := append([]models.ModelProvider{}, file...)
	for _, p := range env {
		if !byName[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
