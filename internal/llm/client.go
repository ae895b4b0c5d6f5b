// Package llm implements the language-understanding backend client.
//
// The client sends a prompt to the first configured provider that answers
// (fallback ordering: default provider first, then by name), using the
// provider's native request shape (Anthropic messages, OpenAI chat
// completions, or Ollama). Provider latency is tracked with a rolling
// average so operators can see which backend actually serves traffic.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/inboxpilot/inboxpilot/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned when no provider is configured or every
// configured provider failed. Callers treat it as a recoverable condition
// and fall back to rule-based extraction.
var ErrUnavailable = errors.New("llm: backend unavailable")

// DefaultMaxTokens bounds completion length for parsing prompts; structured
// replies are small.
const DefaultMaxTokens = 500

// Client calls configured model providers with transparent failover.
type Client struct {
	providers []models.ModelProvider
	client    *http.Client

	// Latency tracking: provider name → rolling avg ms
	latencyMu sync.RWMutex
	latencies map[string]int64
}

// NewClient creates a backend client over the given providers. An empty
// provider list is valid; every call then fails with ErrUnavailable.
func NewClient(providers []models.ModelProvider) *Client {
	return &Client{
		providers: providers,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		latencies: make(map[string]int64),
	}
}

// Complete sends a prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	ordered := orderProviders(c.providers)

	var lastErr error
	for i := range ordered {
		provider := &ordered[i]
		start := time.Now()
		text, err := c.callProvider(ctx, provider, prompt, maxTokens)
		if err != nil {
			log.Warn().
				Str("provider", provider.Name).
				Str("kind", string(provider.Kind)).
				Err(err).
				Msg("Provider call failed, trying next")
			lastErr = err
			continue
		}
		c.trackLatency(provider.Name, time.Since(start).Milliseconds())
		return text, nil
	}

	return "", fmt.Errorf("%w: all providers failed, last error: %v", ErrUnavailable, lastErr)
}

// orderProviders sorts providers for fallback: default providers first,
// then by name.
func orderProviders(providers []models.ModelProvider) []models.ModelProvider {
	ordered := make([]models.ModelProvider, len(providers))
	copy(ordered, providers)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].IsDefault != ordered[j].IsDefault {
			return ordered[i].IsDefault
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

func (c *Client) callProvider(ctx context.Context, provider *models.ModelProvider, prompt string, maxTokens int) (string, error) {
	switch provider.Kind {
	case models.ProviderAnthropic:
		return c.callAnthropic(ctx, provider, prompt, maxTokens)
	case models.ProviderOllama:
		return c.callOllama(ctx, provider, prompt)
	default:
		// Generic OpenAI-compatible endpoint
		return c.callOpenAI(ctx, provider, prompt, maxTokens)
	}
}

func (c *Client) trackLatency(name string, ms int64) {
	c.latencyMu.Lock()
	defer c.latencyMu.Unlock()
	prev := c.latencies[name]
	if prev == 0 {
		c.latencies[name] = ms
	} else {
		// Exponential moving average
		c.latencies[name] = (prev*7 + ms*3) / 10
	}
}

// Latency returns the rolling average latency for a provider in ms.
func (c *Client) Latency(name string) int64 {
	c.latencyMu.RLock()
	defer c.latencyMu.RUnlock()
	return c.latencies[name]
}

// ── Anthropic Provider ──────────────────────────────────────

type anthropicRequest struct {
	Model     string               `json:"model"`
	Messages  []models.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) callAnthropic(ctx context.Context, provider *models.ModelProvider, prompt string, maxTokens int) (string, error) {
	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}
	if provider.APIKey == "" {
		return "", fmt.Errorf("anthropic: api_key not configured for provider %s", provider.Name)
	}

	body, _ := json.Marshal(anthropicRequest{
		Model:     provider.Model,
		Messages:  []models.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", provider.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("anthropic: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	for _, block := range aResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text block in response")
}

// ── OpenAI-compatible Provider ──────────────────────────────

type openAIRequest struct {
	Model     string               `json:"model"`
	Messages  []models.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) callOpenAI(ctx context.Context, provider *models.ModelProvider, prompt string, maxTokens int) (string, error) {
	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	if provider.APIKey == "" {
		return "", fmt.Errorf("openai: api_key not configured for provider %s", provider.Name)
	}

	body, _ := json.Marshal(openAIRequest{
		Model:     provider.Model,
		Messages:  []models.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("openai: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return oResp.Choices[0].Message.Content, nil
}

// ── Ollama Provider ─────────────────────────────────────────

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (c *Client) callOllama(ctx context.Context, provider *models.ModelProvider, prompt string) (string, error) {
	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	body, _ := json.Marshal(ollamaRequest{
		Model:  provider.Model,
		Prompt: prompt,
		Stream: false,
	})

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("ollama: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var olResp ollamaResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&olResp); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	return olResp.Response, nil
}
