package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

const anthropicVersion = "2023-06-01"

type anthropicClient struct {
	log        *logger.Logger
	apiKey     string
	model      string
	baseURL    string
	temp       float64
	maxTokens  int
	maxRetries int
	httpClient *http.Client
}

func newAnthropicClient(cfg config.LLMConfig, log *logger.Logger) (*anthropicClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}
	return &anthropicClient{
		log:        log.With("service", "AnthropicClient"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    base,
		temp:       cfg.Temperature,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *anthropicClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temp,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: user}},
	}

	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
		return req, nil
	}

	var resp anthropicResponse
	if err := doWithRetry(ctx, c.log, c.httpClient, c.maxRetries, build, &resp); err != nil {
		return "", err
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return out.String(), nil
}

// GenerateJSON has no provider-level JSON mode here; the caller's prompt
// carries the JSON instruction.
func (c *anthropicClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return c.GenerateText(ctx, system, user)
}

func (c *anthropicClient) CountTokens(text string) int { return estimateTokens(text) }

func (c *anthropicClient) SupportsJSONOutput() bool { return false }
