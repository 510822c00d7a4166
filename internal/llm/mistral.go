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

// mistralClient speaks Mistral's chat completions API, which mirrors the
// OpenAI wire shape.
type mistralClient struct {
	log        *logger.Logger
	apiKey     string
	model      string
	baseURL    string
	temp       float64
	maxTokens  int
	maxRetries int
	httpClient *http.Client
}

func newMistralClient(cfg config.LLMConfig, log *logger.Logger) (*mistralClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.mistral.ai"
	}
	return &mistralClient{
		log:        log.With("service", "MistralClient"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    base,
		temp:       cfg.Temperature,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

func (c *mistralClient) generate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	var msgs []chatMessage
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temp,
		MaxTokens:   c.maxTokens,
	}
	if jsonMode {
		reqBody.ResponseFormat = map[string]any{"type": "json_object"}
	}

	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	}

	var resp chatResponse
	if err := doWithRetry(ctx, c.log, c.httpClient, c.maxRetries, build, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *mistralClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, false)
}

func (c *mistralClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, true)
}

func (c *mistralClient) CountTokens(text string) int { return estimateTokens(text) }

func (c *mistralClient) SupportsJSONOutput() bool { return true }
