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

// openAIClient talks to the Chat Completions API, either api.openai.com
// or an Azure OpenAI deployment.
type openAIClient struct {
	log        *logger.Logger
	apiKey     string
	model      string
	url        string
	azure      bool
	temp       float64
	maxTokens  int
	maxRetries int
	httpClient *http.Client
}

func newOpenAIClient(cfg config.LLMConfig, log *logger.Logger) (*openAIClient, error) {
	c := &openAIClient{
		log:        log.With("service", "OpenAIClient"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		azure:      cfg.Provider == "azure_openai",
		temp:       cfg.Temperature,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
	if c.azure {
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.AzureEndpoint), "/")
		if endpoint == "" {
			return nil, fmt.Errorf("azure_openai provider requires AZURE_OPENAI_ENDPOINT")
		}
		deployment := cfg.AzureDeployment
		if deployment == "" {
			deployment = cfg.Model
		}
		c.url = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			endpoint, deployment, cfg.AzureAPIVersion)
	} else {
		base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if base == "" {
			base = "https://api.openai.com"
		}
		c.url = base + "/v1/chat/completions"
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) generate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
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
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.azure {
			req.Header.Set("api-key", c.apiKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
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

func (c *openAIClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, false)
}

func (c *openAIClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, user, true)
}

func (c *openAIClient) CountTokens(text string) int { return estimateTokens(text) }

func (c *openAIClient) SupportsJSONOutput() bool { return true }
