package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/pkg/httpx"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

// Client is the provider-neutral text generation interface used by the
// enrichment pipeline.
type Client interface {
	// GenerateText returns a plain-text completion.
	GenerateText(ctx context.Context, system, user string) (string, error)
	// GenerateJSON returns a completion constrained to a JSON object, for
	// providers that support it. Callers still validate the payload.
	GenerateJSON(ctx context.Context, system, user string) (string, error)
	// CountTokens estimates the token footprint of text.
	CountTokens(text string) int
	// SupportsJSONOutput reports whether GenerateJSON enforces JSON at the
	// provider level or merely instructs the model.
	SupportsJSONOutput() bool
}

// New selects the provider implementation from configuration.
func New(cfg config.LLMConfig, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing API key for provider %q", cfg.Provider)
	}
	switch cfg.Provider {
	case "openai", "azure_openai":
		return newOpenAIClient(cfg, log)
	case "anthropic":
		return newAnthropicClient(cfg, log)
	case "mistral":
		return newMistralClient(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// doWithRetry posts the JSON request built by build, retrying transient
// failures with exponential backoff and Retry-After awareness, and
// decodes the 2xx body into out.
func doWithRetry(ctx context.Context, log *logger.Logger, httpClient *http.Client, maxRetries int, build func() (*http.Request, error), out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := doOnce(httpClient, build)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)
		log.Warn("LLM request retrying",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func doOnce(httpClient *http.Client, build func() (*http.Request, error)) (*http.Response, []byte, error) {
	req, err := build()
	if err != nil {
		return nil, nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// estimateTokens approximates tokens as one per four runes.
func estimateTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	runes := []rune(text)
	return int(math.Ceil(float64(len(runes)) / 4.0))
}
