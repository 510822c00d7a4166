// Package httpx classifies transient failures of outbound HTTP calls
// and computes the pauses between retries. Consumed by the llm clients.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusCoder is implemented by errors carrying the HTTP status of a
// non-2xx response.
type statusCoder interface {
	HTTPStatusCode() int
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether a failed request is worth repeating:
// timeouts, temporary network faults, 408, 429 and 5xx responses.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return retryableStatus(sc.HTTPStatusCode())
	}
	return false
}

// RetryAfterDuration picks the pause before the next attempt: the
// server's Retry-After header in seconds when present and positive,
// otherwise fallback, in both cases capped at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	pause := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				pause = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && pause > max {
		pause = max
	}
	return pause
}

// JitterSleep spreads base by up to 20% in either direction.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := float64(base) * 0.2
	low := float64(base) - spread
	return time.Duration(low + rand.Float64()*2*spread)
}
