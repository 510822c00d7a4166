package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, true},
		{"429", &statusErr{429}, true},
		{"408", &statusErr{408}, true},
		{"503", &statusErr{503}, true},
		{"400", &statusErr{400}, false},
		{"404", &statusErr{404}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryableError = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	withHeader := func(v string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("Retry-After", v)
		return resp
	}

	if got := RetryAfterDuration(nil, 2*time.Second, 10*time.Second); got != 2*time.Second {
		t.Errorf("nil response = %v", got)
	}
	if got := RetryAfterDuration(withHeader("5"), 2*time.Second, 10*time.Second); got != 5*time.Second {
		t.Errorf("Retry-After 5 = %v", got)
	}
	if got := RetryAfterDuration(withHeader("30"), 2*time.Second, 10*time.Second); got != 10*time.Second {
		t.Errorf("capped = %v", got)
	}
	if got := RetryAfterDuration(withHeader("garbage"), 2*time.Second, 10*time.Second); got != 2*time.Second {
		t.Errorf("unusable header = %v", got)
	}
	if got := RetryAfterDuration(withHeader("0"), 2*time.Second, 10*time.Second); got != 2*time.Second {
		t.Errorf("non-positive header = %v", got)
	}
}

func TestJitterSleep(t *testing.T) {
	if got := JitterSleep(0); got != 0 {
		t.Errorf("JitterSleep(0) = %v", got)
	}
	base := time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("JitterSleep(%v) = %v, outside 20%% band", base, got)
		}
	}
}
