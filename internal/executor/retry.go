package executor

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pysugar/connector-gate/internal/transport"
)

// RetryPolicy bounds retries and sets the fallback wait used when the
// provider supplies no hint. It is a value, never mutated by the
// executor.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy matches the connector scripts: three retries with a
// five-second fallback wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second}
}

// Delay returns the wait before the next retry. A server-supplied hint
// always overrides the fallback.
func (p RetryPolicy) Delay(resp *transport.Response) time.Duration {
	if d := ParseRetryDelay(resp); d > 0 {
		return d
	}
	return p.Backoff
}

// retryInfo is the structured error body some providers attach to 429
// responses (Google-style retryDelay details).
type retryInfo struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string            `json:"@type"`
			Reason     string            `json:"reason"`
			Metadata   map[string]string `json:"metadata"`
			RetryDelay string            `json:"retryDelay"` // e.g. "3.5s"
		} `json:"details"`
	} `json:"error"`
}

// ParseRetryDelay extracts a wait hint from a throttled response. It
// checks the standard Retry-After header first (delta seconds or HTTP
// date), then a JSON retryDelay detail in the body. Returns 0 if no
// hint is found.
func ParseRetryDelay(resp *transport.Response) time.Duration {
	if resp == nil {
		return 0
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
			return 0
		}
	}

	if len(resp.Body) == 0 {
		return 0
	}
	var info retryInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return 0
	}
	for _, detail := range info.Error.Details {
		if detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil && d > 0 {
				return d
			}
		}
		if delay, ok := detail.Metadata["retryDelay"]; ok {
			if d, err := time.ParseDuration(delay); err == nil && d > 0 {
				return d
			}
		}
	}

	return 0
}
