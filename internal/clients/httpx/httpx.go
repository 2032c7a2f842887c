// Package httpx provides the shared retrying HTTP transport used by the
// provider adapters. Retry happens at the transport layer only: request
// errors and retryable status codes get a second attempt with exponential
// backoff; response-content problems are the adapter's concern.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAttempts bounds transport retries: one initial call, one retry.
	DefaultAttempts = 2
	// DefaultBackoffBase is the first retry delay; it doubles per attempt.
	DefaultBackoffBase = 500 * time.Millisecond
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// retryable reports whether a status code is worth a second attempt.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Do performs a rate-limited GET with bounded retry and returns the response
// body. limiter may be nil. All returned errors are transport-level: the
// caller maps them to its provider-unavailable taxonomy.
func Do(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, header http.Header) ([]byte, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	delay := DefaultBackoffBase

	for attempt := 1; attempt <= DefaultAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
			if retryable(resp.StatusCode) {
				lastErr = statusErr
				continue
			}
			return nil, statusErr
		}

		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		return body, nil
	}

	return nil, lastErr
}

// GetJSON performs Do and decodes the body into result.
func GetJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, header http.Header, result any) error {
	body, err := Do(ctx, client, limiter, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
