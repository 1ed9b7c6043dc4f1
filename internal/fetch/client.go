// Package fetch implements the single-article acquisition pipeline: cache
// check, quota check, HTTP fetch with retry, content extraction, resource
// harvesting, rewrite, and persistence.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBodyBytes limits the size of fetched responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// ClientConfig configures the retrying HTTP client.
type ClientConfig struct {
	UserAgent      string
	AcceptLanguage string
	// RetryAttempts is the total number of tries for transport failures.
	RetryAttempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// Client issues GET requests with browser-like headers and a fixed retry
// ladder for transport-level failures. HTTP error statuses fail immediately
// without retry.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	retryAttempts  int
	retryDelay     time.Duration
}

// NewClient creates a new retrying HTTP client. Redirects are followed with
// the net/http default policy.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

// Get fetches the URL and returns the response body and Content-Type header.
// Transport failures are retried RetryAttempts times with RetryDelay between
// attempts; the last one is wrapped in a NetworkError. Non-2xx statuses
// return an HTTPStatusError without retrying.
func (c *Client) Get(ctx context.Context, rawURL string) (body []byte, contentType string, err error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, contentType, lastErr = c.get(ctx, rawURL)
		if lastErr == nil {
			return body, contentType, nil
		}

		var statusErr *HTTPStatusError
		if errors.As(lastErr, &statusErr) {
			return nil, "", lastErr
		}
	}

	return nil, "", &NetworkError{Attempts: c.retryAttempts, Err: lastErr}
}

// get performs a single GET attempt.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, "", fmt.Errorf("create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, "", fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)

	data, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, "", fmt.Errorf("read response body: %w", readErr)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
