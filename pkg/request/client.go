// Package request is the HTTP client used for JSON APIs. It retries network
// failures, throttling and server errors with per-host exponential backoff.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("ankispeech/%s", version.Version)

// StatusError is returned for responses that are not retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// ErrRetriesExceeded is returned when every attempt failed transiently.
var ErrRetriesExceeded = errors.New("max retries exceeded")

// Client handles HTTP requests with backoff and tracking.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	log        *slog.Logger
	retries    int
}

// New creates a new Client. A nil logger means the default logger.
func New(cfg config.RequestConfig, t *tracker.Tracker, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tracker:    t,
		backoff:    NewProviderBackoff(cfg.Backoff.BaseDelay.Std(), cfg.Backoff.MaxDelay.Std()),
		log:        log,
		retries:    retries,
	}
}

// PostJSON marshals in, posts it to u and decodes the response into out.
// A nil out discards the body.
func (c *Client) PostJSON(ctx context.Context, u string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.Post(ctx, u, body, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Post performs a POST request with custom headers.
func (c *Client) Post(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid url: missing host in %q", u)
	}
	provider := normalizeProvider(parsedURL.Host)

	out, err := c.executeWithBackoff(ctx, provider, u, body, headers)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, err
	}
	c.tracker.TrackAPISuccess(provider)
	return out, nil
}

func normalizeProvider(host string) string {
	h := strings.ToLower(host)
	if name, _, err := net.SplitHostPort(h); err == nil {
		h = name
	}
	switch h {
	case "localhost", "127.0.0.1", "::1":
		return "anki"
	}
	return h
}

// executeWithBackoff sends the request, retrying network errors, 429 and 5xx.
func (c *Client) executeWithBackoff(ctx context.Context, provider, u string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.backoff.Wait(ctx, provider); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		c.log.Debug("Network Request", "provider", provider, "path", req.URL.Path, "attempt", attempt+1, "bytes", len(body))
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			delay := c.backoff.RecordFailure(provider)
			c.log.Warn("Request failed, retrying", "provider", provider, "attempt", attempt+1, "delay", delay, "error", err)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.log.Info("Response", "provider", provider, "status", resp.StatusCode, "bytes", len(data), "took", time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(data)}
			delay := c.backoff.RecordFailure(provider)
			c.log.Warn("API Backoff", "provider", provider, "status", resp.StatusCode, "attempt", attempt+1, "delay", delay)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(data)}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read error: %w", readErr)
		}

		c.backoff.RecordSuccess(provider)
		return data, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExceeded, c.retries, lastErr)
}

func truncate(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
