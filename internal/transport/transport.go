// Package transport provides the outbound HTTP client used for all platform
// calls. Transient failures (connection errors, 429, 5xx) are retried with
// backoff inside the client; whatever escapes is permanent for the attempt.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/logging"
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Client is a retrying HTTP client. It is safe for concurrent use.
type Client struct {
	rc *retryablehttp.Client
}

// New creates a new transport client
func New(cfg config.HTTPConfig, logger *logging.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = leveledLogger{logger: logger}

	return &Client{rc: rc}
}

// Get performs a GET request. The caller owns the response body on success.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req)
}

// Post performs a POST request with the given body and headers. The caller
// owns the response body on success.
func (c *Client) Post(ctx context.Context, url string, headers map[string]string, body []byte) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req)
}

func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// leveledLogger adapts our logger to retryablehttp's LeveledLogger.
type leveledLogger struct {
	logger *logging.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorf("%s %v", msg, keysAndValues)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infof("%s %v", msg, keysAndValues)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugf("%s %v", msg, keysAndValues)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnf("%s %v", msg, keysAndValues)
}
