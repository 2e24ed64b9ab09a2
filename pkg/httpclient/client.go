package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "valavatar/pkg/errors"
	"valavatar/pkg/logger"
)

const (
	// DefaultUserAgent identifies valavatar to LCD operators and Keybase
	DefaultUserAgent = "valavatar/1.0 (+https://github.com/valavatar/valavatar)"

	// maxJSONBody caps how much of a JSON response is read
	maxJSONBody = 32 << 20

	bodyPreviewLen = 200
)

// Client is a thin HTTP client that decodes JSON responses and streams
// downloads, mapping failures onto the apperrors taxonomy.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	headers      map[string]string
	logger       logger.Logger
}

// New creates a Client whose requests time out after timeout.
// Streams never follow redirects; JSON requests follow them as usual.
func New(timeout time.Duration, log logger.Logger) *Client {
	return NewWithHTTPClient(&http.Client{Timeout: timeout}, log)
}

// NewWithHTTPClient wraps an existing http.Client, keeping its transport and
// timeout for both JSON and stream requests.
func NewWithHTTPClient(hc *http.Client, log logger.Logger) *Client {
	stream := *hc
	stream.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		httpClient:   hc,
		streamClient: &stream,
		headers: map[string]string{
			"User-Agent": DefaultUserAgent,
			"Accept":     "application/json",
		},
		logger: logger.OrNop(log),
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// do sends a GET with the configured headers
func (c *Client) do(ctx context.Context, hc *http.Client, op, url string, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.KindNetwork, op, url, fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.New(apperrors.KindNetwork, op, url, err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into target.
// Non-2xx statuses and undecodable bodies are returned as typed errors.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	const op = "get json"

	resp, err := c.do(ctx, c.httpClient, op, url, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, bodyPreviewLen))
		return apperrors.Status(op, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return apperrors.New(apperrors.KindNetwork, op, url, fmt.Errorf("failed to read response body: %w", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.DebugWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"body_preview": preview(body),
		})
		return apperrors.New(apperrors.KindParsing, op, url, err)
	}

	return nil
}

// Stream opens url for reading without following redirects. The caller must
// close the returned body. Any non-2xx response, redirects included, is an error.
func (c *Client) Stream(ctx context.Context, url string) (io.ReadCloser, error) {
	const op = "stream"

	resp, err := c.do(ctx, c.streamClient, op, url, "*/*")
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return resp.Body, nil
	case resp.StatusCode >= 300 && resp.StatusCode <= 399:
		resp.Body.Close()
		return nil, &apperrors.Error{
			Kind: apperrors.KindRedirect,
			Op:   op,
			URL:  url,
			Code: resp.StatusCode,
			Err:  fmt.Errorf("redirect to %q refused", resp.Header.Get("Location")),
		}
	default:
		resp.Body.Close()
		return nil, apperrors.Status(op, url, resp.StatusCode)
	}
}

func preview(body []byte) string {
	if len(body) > bodyPreviewLen {
		return string(body[:bodyPreviewLen]) + "..."
	}
	return string(body)
}
