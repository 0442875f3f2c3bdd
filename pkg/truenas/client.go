package truenas

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/metrics"
	"github.com/rs/zerolog"
)

// Error taxonomy for backend calls. Callers match with errors.Is.
var (
	// ErrUnauthenticated indicates an HTTP 401 from the backend.
	ErrUnauthenticated = errors.New("backend authentication failed")

	// ErrConnectionFailed indicates a transport-level failure (DNS, TCP,
	// TLS) before any HTTP status was received.
	ErrConnectionFailed = errors.New("backend connection failed")

	// ErrUnexpectedStatus indicates any other non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected backend response")
)

// Client is an authenticated REST client bound to a TrueNAS API base URL.
// All calls are synchronous network I/O against the live controller; there
// is no caching and no retry.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client for the given base URL and bearer credential.
// TLS verification may be disabled for self-signed certificates.
func NewClient(baseURL, apiKey string, insecureSkipVerify bool) *Client {
	transport := http.DefaultTransport
	if insecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: log.WithComponent("truenas"),
	}
}

// do performs one HTTP request and returns (status, body). The error
// return covers transport failures and status-code classification; the
// body is returned alongside non-2xx statuses for diagnostics.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		return 0, nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.BackendRequestsTotal.WithLabelValues(method, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   truncate(body, 200),
		}
	}

	return resp.StatusCode, body, nil
}

// Get issues a GET and returns (status, body).
func (c *Client) Get(ctx context.Context, path string) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body and returns (status, body).
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Delete issues a DELETE and returns (status, body).
func (c *Client) Delete(ctx context.Context, path string) (int, []byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	_, body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// postJSON issues a POST and decodes the response into out (out may be nil).
func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	_, body, err := c.Post(ctx, path, payload)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
