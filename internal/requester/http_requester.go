package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a provider response is read into memory.
const maxBodyBytes = 1 << 20

// HTTPRequester executes outbound calls with a bounded timeout
type HTTPRequester struct {
	client *http.Client
}

// NewHTTPRequester creates a requester whose client times out after cfg.CallTimeout
func NewHTTPRequester(cfg *config.ProviderConfig) *HTTPRequester {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Client exposes the underlying client so oauth2 can share its transport and timeout.
func (r *HTTPRequester) Client() *http.Client {
	return r.client
}

// Do builds, authenticates and executes req, returning the fully read response.
// Non-2xx statuses are not errors here; callers decide what a status means.
func (r *HTTPRequester) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Auth != nil {
		if err := req.Auth.ApplyAuth(httpReq); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

// Get is a shorthand for an authenticated GET.
func (r *HTTPRequester) Get(ctx context.Context, url string, auth AuthManager) (*Response, error) {
	return r.Do(ctx, Request{Method: http.MethodGet, URL: url, Auth: auth})
}
