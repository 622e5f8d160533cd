package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultPutTimeout is the HTTP client timeout for each upload.
const DefaultPutTimeout = 30 * time.Second

// HTTPStore ships objects with plain HTTP PUT requests to
// <endpoint>/<container>/<key>. There are no retries; a failed Put is
// reported to the caller and the caller decides whether to re-run.
type HTTPStore struct {
	endpoint  string
	container string
	token     string // optional bearer token, passed through as-is
	client    *http.Client
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithPutTimeout sets the HTTP client timeout for each PUT.
func WithPutTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStore) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithBearerToken sets the Authorization: Bearer header value.
func WithBearerToken(tok string) HTTPOption {
	return func(s *HTTPStore) {
		s.token = tok
	}
}

// NewHTTPStore creates an HTTPStore targeting the given endpoint and container.
func NewHTTPStore(endpoint, container string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		endpoint:  strings.TrimRight(endpoint, "/"),
		container: container,
		client:    &http.Client{Timeout: DefaultPutTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put uploads one object. PUT semantics make re-uploads idempotent: the
// server replaces the object instead of rejecting a duplicate.
func (s *HTTPStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.container, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("store: building request for %s: %w", key, err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	if s.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: putting %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("store: putting %s: HTTP %d", key, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections held by the HTTP client.
func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
