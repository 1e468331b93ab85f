package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodPost HTTPMethod = "POST"
)

// Doer is the part of [http.Client] the http source needs
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches file content with a single request
type HTTPSource struct {
	URL     string            `json:"url"`
	Method  *HTTPMethod       `json:"method,omitempty"` // Default is GET
	Headers map[string]string `json:"headers,omitempty"`

	client Doer
}

// RegisterHTTP registers the "http" source type using client, or
// [http.DefaultClient] when client is nil
func RegisterHTTP(r *Registry, client Doer) {
	if client == nil {
		client = http.DefaultClient
	}
	r.Register(HTTPSourceType, func(raw []byte) (Source, error) {
		return NewHTTPSource(raw, client)
	})
}

// NewHTTPSource decodes and validates an http source config
func NewHTTPSource(raw []byte, client Doer) (*HTTPSource, error) {
	var s HTTPSource
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	u, err := validateURL(s.URL)
	if err != nil {
		return nil, err
	}
	s.URL = u

	switch m := s.method(); m {
	case HTTPMethodGet, HTTPMethodPost:
	default:
		return nil, fmt.Errorf("http source: unsupported method %q", m)
	}

	s.client = client
	return &s, nil
}

func (s *HTTPSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, s.method(), s.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() // nolint:errcheck
		return nil, fmt.Errorf("http source %s: unexpected status %s", s.URL, resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPSource) method() HTTPMethod {
	if s.Method != nil {
		return strings.ToUpper(*s.Method)
	}
	return HTTPMethodGet
}

// validateURL accepts absolute http(s) URLs without user info
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("http source: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("http source: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("http source: unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("http source: missing host in %q", raw)
	}
	if u.User != nil {
		return "", fmt.Errorf("http source: user info not allowed in %q", raw)
	}
	return u.String(), nil
}
