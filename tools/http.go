package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPTool fetches URLs over HTTP GET, optionally restricted to an
// allowlist of domains.
type HTTPTool struct {
	client         *http.Client
	maxBody        int64
	allowedDomains []string
}

// NewHTTPTool creates an HTTP tool with the given request timeout.
func NewHTTPTool(timeout time.Duration) *HTTPTool {
	return &HTTPTool{
		client:  &http.Client{Timeout: timeout},
		maxBody: 1 << 20,
	}
}

// WithAllowedDomains restricts requests to the given domains and their
// subdomains.
func (t *HTTPTool) WithAllowedDomains(domains []string) *HTTPTool {
	t.allowedDomains = domains
	return t
}

func (t *HTTPTool) Name() string { return "http_get" }

func (t *HTTPTool) Description() string {
	return "Fetch the contents of a URL with an HTTP GET request"
}

func (t *HTTPTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch",
			},
		},
		"required": []string{"url"},
	}
}

type httpArgs struct {
	URL string `json:"url"`
}

// Invoke performs the GET request and returns status plus body.
func (t *HTTPTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var a httpArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if a.URL == "" {
		return "", fmt.Errorf("url cannot be empty")
	}
	if !t.domainAllowed(a.URL) {
		return "", fmt.Errorf("access to domain in %q is not allowed", a.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error: %s\n\n%s", resp.Status, string(body))
	}
	return fmt.Sprintf("Status: %s\n\n%s", resp.Status, string(body)), nil
}

// domainAllowed checks the URL's hostname against the allowlist. Uses
// proper URL parsing to prevent bypass via crafted strings.
func (t *HTTPTool) domainAllowed(raw string) bool {
	if len(t.allowedDomains) == 0 {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, domain := range t.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
