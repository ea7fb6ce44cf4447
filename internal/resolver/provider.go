package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// httpProvider is the shared shape of the registry providers: one GET per
// lookup, a local rate limiter, and a body parser that decides whether the
// response is a well-formed success. Rate-limiter exhaustion counts as a
// provider failure so the chain falls through instead of blocking intake.
type httpProvider struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	url     func(key string) string
	parse   func(body []byte) (map[string]string, error)
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) Fetch(ctx context.Context, key string) (map[string]string, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		return nil, fmt.Errorf("%s: rate limited", p.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	fields, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return fields, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultProviderTimeout}
}

// nonEmpty copies only the non-empty pairs, keeping cached entries compact.
func nonEmpty(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
