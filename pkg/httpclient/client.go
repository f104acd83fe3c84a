// Package httpclient is the outbound HTTP client shared by the content API
// fetcher.
package httpclient

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the harvester to the upstream site.
const DefaultUserAgent = "metacasts/1.0"

const maxRedirects = 10

// Profile is the set of headers sent with every request.
type Profile struct {
	UserAgent string
	Accept    string
}

var (
	// JSON asks for API responses.
	JSON = Profile{UserAgent: DefaultUserAgent, Accept: "application/json"}
	// Plain sends curl-like headers. Some CDNs reject browser-looking
	// agents that do not run scripts.
	Plain = Profile{UserAgent: "curl/8.7.1"}
)

// HTTPClient wraps an http.Client and stamps the profile headers on each
// request.
type HTTPClient struct {
	client  *http.Client
	profile Profile
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithUserAgent overrides the profile's User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) {
		if ua != "" {
			c.profile.UserAgent = ua
		}
	}
}

// NewClient returns a client sending profile's headers.
func NewClient(profile Profile, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		profile: profile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req with the profile headers. Headers already set on req win.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	setDefault(req.Header, "User-Agent", c.profile.UserAgent)
	setDefault(req.Header, "Accept", c.profile.Accept)
	return c.client.Do(req)
}

// Get issues a GET bound to ctx.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func setDefault(h http.Header, key, value string) {
	if value != "" && h.Get(key) == "" {
		h.Set(key, value)
	}
}
