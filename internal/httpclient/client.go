package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client wraps an http.Client with outbound rate limiting and a fixed
// User-Agent. It makes exactly one attempt per call.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewTransport bounds connection setup and time-to-first-byte by timeout.
// Body reads are not bounded, so large downloads are not cut off.
func NewTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
}

// NewClient creates a rate-limited client. requestsPerSecond <= 0 disables limiting.
func NewClient(httpClient *http.Client, requestsPerSecond float64, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: NewTransport(10 * time.Second)}
	}

	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		if requestsPerSecond > 1 {
			burst = int(requestsPerSecond)
		}
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		userAgent:  userAgent,
	}
}

// Do waits for a rate-limit token and executes the request once.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req = req.WithContext(ctx)
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Get builds and executes a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// GetUnderlyingClient returns the underlying *http.Client.
func (c *Client) GetUnderlyingClient() *http.Client {
	return c.httpClient
}
