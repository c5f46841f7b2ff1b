// Package gateway provides typed HTTP clients for the Security Analytics
// backend. Every gateway method returns a core.Result: transport errors,
// non-2xx responses, decode failures and panics are all flattened into a
// failed result so callers never have to handle a thrown error.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"secanalytics/core"
	"secanalytics/metrics"
	"secanalytics/util/goroutine"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIBase is the route prefix of the Security Analytics plugin
const APIBase = "/_plugins/_security_analytics"

// maxErrorBodySize bounds how much of an error response body is read
const maxErrorBodySize = 64 * 1024

// ClientConfig configures access to the backend
type ClientConfig struct {
	BaseURL            string
	Timeout            time.Duration
	Auth               AuthConfig
	RequestsPerSecond  float64
	Burst              int
	InsecureSkipVerify bool
	CircuitBreaker     core.CircuitBreakerConfig
}

// StatusError is returned for non-2xx backend responses
type StatusError struct {
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Reason)
}

// Client is the shared HTTP transport used by all gateways
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *core.CircuitBreaker
	auth       authenticator
	logger     *zap.SugaredLogger
}

// NewClient constructs a client targeting the configured backend
func NewClient(cfg ClientConfig, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL not configured")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported backend scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.HTTPClientTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	cbConfig := cfg.CircuitBreaker
	if cbConfig.MaxFailures == 0 {
		cbConfig = core.DefaultCircuitBreakerConfig()
	}
	if cbConfig.OnStateChange == nil {
		cbConfig.OnStateChange = func(name string, from, to core.CircuitBreakerState) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, string(to)).Inc()
			logger.Warnw("Backend circuit breaker changed state", "name", name, "from", from, "to", to)
		}
	}
	breaker, err := core.NewCircuitBreaker(cbConfig)
	if err != nil {
		return nil, err
	}

	auth, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed dev clusters
				},
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		auth:    auth,
		logger:  logger,
	}, nil
}

// Breaker exposes the client's circuit breaker (useful for health reporting)
func (c *Client) Breaker() *core.CircuitBreaker {
	return c.breaker
}

// Ping checks that the backend is reachable and the credentials are accepted
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/", nil, nil, nil)
}

// resolve joins an already escaped path onto the base URL. Escaped ids
// stay single segments.
func (c *Client) resolve(p string, query url.Values) string {
	u := *c.baseURL
	raw := path.Join(u.EscapedPath(), p)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = unescaped, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one backend request. resource labels metrics and logs.
func (c *Client) do(ctx context.Context, resource, method, p string, query url.Values, payload, out any) (err error) {
	defer goroutine.RecoverTo("gateway-"+resource, c.logger, &err)

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.GatewayRequests.WithLabelValues(resource, outcome).Inc()
		metrics.GatewayRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	return c.breaker.Execute(func() error {
		return c.roundTrip(ctx, method, c.resolve(p, query), body, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.auth.authenticate(req, body); err != nil {
		return fmt.Errorf("authenticate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &StatusError{StatusCode: resp.StatusCode, Reason: errorReason(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorReason extracts the reason from an OpenSearch error body
func errorReason(data []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(data))
	}
	var detailed struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil && detailed.Reason != "" {
		return detailed.Reason
	}
	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		return plain
	}
	return string(envelope.Error)
}

// call wraps do into the uniform Result shape
func call[T any](ctx context.Context, c *Client, resource, method, p string, query url.Values, payload any) core.Result[T] {
	var out T
	if err := c.do(ctx, resource, method, p, query, payload, &out); err != nil {
		c.logger.Debugw("Backend request failed", "resource", resource, "path", p, "error", err)
		return core.Failure[T](err)
	}
	return core.Success(out)
}

// SearchHits is the OpenSearch search response envelope
type SearchHits[T any] struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []T `json:"hits"`
	} `json:"hits"`
}
