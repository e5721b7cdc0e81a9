package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/taxii2-client/internal/auth"
	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// Client is the TAXII connection. It negotiates content types for one
// protocol version and is safe for concurrent use.
type Client struct {
	httpClient    *retryablehttp.Client
	version       taxii2.Version
	userAgent     string
	authenticator auth.Authenticator
	logger        taxii2.Logger
	debug         bool
	metrics       *metrics
	registerer    prometheus.Registerer
	closed        atomic.Bool
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger taxii2.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the default User-Agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithAuthenticator sets the credentials attached to every request.
func WithAuthenticator(authenticator auth.Authenticator) Option {
	return func(c *Client) {
		c.authenticator = authenticator
	}
}

// WithRetryConfig enables retries of 5xx and 429 responses.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithSkipTLSVerify disables certificate verification.
func WithSkipTLSVerify(skip bool) Option {
	return func(c *Client) {
		if transport, ok := c.httpClient.HTTPClient.Transport.(*http.Transport); ok && skip {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // caller opted in
		}
	}
}

// WithProxy routes requests through proxyURL.
func WithProxy(proxyURL *url.URL) Option {
	return func(c *Client) {
		if transport, ok := c.httpClient.HTTPClient.Transport.(*http.Transport); ok && proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
}

// WithMetrics records request counts and latencies in registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = registerer
	}
}

// NewClient creates a connection for the given protocol version. Transport
// retries are off unless WithRetryConfig is given.
func NewClient(version taxii2.Version, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.CheckRetry = checkRetry

	client := &Client{
		httpClient: retryClient,
		version:    version.OrDefault(),
		userAgent:  taxii2.UserAgent(constants.Release),
		logger:     taxii2.NopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.registerer != nil {
		m, err := newMetrics(client.registerer)
		if err != nil {
			client.logger.Warn("Metrics disabled", map[string]interface{}{"error": err.Error()})
		}

		client.metrics = m
	}

	return client
}

// checkRetry retries connection errors, 429 and 5xx responses other than
// 501. It only matters once RetryMax is above zero.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if resp.StatusCode == constants.HTTPStatusTooManyRequests {
		return true, nil
	}

	return resp.StatusCode >= constants.HTTPStatusInternalServerError && resp.StatusCode != http.StatusNotImplemented, nil
}

// Version implements taxii2.Connection.
func (c *Client) Version() taxii2.Version {
	return c.version
}

// UserAgent returns the default User-Agent header value.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get implements taxii2.Connection. The default Accept header is the TAXII
// media type of the client's version.
func (c *Client) Get(ctx context.Context, rawURL string, opts *taxii2.RequestOptions) (*taxii2.Response, error) {
	return c.negotiate(ctx, http.MethodGet, rawURL, opts)
}

// Post implements taxii2.Connection.
func (c *Client) Post(ctx context.Context, rawURL string, opts *taxii2.RequestOptions) (*taxii2.Response, error) {
	if opts != nil && opts.JSON != nil && opts.Data != nil {
		return nil, taxii2.NewError(taxii2.ErrInvalidArguments, "Only one of a JSON body or raw data may be given")
	}

	return c.negotiate(ctx, http.MethodPost, rawURL, opts)
}

// Delete implements taxii2.Connection.
func (c *Client) Delete(ctx context.Context, rawURL string, opts *taxii2.RequestOptions) (*taxii2.Response, error) {
	if opts == nil {
		opts = &taxii2.RequestOptions{}
	}

	return c.Do(ctx, http.MethodDelete, rawURL, c.MergeHeaders(opts.Headers), opts)
}

// Close implements taxii2.Connection. It is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.httpClient.HTTPClient.CloseIdleConnections()

	return nil
}

// MergeHeaders combines the default headers with overrides. Keys compare
// case-insensitively and an empty User-Agent falls back to the default.
func (c *Client) MergeHeaders(overrides map[string]string) http.Header {
	merged := http.Header{}
	merged.Set("User-Agent", c.userAgent)

	for key, value := range overrides {
		merged.Set(key, value)
	}

	if merged.Get("User-Agent") == "" {
		merged.Set("User-Agent", c.userAgent)
	}

	return merged
}

// ValidContentType reports whether contentType answers accept. Every
// parameter of accept must appear in contentType and the base type must be
// one the client's version recognizes.
func (c *Client) ValidContentType(contentType, accept string) bool {
	ctype := strings.Split(strings.ReplaceAll(contentType, " ", ""), ";")
	acc := strings.Split(strings.ReplaceAll(accept, " ", ""), ";")

	for _, token := range acc {
		if !containsToken(ctype, token) {
			return false
		}
	}

	return containsToken(c.version.BaseMediaTypes(), ctype[0])
}

func containsToken(tokens []string, token string) bool {
	for _, candidate := range tokens {
		if strings.EqualFold(candidate, token) {
			return true
		}
	}

	return false
}

func (c *Client) negotiate(ctx context.Context, method, rawURL string, opts *taxii2.RequestOptions) (*taxii2.Response, error) {
	if opts == nil {
		opts = &taxii2.RequestOptions{}
	}

	headers := c.MergeHeaders(opts.Headers)
	if headers.Get("Accept") == "" {
		headers.Set("Accept", c.version.AcceptMediaType())
	}

	resp, err := c.Do(ctx, method, rawURL, headers, opts)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	accept := headers.Get("Accept")

	if !c.ValidContentType(contentType, accept) {
		return nil, taxii2.NewError(taxii2.ErrContentType,
			"Unexpected Response. Got Content-Type: '%s' for Accept: '%s'", contentType, accept)
	}

	return resp, nil
}

// Do sends one request with exactly the given headers and fails on non-2xx
// responses.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers http.Header, opts *taxii2.RequestOptions) (*taxii2.Response, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: %s %s", taxii2.ErrConnectionClosed, method, rawURL)
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	target, err := withParams(rawURL, opts.Params)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header = headers.Clone()
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	if err := auth.Apply(c.authenticator, req.Request); err != nil {
		return nil, fmt.Errorf("authenticating request: %w", err)
	}

	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	if err != nil {
		c.metrics.observe(method, "error", time.Since(start))

		return nil, fmt.Errorf("%w: %s %s: %w", taxii2.ErrTransport, method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", taxii2.ErrTransport, err)
	}

	c.metrics.observe(method, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logResponse(resp, target, time.Since(start))

	if resp.StatusCode < constants.HTTPStatusOK || resp.StatusCode >= constants.HTTPStatusMultipleChoices {
		return nil, &taxii2.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        target,
			Body:       data,
		}
	}

	return &taxii2.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        target,
	}, nil
}

func encodeBody(opts *taxii2.RequestOptions) (interface{}, string, error) {
	switch {
	case opts.JSON != nil:
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request body: %w", err)
		}

		return bytes.NewReader(data), "application/json", nil
	case opts.Data != nil:
		return bytes.NewReader(opts.Data), "", nil
	default:
		return nil, "", nil
	}
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", taxii2.WrapError(taxii2.ErrInvalidArguments, err, "invalid url '%s'", rawURL)
	}

	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func (c *Client) logRequest(req *retryablehttp.Request) {
	if !c.debug {
		return
	}

	headers := make(map[string]string, len(req.Header))
	for key := range req.Header {
		headers[key] = req.Header.Get(key)
	}

	if _, ok := headers["Authorization"]; ok {
		headers["Authorization"] = "[REDACTED]"
	}

	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": headers,
	})
}

func (c *Client) logResponse(resp *http.Response, target string, duration time.Duration) {
	if !c.debug {
		return
	}

	c.logger.Debug("HTTP Response", map[string]interface{}{
		"status":       resp.StatusCode,
		"url":          target,
		"content_type": resp.Header.Get("Content-Type"),
		"duration":     duration.String(),
	})
}
