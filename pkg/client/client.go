// Package client provides the single-shot HTTP request executor used by the
// post collector. It sends exactly one request per call, returns the status and
// body text for every status code, and classifies transport failures.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Prometheus metrics for executor operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postfeed_requests_total",
		Help: "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postfeed_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	transportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postfeed_transport_errors_total",
		Help: "Total transport-level failures by class",
	}, []string{"class"})

	truncatedBodiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_truncated_bodies_total",
		Help: "Total responses whose body was shorter than advertised",
	})
)

const contentTypeJSON = "application/json; charset=utf-8"

// Client executes HTTP requests.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request unless overridden per request.
	UserAgent string

	// Timeout bounds a single call. Zero means no timeout.
	// Request.Timeout takes precedence when set.
	Timeout time.Duration

	// Transport is the underlying round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	logger := log.With().Str("component", "http-client").Logger()

	return &Client{
		httpClient: &http.Client{
			// Per-call timeouts are applied through the request context.
			Transport: otelhttp.NewTransport(base),
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Request describes a single HTTP call.
type Request struct {
	Method string
	URL    string

	// Params are appended to URL as a query string, in order.
	Params Params

	Headers map[string]string

	// Body is sent unmodified when it is a []byte. Any other non-nil value is
	// encoded as JSON and Content-Type defaults to application/json.
	Body any

	// Timeout overrides Config.Timeout for this call.
	Timeout time.Duration
}

// Response is the outcome of a successful round trip, whatever its status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string

	// Truncated is set when the transport delivered fewer bytes than
	// advertised. Body then holds the bytes that did arrive.
	Truncated bool
}

// IsOK reports whether the status is exactly 200.
func (r *Response) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// Execute sends exactly one request and returns its status and body text.
// Non-2xx statuses are returned as data; only transport failures produce a
// *TransportError.
func (c *Client) Execute(ctx context.Context, r Request) (*Response, error) {
	target := r.URL
	if len(r.Params) > 0 {
		target = r.Params.AppendTo(target)
	}

	body, isJSON, err := encodeBody(r.Body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	timeout := c.config.Timeout
	if r.Timeout > 0 {
		timeout = r.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for name, value := range r.Headers {
		req.Header.Set(name, value)
	}
	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("method", r.Method).
		Str("url", target).
		Msg("Sending request")

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tErr := newTransportError(r.Method, target, err)
		transportErrorsTotal.WithLabelValues(string(tErr.Class)).Inc()
		requestsTotal.WithLabelValues(r.Method, "transport_error").Inc()
		c.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("url", target).
			Str("error_class", string(tErr.Class)).
			Msg("HTTP request failed")
		return nil, tErr
	}
	defer resp.Body.Close()

	data, truncated, err := readBody(resp.Body)
	if err != nil {
		tErr := newTransportError(r.Method, target, err)
		transportErrorsTotal.WithLabelValues(string(tErr.Class)).Inc()
		requestsTotal.WithLabelValues(r.Method, "transport_error").Inc()
		c.logger.Error().
			Err(err).
			Str("url", target).
			Int("status", resp.StatusCode).
			Msg("Reading response body failed")
		return nil, tErr
	}

	if truncated {
		truncatedBodiesTotal.Inc()
		c.logger.Warn().
			Str("url", target).
			Int("received_bytes", len(data)).
			Int64("content_length", resp.ContentLength).
			Msg("Response body truncated, using partial body")
	}

	requestsTotal.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("body", string(data)).
		Msg("Received response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(data),
		Truncated:  truncated,
	}, nil
}

// Get performs a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, url string, params Params) (*Response, error) {
	return c.Execute(ctx, Request{
		Method: http.MethodGet,
		URL:    url,
		Params: params,
	})
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// readBody reads the full body. A short read against the advertised length
// is reported as truncated with the bytes received so far.
func readBody(r io.Reader) ([]byte, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return data, true, nil
		}
		return nil, false, err
	}
	return data, false, nil
}
