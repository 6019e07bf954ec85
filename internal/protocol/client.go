// Package protocol implements the console's HTTP fetch layer. Failed requests
// come back as *errors.HTTPError values that already carry the status, trace
// ID and display message.
package protocol

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
)

// DefaultRequestTimeout bounds a request when the caller sets no timeout.
const DefaultRequestTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Response represents the processed HTTP response
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// Client performs requests against the backend.
type Client struct {
	httpClient *http.Client
	handler    *errors.Handler
	logger     *logging.Logger
	userAgent  string
}

// NewClient creates a new client. A non-positive timeout selects the default.
func NewClient(timeout time.Duration, handler *errors.Handler, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = logging.GetProbeLogger()
	}
	if handler == nil {
		handler = errors.NewHandler(logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		handler:   handler,
		logger:    logger,
		userAgent: "Cortex-Console/1.0",
	}
}

// Get fetches rawURL. Statuses of 400 and above return an *errors.HTTPError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	propagation.TraceContext{}.Inject(withTrace(ctx), propagation.HeaderCarrier(req.Header))

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("Request failed", "url", rawURL, "error", err.Error(), "duration", duration)
		return nil, fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("HTTP request completed",
		"method", http.MethodGet,
		"url", rawURL,
		"status_code", resp.StatusCode,
		"duration", duration)

	if resp.StatusCode >= 400 {
		return nil, c.handler.ResponseError(resp, body)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string),
		Body:       body,
		Duration:   duration,
	}
	for key, values := range resp.Header {
		if len(values) > 0 {
			out.Headers[key] = values[0]
		}
	}
	return out, nil
}

// withTrace returns ctx unchanged when it already carries a span context and
// otherwise starts a new trace, so every request can be correlated with the
// backend's logs.
func withTrace(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	spanSeed := uuid.New()
	var spanID trace.SpanID
	copy(spanID[:], spanSeed[:8])
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(uuid.New()),
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(ctx, sc)
}

func validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}
