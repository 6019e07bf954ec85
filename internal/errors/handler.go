package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-station/cortex/internal/logging"
)

// maxBodyMessage bounds how much of an unstructured response body becomes the
// displayed message.
const maxBodyMessage = 200

// Headers searched, in order, for a correlation identifier.
const (
	HeaderTraceID     = "X-Trace-Id"
	HeaderTraceparent = "Traceparent"
	HeaderRequestID   = "X-Request-Id"
)

var traceContext = propagation.TraceContext{}

var chaosMessagePattern = regexp.MustCompile(`\[Chaos Engineering\]\s*(.+)`)

// StatusCoder is implemented by failures that know their HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// TraceCarrier is implemented by failures that carry a correlation identifier.
type TraceCarrier interface {
	TraceID() string
}

// HTTPError is a rejected request as seen by the console.
type HTTPError struct {
	StatusCode int
	Trace      string
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("http %d: %s: %v", e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Unwrap provides access to the underlying error
func (e *HTTPError) Unwrap() error { return e.Cause }

func (e *HTTPError) HTTPStatus() int { return e.StatusCode }
func (e *HTTPError) TraceID() string { return e.Trace }

// Description returns the presentable form of e.
func (e *HTTPError) Description() Description {
	return Description{Message: e.Message, TraceID: e.Trace, Status: e.StatusCode}
}

// Handler normalizes failures coming out of the data-fetch layer into
// Descriptions for the presenter.
type Handler struct {
	logger *logging.Logger
}

// NewHandler creates a new error handler. A nil logger falls back to the
// global one.
func NewHandler(logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger().WithComponent("errors")
	}
	return &Handler{logger: logger}
}

// Normalize turns any failure into a Description. A nil error yields the zero
// Description, which callers must not present.
func (h *Handler) Normalize(err error) Description {
	if err == nil {
		return Description{}
	}

	d := Description{Message: err.Error()}

	var httpErr *HTTPError
	if goerrors.As(err, &httpErr) && httpErr.Message != "" {
		d.Message = httpErr.Message
	}

	var sc StatusCoder
	if goerrors.As(err, &sc) {
		d.Status = sc.HTTPStatus()
	}

	var tc TraceCarrier
	if goerrors.As(err, &tc) {
		d.TraceID = strings.TrimSpace(tc.TraceID())
	}

	if !d.HasStatus() {
		var netErr net.Error
		switch {
		case goerrors.Is(err, context.DeadlineExceeded):
			d.Message = "request timed out"
		case goerrors.Is(err, context.Canceled):
			d.Message = "request cancelled"
		case goerrors.As(err, &netErr) && netErr.Timeout():
			d.Message = "request timed out"
		}
	}

	if strings.TrimSpace(d.Message) == "" {
		d.Message = "unexpected error"
	}

	h.logger.Debug("Normalized failure",
		"status", d.Status,
		"trace_id", d.TraceID,
		"category", Classify(d).String())

	return d
}

// FromResponse builds a Description from a failed HTTP response.
func (h *Handler) FromResponse(status int, header http.Header, body []byte) Description {
	fields := parseBody(body)

	message := fields.message
	if message == "" {
		message = bodyText(body)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
		if text := http.StatusText(status); text != "" {
			message = fmt.Sprintf("HTTP %d: %s", status, text)
		}
	}

	traceID := traceFromHeader(header)
	if traceID == "" {
		traceID = fields.traceID
	}

	return Description{
		Message: chaosMessage(message),
		TraceID: traceID,
		Status:  status,
	}
}

// ResponseError wraps a failed response as an *HTTPError.
func (h *Handler) ResponseError(resp *http.Response, body []byte) *HTTPError {
	d := h.FromResponse(resp.StatusCode, resp.Header, body)
	return &HTTPError{
		StatusCode: d.Status,
		Trace:      d.TraceID,
		Message:    d.Message,
	}
}

type bodyFields struct {
	message string
	traceID string
}

// parseBody understands the flat Spring-style body ({"message": ...}) and the
// console envelope ({"error": {"message": ...}}).
func parseBody(body []byte) bodyFields {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return bodyFields{}
	}

	var fields bodyFields
	if msg, ok := raw["message"].(string); ok {
		fields.message = strings.TrimSpace(msg)
	}

	switch e := raw["error"].(type) {
	case string:
		if fields.message == "" {
			fields.message = strings.TrimSpace(e)
		}
	case map[string]interface{}:
		if msg, ok := e["message"].(string); ok && fields.message == "" {
			fields.message = strings.TrimSpace(msg)
		}
		if id, ok := e["traceId"].(string); ok {
			fields.traceID = strings.TrimSpace(id)
		}
	}

	for _, key := range []string{"traceId", "trace_id"} {
		if id, ok := raw[key].(string); ok && strings.TrimSpace(id) != "" {
			fields.traceID = strings.TrimSpace(id)
			break
		}
	}

	return fields
}

// bodyText returns a non-JSON body as a bounded message.
func bodyText(body []byte) string {
	if json.Valid(body) {
		return ""
	}
	text := strings.TrimSpace(string(body))
	runes := []rune(text)
	if len(runes) > maxBodyMessage {
		return string(runes[:maxBodyMessage]) + "..."
	}
	return text
}

func traceFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	if id := strings.TrimSpace(header.Get(HeaderTraceID)); id != "" {
		return id
	}
	if id := traceparentID(header); id != "" {
		return id
	}
	return strings.TrimSpace(header.Get(HeaderRequestID))
}

// traceparentID extracts the trace-id segment of a valid W3C traceparent
// header. Malformed headers yield "".
func traceparentID(header http.Header) string {
	ctx := traceContext.Extract(context.Background(), propagation.HeaderCarrier(header))
	sc := trace.SpanContextFromContext(ctx)
	if !sc.TraceID().IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// chaosMessage keeps only the tag and the injected detail of fault-injection
// messages.
func chaosMessage(message string) string {
	if m := chaosMessagePattern.FindStringSubmatch(message); m != nil {
		return "[Chaos Engineering] " + strings.TrimSpace(m[1])
	}
	return message
}
