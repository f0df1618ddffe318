// Package backend holds the HTTP plumbing shared by the collaborator clients:
// traced requests against a base URL and decoding of the backend's error body.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "idcard/pkg/domain-errors"
)

const maxErrorBody = 64 << 10

// Client issues requests to one backend.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

// New returns a Client for baseURL. A nil httpClient gets one with timeout.
func New(baseURL string, timeout time.Duration, httpClient *http.Client, tracerName string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, http: httpClient, tracer: otel.Tracer(tracerName)}
}

// PostJSON sends body as JSON. out, when non-nil, receives the decoded
// success body.
func (c *Client) PostJSON(ctx context.Context, op, path string, body, out any, code dErrors.Code) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	return c.Post(ctx, op, path, "application/json", bytes.NewReader(payload), out, code)
}

// Post sends a request body of the given content type. Non-2xx answers are
// returned as domain errors carrying code and the backend's message.
func (c *Client) Post(ctx context.Context, op, path, contentType string, body io.Reader, out any, code dErrors.Code) error {
	ctx, span := c.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fail(span, fmt.Errorf("create %s request: %w", op, err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(span, fmt.Errorf("%s request failed: %w", op, err))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(span, statusError(resp, code))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fail(span, fmt.Errorf("decode %s response: %w", op, err))
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusError turns a failed answer into a coded error. The message is the
// backend's own when it sent one.
func statusError(resp *http.Response, code dErrors.Code) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	cause := fmt.Errorf("backend returned status %d", resp.StatusCode)
	switch {
	case body.Message != "":
		return dErrors.Wrap(cause, code, body.Message)
	case body.Error != "":
		return dErrors.Wrap(cause, code, body.Error)
	default:
		return cause
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
