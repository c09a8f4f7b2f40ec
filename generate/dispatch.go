package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Paranoid-AF/codelet/stream"
)

// CompletionRequest is the body POSTed to the generate endpoint.
type CompletionRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
	Prompt string `json:"prompt"`
}

// TransportError reports a request that failed before streaming began:
// the server was unreachable, timed out, or answered with a non-2xx status.
type TransportError struct {
	Endpoint   string
	StatusCode int    // zero when no response was received
	Message    string // server-provided error text, if any
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("POST %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("POST %s: status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("POST %s: %v", e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Response is an open streaming response. The caller must close Body.
type Response struct {
	ID          string
	Body        io.ReadCloser
	ContentType string
}

// Dispatcher sends completion requests to an Ollama-style generate endpoint.
type Dispatcher struct {
	client   *http.Client
	endpoint string
	model    string
}

// NewDispatcher creates a dispatcher that sends every request through client.
func NewDispatcher(client *http.Client, endpoint, model string) *Dispatcher {
	return &Dispatcher{
		client:   client,
		endpoint: endpoint,
		model:    model,
	}
}

// NewHTTPClient returns a client suited to streaming responses. timeout
// bounds the whole exchange, body included; zero means no timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	transport.MaxIdleConnsPerHost = 2
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Endpoint returns the URL requests are sent to.
func (d *Dispatcher) Endpoint() string { return d.endpoint }

// Model returns the model identifier sent with each request.
func (d *Dispatcher) Model() string { return d.model }

// Dispatch sends one completion request and returns the unread response body.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (*Response, error) {
	data, err := json.Marshal(CompletionRequest{
		Model:  d.model,
		Stream: true,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Endpoint: d.endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	id := uuid.NewString()
	slog.Debug("dispatch", "id", id, "endpoint", d.endpoint, "model", d.model, "prompt_bytes", len(prompt))

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: d.endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		terr := &TransportError{
			Endpoint:   d.endpoint,
			StatusCode: resp.StatusCode,
			Message:    serverErrorMessage(body),
		}
		terr.Err = fmt.Errorf("unexpected status %s", resp.Status)
		return nil, terr
	}

	slog.Debug("streaming", "id", id, "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"))

	return &Response{
		ID:          id,
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Complete dispatches prompt and accumulates the streamed response.
// Transport failures are returned as *TransportError; a stream that breaks
// mid-way returns the read error unchanged.
func (d *Dispatcher) Complete(ctx context.Context, prompt string) (string, stream.Stats, error) {
	resp, err := d.Dispatch(ctx, prompt)
	if err != nil {
		return "", stream.Stats{}, err
	}
	defer resp.Body.Close()

	logger := slog.Default().With("id", resp.ID)
	text, stats, err := stream.Consume(
		stream.NewDecodingReader(resp.Body, resp.ContentType),
		stream.WithLogger(logger),
	)
	if err != nil {
		return "", stats, err
	}
	logger.Debug("stream ended",
		"lines", stats.Lines,
		"fragments", stats.Fragments,
		"skipped", stats.SkippedLines,
		"done", stats.Done,
	)
	return text, stats, nil
}

// serverErrorMessage extracts {"error": "..."} from an error body, falling
// back to the trimmed body text.
func serverErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
