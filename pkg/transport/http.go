package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

// RequestIDHeader carries a per-request correlation id over HTTP
const RequestIDHeader = "X-Request-ID"

// HTTPTransport is the client side of the POST /mcp endpoint: every
// message is one HTTP request and a response, if any, comes back in the
// HTTP response body.
type HTTPTransport struct {
	*BaseTransport
	endpoint string
	client   *http.Client
	headers  map[string]string
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// NewHTTPTransport creates a transport posting to endpoint, e.g. http://127.0.0.1:8080/mcp
func NewHTTPTransport(endpoint string, opts ...Option) *HTTPTransport {
	base := NewBaseTransport("http", opts...)
	return &HTTPTransport{
		BaseTransport: base,
		endpoint:      endpoint,
		client:        &http.Client{Timeout: base.opts.requestTimeout},
		headers:       make(map[string]string),
		done:          make(chan struct{}),
	}
}

// SetHeader sets a HTTP header for all requests
func (t *HTTPTransport) SetHeader(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.headers[key] = value
}

// Initialize is a no-op; connections are made per request.
func (t *HTTPTransport) Initialize(ctx context.Context) error {
	return nil
}

// Start blocks until Stop or ctx cancellation. HTTP has no receive loop:
// responses arrive synchronously with each POST.
func (t *HTTPTransport) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-t.done:
	}
	return nil
}

// Stop fails outstanding requests and releases idle connections
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() {
		close(t.done)
		t.Cleanup()
		t.client.CloseIdleConnections()
	})
	return nil
}

// Send posts one message with a background context. A request must be
// answered in the HTTP response body.
func (t *HTTPTransport) Send(data []byte) error {
	return t.post(context.Background(), data, protocol.IsRequest(data))
}

// SendRequest posts a request and returns the response carried in the HTTP reply
func (t *HTTPTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	return t.RoundTrip(ctx, method, params, func(data []byte) error {
		return t.post(ctx, data, true)
	})
}

// SendNotification posts a notification; the server answers 202 with no body
func (t *HTTPTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	data, err := EncodeNotification(method, params)
	if err != nil {
		return err
	}
	return t.post(ctx, data, false)
}

// post sends data and feeds any JSON-RPC response in the reply back to the
// pending request. With expectResponse set, a reply without a body is an error.
func (t *HTTPTransport) post(ctx context.Context, data []byte, expectResponse bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return mcperrors.TransportError("http", "build_request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	t.mu.Lock()
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	t.mu.Unlock()

	resp, err := t.client.Do(req)
	if err != nil {
		return mcperrors.TransportError("http", "send_request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcperrors.TransportError("http", "read_response", err)
	}

	empty := len(bytes.TrimSpace(body)) == 0
	switch {
	case empty && expectResponse:
		return mcperrors.TransportError("http", "read_response",
			fmt.Errorf("status %d with no response body", resp.StatusCode))
	case empty:
		return nil
	case resp.StatusCode >= 300 && !protocol.IsResponse(body):
		return mcperrors.TransportError("http", "send_request",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	var rpcResp protocol.Response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return mcperrors.TransportError("http", "decode_response", err)
	}
	t.HandleResponse(&rpcResp)
	return nil
}
