package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

// Transport defines the interface shared by every MCP transport.
type Transport interface {
	// Initialize prepares the transport for use
	Initialize(ctx context.Context) error

	// Start runs the receive loop. It blocks until the peer goes away,
	// Stop is called or ctx is canceled.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Send writes one encoded message to the peer
	Send(data []byte) error

	// SendRequest sends a request and waits for its response. A JSON-RPC
	// error in the response is returned as an MCPError.
	SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error)
	SendNotification(ctx context.Context, method string, params interface{}) error

	RegisterRequestHandler(method string, handler RequestHandler)
	RegisterNotificationHandler(method string, handler NotificationHandler)
}

// RequestHandler handles incoming requests
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler handles incoming notifications
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// ErrorHandler receives errors the receive loop cannot return to a caller
type ErrorHandler func(err error)

// Errors
var (
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrTransportClosed   = errors.New("transport closed")
)

type options struct {
	logger         logging.Logger
	requestTimeout time.Duration
	errorHandler   ErrorHandler
}

// Option configures a transport
type Option func(*options)

// WithLogger sets the logger used by the transport
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRequestTimeout bounds how long a handler may run and how long
// SendRequest waits for a response. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithErrorHandler sets the handler for errors raised by the receive loop
func WithErrorHandler(handler ErrorHandler) Option {
	return func(o *options) { o.errorHandler = handler }
}

func newOptions(opts ...Option) options {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BaseTransport provides request correlation and handler dispatch for
// transport implementations.
type BaseTransport struct {
	sync.RWMutex
	name                 string
	opts                 options
	logger               logging.Logger
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
	pendingRequests      map[string]chan *protocol.Response
	closed               bool
}

// NewBaseTransport creates a new BaseTransport. name identifies the transport in errors and logs.
func NewBaseTransport(name string, opts ...Option) *BaseTransport {
	o := newOptions(opts...)
	return &BaseTransport{
		name:                 name,
		opts:                 o,
		logger:               o.logger.WithFields(logging.String("component", "transport"), logging.String("transport", name)),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		pendingRequests:      make(map[string]chan *protocol.Response),
	}
}

// RegisterRequestHandler registers a handler for incoming requests
func (t *BaseTransport) RegisterRequestHandler(method string, handler RequestHandler) {
	t.Lock()
	defer t.Unlock()
	t.requestHandlers[method] = handler
}

// RegisterNotificationHandler registers a handler for incoming notifications
func (t *BaseTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	t.Lock()
	defer t.Unlock()
	t.notificationHandlers[method] = handler
}

// GenerateID generates a unique request ID
func (t *BaseTransport) GenerateID() string {
	return uuid.NewString()
}

// HandleRequest runs the handler registered for request.Method and always
// produces a response. Handler errors keep their JSON-RPC code; panics
// become InternalError.
func (t *BaseTransport) HandleRequest(ctx context.Context, request *protocol.Request) (resp *protocol.Response) {
	ctx = logging.ContextWithRequestID(ctx, fmt.Sprintf("%v", request.ID))
	if t.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.requestTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.WithContext(ctx).Error("Panic in request handler",
				logging.String("method", request.Method),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			resp = protocol.NewErrorResponse(request.ID, protocol.InternalError,
				fmt.Sprintf("Internal server error processing %s", request.Method), nil)
		}
	}()

	t.RLock()
	handler, ok := t.requestHandlers[request.Method]
	t.RUnlock()

	if !ok {
		return errorResponse(request.ID, mcperrors.UnknownMethod(request.Method))
	}

	result, err := handler(ctx, request.Params)
	if err != nil {
		return errorResponse(request.ID, err)
	}

	resp, err = protocol.NewResponse(request.ID, result)
	if err != nil {
		return errorResponse(request.ID, mcperrors.InternalError("failed to marshal result", err))
	}
	return resp
}

func errorResponse(id interface{}, err error) *protocol.Response {
	rpcErr := mcperrors.ToJSONRPCError(err)
	return protocol.NewErrorResponse(id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

// HandleNotification runs the handler registered for notification.Method.
// Unregistered methods yield ErrUnsupportedMethod.
func (t *BaseTransport) HandleNotification(ctx context.Context, notification *protocol.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error processing notification %s: %v", notification.Method, r)
		}
	}()

	t.RLock()
	handler, ok := t.notificationHandlers[notification.Method]
	t.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, notification.Method)
	}
	return handler(ctx, notification.Params)
}

// HandleResponse delivers a response to the SendRequest waiting on its id.
// Responses nobody waits for are dropped.
func (t *BaseTransport) HandleResponse(response *protocol.Response) {
	key := fmt.Sprintf("%v", response.ID)

	t.Lock()
	ch, ok := t.pendingRequests[key]
	if ok {
		delete(t.pendingRequests, key)
	}
	t.Unlock()

	if !ok {
		t.logger.Debug("Dropping response without pending request", logging.String("id", key))
		return
	}
	ch <- response
}

// RoundTrip registers a pending request, hands the encoded request to send
// and waits for the matching response. The pending entry exists before
// send is called, so a fast peer cannot answer ahead of the registration.
func (t *BaseTransport) RoundTrip(ctx context.Context, method string, params interface{}, send func([]byte) error) (*protocol.Response, error) {
	id := t.GenerateID()
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, mcperrors.InvalidParams(method, err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, mcperrors.InvalidParams(method, err)
	}

	ch := make(chan *protocol.Response, 1)
	t.Lock()
	if t.closed {
		t.Unlock()
		return nil, mcperrors.ConnectionLost(t.name, ErrTransportClosed)
	}
	t.pendingRequests[id] = ch
	t.Unlock()

	if t.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.requestTimeout)
		defer cancel()
	}

	if err := send(data); err != nil {
		t.forget(id)
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, mcperrors.ConnectionLost(t.name, ErrTransportClosed)
		}
		if resp.Error != nil {
			return resp, mcperrors.WithRequestContext(mcperrors.FromJSONRPCError(resp.Error), method, id)
		}
		return resp, nil
	case <-ctx.Done():
		t.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && t.opts.requestTimeout > 0 {
			return nil, mcperrors.ResponseTimeout(t.name, id, t.opts.requestTimeout)
		}
		return nil, ctx.Err()
	}
}

func (t *BaseTransport) forget(id string) {
	t.Lock()
	delete(t.pendingRequests, id)
	t.Unlock()
}

// EncodeNotification builds the wire form of a notification
func EncodeNotification(method string, params interface{}) ([]byte, error) {
	notification, err := protocol.NewNotification(method, params)
	if err != nil {
		return nil, fmt.Errorf("error creating notification: %w", err)
	}
	return json.Marshal(notification)
}

// Cleanup fails every pending request with ConnectionLost and rejects new ones.
func (t *BaseTransport) Cleanup() {
	t.Lock()
	defer t.Unlock()

	t.closed = true
	for id, ch := range t.pendingRequests {
		close(ch)
		delete(t.pendingRequests, id)
	}
}

func (t *BaseTransport) handleError(err error) {
	if t.opts.errorHandler != nil {
		t.opts.errorHandler(err)
		return
	}
	t.logger.WithError(err).Warn("Transport error")
}
