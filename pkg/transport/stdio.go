package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

// maxLineSize bounds a single newline-delimited message
const maxLineSize = 10 * 1024 * 1024

// StdioTransport exchanges newline-delimited JSON-RPC messages over a
// reader and a writer, typically a process's stdin and stdout.
// Incoming requests are handled one at a time in arrival order.
type StdioTransport struct {
	*BaseTransport
	reader   io.Reader
	writer   *bufio.Writer
	mutex    sync.Mutex // guards writer
	done     chan struct{}
	stopOnce sync.Once
}

// NewStdioTransport creates a transport reading from reader and writing to writer
func NewStdioTransport(reader io.Reader, writer io.Writer, opts ...Option) *StdioTransport {
	return &StdioTransport{
		BaseTransport: NewBaseTransport("stdio", opts...),
		reader:        reader,
		writer:        bufio.NewWriter(writer),
		done:          make(chan struct{}),
	}
}

// Initialize is a no-op: the streams are ready when the transport is created.
func (t *StdioTransport) Initialize(ctx context.Context) error {
	return nil
}

// Start reads messages until EOF, Stop or ctx cancellation. Pending
// requests fail with ConnectionLost once the loop exits.
func (t *StdioTransport) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)
		defer t.Cleanup()

		scanner := bufio.NewScanner(t.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return nil
			case <-t.done:
				return nil
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			data := make([]byte, len(line))
			copy(data, line)
			t.processMessage(gctx, data)
		}

		if err := scanner.Err(); err != nil && !t.stopped() && gctx.Err() == nil {
			return mcperrors.TransportError("stdio", "read_input", err).
				WithContext(&mcperrors.Context{Component: "StdioTransport", Operation: "scan_input"})
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-t.done:
		case <-scannerDone:
			return nil
		}
		// Unblock scanner.Scan
		if closer, ok := t.reader.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil
	})

	return g.Wait()
}

// Stop halts the receive loop and flushes pending output
func (t *StdioTransport) Stop(ctx context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mutex.Lock()
		flushErr = t.writer.Flush()
		t.mutex.Unlock()

		if closer, ok := t.reader.(io.Closer); ok {
			_ = closer.Close()
		}
		t.Cleanup()
	})

	if flushErr != nil {
		return mcperrors.TransportError("stdio", "stop", flushErr).
			WithContext(&mcperrors.Context{Component: "StdioTransport", Operation: "flush_on_stop"})
	}
	return nil
}

func (t *StdioTransport) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Send writes data followed by a newline and flushes
func (t *StdioTransport) Send(data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return mcperrors.TransportError("stdio", "send_message", err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return mcperrors.TransportError("stdio", "send_message", err)
	}
	if err := t.writer.Flush(); err != nil {
		return mcperrors.TransportError("stdio", "send_message", err)
	}
	return nil
}

// SendRequest sends a request and waits for the response
func (t *StdioTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	return t.RoundTrip(ctx, method, params, t.Send)
}

// SendNotification sends a notification (one-way message)
func (t *StdioTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	data, err := EncodeNotification(method, params)
	if err != nil {
		return err
	}
	return t.Send(data)
}

func (t *StdioTransport) processMessage(ctx context.Context, data []byte) {
	kind, err := protocol.Classify(data)
	if err != nil {
		t.reply(protocol.NewErrorResponse(nil, protocol.ParseError, mcperrors.ParseError(err).Message(), nil))
		return
	}

	switch kind {
	case protocol.KindRequest:
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			t.reply(protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Invalid Request", nil))
			return
		}
		t.reply(t.HandleRequest(ctx, &req))

	case protocol.KindResponse:
		var resp protocol.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.handleError(mcperrors.TransportError("stdio", "decode_response", err))
			return
		}
		t.HandleResponse(&resp)

	case protocol.KindNotification:
		var notif protocol.Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			t.handleError(mcperrors.TransportError("stdio", "decode_notification", err))
			return
		}
		if err := t.HandleNotification(ctx, &notif); err != nil {
			if errors.Is(err, ErrUnsupportedMethod) {
				t.logger.Debug("Ignoring notification for unregistered method", logging.String("method", notif.Method))
				return
			}
			t.handleError(err)
		}

	default:
		t.reply(protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Invalid Request", nil))
	}
}

func (t *StdioTransport) reply(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		t.handleError(mcperrors.TransportError("stdio", "encode_response", err))
		return
	}
	if err := t.Send(data); err != nil {
		t.handleError(err)
	}
}
