package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-memory-go/internal/leakcheck"
	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

// newConnectedPair wires two stdio transports back to back and starts both.
func newConnectedPair(t *testing.T, opts ...Option) (server, client *StdioTransport) {
	t.Helper()
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()

	server = NewStdioTransport(c2sR, s2cW, opts...)
	client = NewStdioTransport(s2cR, c2sW, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = server.Start(ctx) }()
	go func() { _ = client.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = client.Stop(context.Background())
		_ = server.Stop(context.Background())
		_ = c2sW.Close()
		_ = s2cW.Close()
	})
	return server, client
}

// newDrivenServer starts a server transport whose input and output the test drives directly.
func newDrivenServer(t *testing.T) (*StdioTransport, io.Writer, *bufio.Reader) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	server := NewStdioTransport(inR, outW)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = server.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = server.Stop(context.Background())
		_ = inW.Close()
		_ = outR.Close()
	})
	return server, inW, bufio.NewReader(outR)
}

func readResponse(t *testing.T, r *bufio.Reader) map[string]interface{} {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &msg))
	return msg
}

func TestStdioRequestRoundTrip(t *testing.T) {
	server, client := newConnectedPair(t)
	server.RegisterRequestHandler("echo", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p map[string]interface{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return p, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, "echo", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, protocol.JSONRPCVersion, resp.JSONRPC)
	assert.JSONEq(t, `{"text":"hi"}`, string(resp.Result))
}

func TestStdioConcurrentRequestsAreCorrelated(t *testing.T) {
	server, client := newConnectedPair(t)
	server.RegisterRequestHandler("double", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var n float64
		if err := json.Unmarshal(params, &n); err != nil {
			return nil, err
		}
		return n * 2, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		in  float64
		out string
		err error
	}
	results := make(chan result, 10)
	for i := 0; i < 10; i++ {
		go func(n float64) {
			resp, err := client.SendRequest(ctx, "double", n)
			if err != nil {
				results <- result{in: n, err: err}
				return
			}
			results <- result{in: n, out: string(resp.Result)}
		}(float64(i))
	}

	for i := 0; i < 10; i++ {
		r := <-results
		require.NoError(t, r.err)
		var got float64
		require.NoError(t, json.Unmarshal([]byte(r.out), &got))
		assert.Equal(t, r.in*2, got)
	}
}

func TestStdioHandlerErrorKeepsCode(t *testing.T) {
	server, client := newConnectedPair(t)
	server.RegisterRequestHandler("strict", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, mcperrors.InvalidRequest("Text argument is required")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.SendRequest(ctx, "strict", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))

	mcpErr, ok := mcperrors.AsMCPError(err)
	require.True(t, ok)
	assert.Equal(t, "Text argument is required", mcpErr.Message())
	assert.Equal(t, "strict", mcpErr.Context().Method)
}

func TestStdioUnknownMethod(t *testing.T) {
	_, client := newConnectedPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.SendRequest(ctx, "tools/frobnicate", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeMethodNotFound))
	mcpErr, _ := mcperrors.AsMCPError(err)
	assert.Equal(t, "Method not found: tools/frobnicate", mcpErr.Message())
}

func TestStdioHandlerPanicBecomesInternalError(t *testing.T) {
	server, client := newConnectedPair(t)
	server.RegisterRequestHandler("explode", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		panic("kaboom")
	})
	server.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return struct{}{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.SendRequest(ctx, "explode", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInternalError))

	resp, err := client.SendRequest(ctx, "ping", nil)
	require.NoError(t, err, "the loop keeps serving after a panic")
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestStdioNotification(t *testing.T) {
	server, client := newConnectedPair(t)
	got := make(chan string, 1)
	server.RegisterNotificationHandler("notifications/initialized", func(ctx context.Context, params json.RawMessage) error {
		got <- "initialized"
		return nil
	})

	require.NoError(t, client.SendNotification(context.Background(), "notifications/unknown", nil))
	require.NoError(t, client.SendNotification(context.Background(), "notifications/initialized", nil))

	select {
	case name := <-got:
		assert.Equal(t, "initialized", name)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestStdioMalformedLineGetsParseError(t *testing.T) {
	server, in, out := newDrivenServer(t)
	server.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return struct{}{}, nil
	})

	_, err := io.WriteString(in, "{not json\n")
	require.NoError(t, err)

	msg := readResponse(t, out)
	assert.Equal(t, "2.0", msg["jsonrpc"])
	assert.Contains(t, msg, "id")
	assert.Nil(t, msg["id"])
	errObj := msg["error"].(map[string]interface{})
	assert.Equal(t, float64(protocol.ParseError), errObj["code"])

	_, err = io.WriteString(in, `{"jsonrpc":"2.0","id":7,"method":"ping"}`+"\n")
	require.NoError(t, err)
	msg = readResponse(t, out)
	assert.Equal(t, float64(7), msg["id"])
	assert.Equal(t, map[string]interface{}{}, msg["result"])
}

func TestStdioInvalidMessageGetsInvalidRequest(t *testing.T) {
	_, in, out := newDrivenServer(t)

	_, err := io.WriteString(in, `{"jsonrpc":"2.0"}`+"\n")
	require.NoError(t, err)

	msg := readResponse(t, out)
	errObj := msg["error"].(map[string]interface{})
	assert.Equal(t, float64(protocol.InvalidRequest), errObj["code"])
}

func TestStdioRequestTimeout(t *testing.T) {
	silent, _ := io.Pipe()
	client := NewStdioTransport(silent, io.Discard, WithRequestTimeout(50*time.Millisecond))

	_, err := client.SendRequest(context.Background(), "ping", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionTimeout))
}

func TestStdioStopFailsPendingRequests(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	client := NewStdioTransport(reader, io.Discard)
	go func() { _ = client.Start(context.Background()) }()

	errCh := make(chan error, 1)
	go func() {
		_, err := client.SendRequest(context.Background(), "ping", nil)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, client.Stop(context.Background()))

	select {
	case err := <-errCh:
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionLost))
	case <-time.After(5 * time.Second):
		t.Fatal("pending request not released by Stop")
	}

	_, err := client.SendRequest(context.Background(), "ping", nil)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionLost))
}

func TestStdioStartReturnsOnEOF(t *testing.T) {
	tr := NewStdioTransport(strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n"), io.Discard)

	done := make(chan error, 1)
	go func() { done <- tr.Start(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return at EOF")
	}
}

func TestStdioSendWritesLine(t *testing.T) {
	var buf strings.Builder
	tr := NewStdioTransport(strings.NewReader(""), &buf)

	require.NoError(t, tr.Send([]byte(`{"jsonrpc":"2.0","method":"ping"}`)))
	assert.Equal(t, `{"jsonrpc":"2.0","method":"ping"}`+"\n", buf.String())
}

func TestStdioStopReleasesGoroutines(t *testing.T) {
	leaks := leakcheck.Start(t)

	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	server := NewStdioTransport(c2sR, s2cW)
	client := NewStdioTransport(s2cR, c2sW)
	server.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return struct{}{}, nil
	})

	serverDone := make(chan error, 1)
	clientDone := make(chan error, 1)
	go func() { serverDone <- server.Start(context.Background()) }()
	go func() { clientDone <- client.Start(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.SendRequest(ctx, "ping", nil)
	require.NoError(t, err)

	require.NoError(t, client.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()))
	_ = c2sW.Close()
	_ = s2cW.Close()

	for _, done := range []chan error{serverDone, clientDone} {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Start did not return after Stop")
		}
	}

	leaks.Verify()
}
