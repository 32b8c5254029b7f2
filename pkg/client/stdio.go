package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

// processExitTimeout is how long Close waits for a spawned server before killing it
const processExitTimeout = 5 * time.Second

// NewStdioClient creates a client that reads responses from reader and
// writes requests to writer, one JSON message per line.
func NewStdioClient(reader io.Reader, writer io.Writer, options ...Option) *Client {
	c := newClient(options...)
	opts := append([]transport.Option{transport.WithLogger(c.logger)}, c.transportOpts...)
	c.transport = transport.NewStdioTransport(reader, writer, opts...)

	if closer, ok := writer.(io.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}
	return c
}

// NewCommandClient spawns name with args as an MCP server and talks to it
// over its stdin and stdout. The server's stderr is passed through. Close
// ends the server's input and waits for it to exit.
func NewCommandClient(ctx context.Context, name string, args []string, options ...Option) (*Client, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server %q: %w", name, err)
	}

	c := NewStdioClient(stdout, stdin, options...)
	c.logger.Debug("Spawned server process",
		logging.String("command", name),
		logging.Int("pid", cmd.Process.Pid))
	c.closers = append(c.closers, func() error {
		return waitProcess(cmd, processExitTimeout)
	})
	return c, nil
}

// waitProcess waits for cmd to exit, killing it after timeout
func waitProcess(cmd *exec.Cmd, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && !exitErr.Exited() {
			// Killed by a signal after the client went away
			return nil
		}
		return err
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("server process did not exit within %s", timeout)
	}
}
