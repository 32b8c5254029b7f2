// Command memclient connects to a memory MCP server and runs the demo flow.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-memory-go/pkg/client"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/server"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

var (
	serverCommand string
	inProcess     bool
	serverURL     string
	timeout       time.Duration
	logLevel      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "memclient",
		Short:        "Exercise a memory MCP server",
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&serverCommand, "server", "memserver serve", "command that starts the server on stdio")
	rootCmd.Flags().BoolVar(&inProcess, "in-process", false, "run the server inside this process")
	rootCmd.Flags().StringVar(&serverURL, "url", "", "MCP endpoint of a server running with the http transport")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Client error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logging.NewTextFormatter())
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connect(ctx, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	demoErr := client.RunDemo(ctx, c, out)
	closeErr := c.Close()
	fmt.Fprintln(out, "\nClient disconnected")

	return errors.Join(demoErr, closeErr)
}

func connect(ctx context.Context, logger logging.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTransportOptions(transport.WithRequestTimeout(timeout)),
	}

	switch {
	case serverURL != "":
		t := transport.NewHTTPTransport(serverURL,
			transport.WithLogger(logger),
			transport.WithRequestTimeout(timeout))
		return client.New(t, opts...), nil

	case inProcess:
		return connectInProcess(ctx, logger, opts)

	default:
		fields := strings.Fields(serverCommand)
		if len(fields) == 0 {
			return nil, errors.New("--server must name a command")
		}
		return client.NewCommandClient(ctx, fields[0], fields[1:], opts...)
	}
}

// connectInProcess runs a full server on one end of a pipe pair
func connectInProcess(ctx context.Context, logger logging.Logger, opts []client.Option) (*client.Client, error) {
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()

	srv, err := server.New(transport.NewStdioTransport(c2sR, s2cW, transport.WithLogger(logger)),
		server.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.WithError(err).Warn("In-process server stopped")
		}
		_ = s2cW.Close()
	}()

	return client.NewStdioClient(s2cR, c2sW, opts...), nil
}
