// Package transport moves JSON-RPC 2.0 messages between an MCP client and server.
//
// # Supported Transport Types
//
// StdioTransport:
//   - newline-delimited JSON over a reader and a writer
//   - incoming requests are handled sequentially, in arrival order
//   - malformed lines are answered with ParseError and a null id
//
// HTTPTransport:
//   - client side of the POST /mcp endpoint
//   - one HTTP round trip per message; notifications are answered with 202
//
// # Request Correlation
//
// BaseTransport keeps the handler maps and the pending-response table
// shared by both transports. Outgoing request ids are UUIDs. A pending
// entry is registered before the request is written, and every pending
// request fails with ConnectionLost when the transport stops.
//
// Usage:
//
//	t := transport.NewStdioTransport(os.Stdin, os.Stdout,
//		transport.WithLogger(logger),
//		transport.WithRequestTimeout(30*time.Second))
//	t.RegisterRequestHandler("ping", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
//		return struct{}{}, nil
//	})
//	if err := t.Start(ctx); err != nil {
//		return err
//	}
package transport
