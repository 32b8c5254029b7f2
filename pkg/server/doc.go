// Package server implements the server side of the memory MCP server.
//
// The package provides:
//
//   - ToolRegistry and ResourceRegistry: named tools with validated input
//     shapes, and memory:// resources read from a store
//   - Dispatcher: tools/call and resources/read with error normalization
//   - Server: the initialize handshake and method routing over a transport
//   - HTTPHandler: a gin engine serving POST /mcp, /healthz and /metrics
//
// # Profiles
//
// ProfileFull registers calculate, echo, get_memory and set_memory together
// with memory://config and memory://data. ProfileExample registers a single
// echo tool and memory://example.
//
// # Error Normalization
//
// MethodNotFound and InvalidRequest reach the client unchanged. Validation
// failures, domain errors, plain errors and recovered panics from a tool
// are reported as InternalError with the original message.
//
// # Creating a Server
//
//	t := transport.NewStdioTransport(os.Stdin, os.Stdout)
//	srv, err := server.New(t,
//		server.WithLogger(logger),
//		server.WithMetrics(metrics))
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx)
//
// The same server answers HTTP clients through srv.HTTPHandler or
// srv.ListenAndServe.
package server
