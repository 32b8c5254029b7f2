// Package mcp is the root of the memory MCP server module. It re-exports the
// constructors and options of the sub-packages:
//
//   - pkg/server: tool and resource registries, dispatcher, stdio and HTTP serving
//   - pkg/client: client, command client and the demo flow
//   - pkg/transport: stdio and HTTP transports with request correlation
//   - pkg/protocol: JSON-RPC 2.0 messages and MCP method types
//   - pkg/schema: tool input shapes and validation
//   - pkg/store: the in-memory key-value store
//   - pkg/errors: MCPError and JSON-RPC error mapping
//   - pkg/logging, pkg/config, pkg/observability: ambient infrastructure
//
// # Serving over stdio
//
//	t := mcp.NewStdioTransport(os.Stdin, os.Stdout)
//	srv, err := mcp.NewServer(t, mcp.WithServerName("tsMCP"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Connecting a Client
//
//	c, err := mcp.NewCommandClient(ctx, "memserver", []string{"serve"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//	if err := mcp.RunDemo(ctx, c, os.Stdout); err != nil {
//		log.Fatal(err)
//	}
//
// The memserver and memclient commands under cmd/ wire these pieces to a
// YAML configuration file.
package mcp
