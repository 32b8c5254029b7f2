// Package client provides the client side of the memory MCP server.
//
// A Client wraps a transport, performs the initialize handshake and
// exposes the server's tools and resources:
//
//   - ListTools and CallTool
//   - ListResources and ReadResource
//   - Ping
//
// Errors returned by the server come back as MCPError values, so callers
// can branch on the JSON-RPC code with errors.IsCode.
//
// # Creating a Client
//
// To spawn a server process and talk to it over stdio:
//
//	c, err := client.NewCommandClient(ctx, "memserver", []string{"serve"},
//		client.WithTransportOptions(transport.WithRequestTimeout(30*time.Second)))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Initialize(ctx); err != nil {
//		return err
//	}
//	result, err := c.CallTool(ctx, "echo", map[string]interface{}{"text": "hi"})
//
// NewStdioClient does the same over any reader and writer, and New accepts
// any transport, such as transport.NewHTTPTransport.
package client
