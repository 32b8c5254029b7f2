// Package protocol defines the wire types exchanged between the memory server and its clients.
//
// Messages are JSON-RPC 2.0. This package contains the envelope types (Request, Response,
// Notification, Error) and the typed params and results for each supported method.
//
// # Package Organization
//
//   - jsonrpc.go: the JSON-RPC envelope, error codes and message classification
//   - mcp.go: method names, capabilities and the initialize handshake
//   - tools.go: tools/list and tools/call shapes
//   - resources.go: resources/list and resources/read shapes
//
// # Message Flow
//
// A client sends "initialize", then the "notifications/initialized" notification. After that it
// may issue any of:
//
//	tools/list      -> {"tools": [{"name", "description", "inputSchema"}]}
//	resources/list  -> {"resources": [{"uri", "mimeType", "name", "description"}]}
//	tools/call      -> {"content": [{"type": "text", "text"}]}
//	resources/read  -> {"contents": [{"uri", "mimeType", "text"}]}
//
// Failures are reported through the JSON-RPC error member with one of the codes declared in
// jsonrpc.go.
package protocol
