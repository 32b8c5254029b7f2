package mcp_test

import (
	"context"
	"fmt"
	"io"

	mcp "github.com/ajitpratap0/mcp-memory-go"
)

// Example runs a server and a client in one process, connected by pipes.
func Example() {
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()

	srv, err := mcp.NewServer(mcp.NewStdioTransport(c2sR, s2cW))
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	c := mcp.NewStdioClient(s2cR, c2sW)
	defer c.Close()

	if err := c.Initialize(ctx); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(c.ServerInfo().Name, c.ServerInfo().Version)

	result, err := c.CallTool(ctx, "calculate", map[string]interface{}{
		"operation": "multiply",
		"a":         6,
		"b":         7,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(result.Content[0].Text)

	// Output:
	// tsMCP 1.0.0
	// Result: 6 multiply 7 = 42
}
