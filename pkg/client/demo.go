package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DemoEchoText is the text the demo sends to the echo tool
const DemoEchoText = "Hello from MCP client!"

// RunDemo walks through every server feature and prints each result to w:
// it lists tools and resources, calls echo and calculate, reads
// memory://config, then stores and reads back a value with the memory tools.
func RunDemo(ctx context.Context, c *Client, w io.Writer) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Connected to MCP server")

	fmt.Fprintln(w, "\n=== Available Tools ===")
	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}
	for _, tool := range tools {
		fmt.Fprintf(w, "- %s: %s\n", tool.Name, tool.Description)
	}

	fmt.Fprintln(w, "\n=== Available Resources ===")
	resources, err := c.ListResources(ctx)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		fmt.Fprintf(w, "- %s: %s\n", resource.URI, resource.Description)
	}

	fmt.Fprintln(w, "\n=== Testing Echo Tool ===")
	if err := demoCall(ctx, c, w, "Echo result", "echo", map[string]interface{}{
		"text": DemoEchoText,
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== Testing Calculate Tool ===")
	if err := demoCall(ctx, c, w, "Calculate result", "calculate", map[string]interface{}{
		"operation": "add",
		"a":         10,
		"b":         5,
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== Reading Config Resource ===")
	config, err := c.ReadResource(ctx, "memory://config")
	if err != nil {
		return err
	}
	if len(config.Contents) > 0 {
		printItem(w, "Config resource", config.Contents[0])
	}

	fmt.Fprintln(w, "\n=== Testing Memory Tools ===")
	value, err := json.Marshal(map[string]interface{}{
		"message":   "Hello from client",
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if err := demoCall(ctx, c, w, "Set result", "set_memory", map[string]interface{}{
		"key":   "test",
		"value": string(value),
	}); err != nil {
		return err
	}
	return demoCall(ctx, c, w, "Get result", "get_memory", map[string]interface{}{
		"key": "test",
	})
}

func demoCall(ctx context.Context, c *Client, w io.Writer, label, tool string, args map[string]interface{}) error {
	result, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if len(result.Content) > 0 {
		printItem(w, label, result.Content[0])
	}
	return nil
}

func printItem(w io.Writer, label string, item interface{}) {
	data, err := json.Marshal(item)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", label, item)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, data)
}
