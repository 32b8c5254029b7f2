package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-memory-go/pkg/server"
)

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "Create the example server and print how to use it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return quickstart(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func quickstart(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, "MCP Memory Server - Quick Start")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "1. Creating example server...")
	srv, err := server.NewExampleServer(nil, "example-server", "1.0.0")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "   Server created with default tools and resources")
	fmt.Fprintln(w)

	var uris, tools []string
	for _, r := range srv.Dispatcher().ListResources(ctx).Resources {
		uris = append(uris, r.URI)
	}
	for _, t := range srv.Dispatcher().ListTools(ctx).Tools {
		tools = append(tools, t.Name)
	}

	fmt.Fprintln(w, "2. Server capabilities:")
	fmt.Fprintf(w, "   Resources: %s\n", strings.Join(uris, ", "))
	fmt.Fprintf(w, "   Tools: %s\n", strings.Join(tools, ", "))
	fmt.Fprintln(w, "   Transport: stdio")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "3. To test this server:")
	fmt.Fprintln(w, "   - Start server: memserver serve --profile example")
	fmt.Fprintln(w, "   - Test with client: memclient --server \"memserver serve --profile example\"")
	fmt.Fprintln(w, "   - Serve over HTTP: memserver serve --transport http --listen 127.0.0.1:8080")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "4. Next steps:")
	fmt.Fprintln(w, "   - Register your own tools with Server.RegisterTool")
	fmt.Fprintln(w, "   - Add resources with Server.RegisterResource")
	fmt.Fprintln(w, "   - Enable metrics and tracing in the config file")
	return nil
}
