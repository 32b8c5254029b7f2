package mcp

import (
	"github.com/ajitpratap0/mcp-memory-go/pkg/client"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/server"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

// Version represents the current version of the module
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewClient creates a new MCP client on any transport
	NewClient = client.New

	// NewStdioClient creates a client over a reader and a writer
	NewStdioClient = client.NewStdioClient

	// NewCommandClient spawns a server process and talks to it over stdio
	NewCommandClient = client.NewCommandClient

	// NewServer creates a new MCP server
	NewServer = server.New

	// NewExampleServer creates a server with the example profile
	NewExampleServer = server.NewExampleServer

	// NewStdioTransport creates a new stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// NewHTTPTransport creates a client transport for POST /mcp
	NewHTTPTransport = transport.NewHTTPTransport

	// RunDemo runs the client demo flow against a server
	RunDemo = client.RunDemo
)

// Protocol constants for capabilities
const (
	CapabilityTools     = protocol.CapabilityTools
	CapabilityResources = protocol.CapabilityResources
	ProtocolRevision    = protocol.ProtocolRevision
)

// Server profiles
const (
	ProfileFull    = server.ProfileFull
	ProfileExample = server.ProfileExample
)

// Client options
var (
	WithClientName    = client.WithName
	WithClientVersion = client.WithVersion
	WithClientLogger  = client.WithLogger
)

// Server options
var (
	WithServerName    = server.WithName
	WithServerVersion = server.WithVersion
	WithProfile       = server.WithProfile
	WithStore         = server.WithStore
	WithMetrics       = server.WithMetrics
	WithTracing       = server.WithTracing
	WithLogger        = server.WithLogger
)

// Transport options
var (
	WithRequestTimeout = transport.WithRequestTimeout
)
