package protocol

const (
	// ProtocolRevision is the protocol version advertised during initialize
	ProtocolRevision = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	// Methods for server features
	MethodListTools     = "tools/list"
	MethodCallTool      = "tools/call"
	MethodListResources = "resources/list"
	MethodReadResource  = "resources/read"
)

// CapabilityType defines the types of capabilities a server can advertise
type CapabilityType string

const (
	// CapabilityTools indicates the server supports tools
	CapabilityTools CapabilityType = "tools"

	// CapabilityResources indicates the server supports resources
	CapabilityResources CapabilityType = "resources"
)

// Capabilities maps each advertised capability to its (currently empty) options object.
type Capabilities map[CapabilityType]struct{}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      *ClientInfo            `json:"clientInfo,omitempty"`
}

// ClientInfo provides additional information about the client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      *ServerInfo  `json:"serverInfo,omitempty"`
}

// ServerInfo provides additional information about the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializedParams is sent as a notification once the client is ready
type InitializedParams struct{}

// PingResult is the empty reply to ping
type PingResult struct{}
