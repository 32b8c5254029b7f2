package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

// Default client identity sent in initialize
const (
	DefaultName    = "memclient"
	DefaultVersion = "1.0.0"
)

var (
	// ErrNotInitialized is returned by feature calls made before Initialize
	ErrNotInitialized = errors.New("client not initialized")
	// ErrCapabilityNotSupported is returned when the server did not advertise a capability
	ErrCapabilityNotSupported = errors.New("capability not supported by server")
)

// Option configures a Client
type Option func(*Client)

// WithName sets the client name sent in initialize
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithVersion sets the client version sent in initialize
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTransportOptions configures transports created by NewStdioClient and NewCommandClient
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// Client is an MCP client bound to a single transport
type Client struct {
	transport     transport.Transport
	transportOpts []transport.Option
	name          string
	version       string
	logger        logging.Logger

	mu           sync.RWMutex
	initialized  bool
	serverInfo   *protocol.ServerInfo
	capabilities protocol.Capabilities

	ctx     context.Context
	cancel  context.CancelFunc
	runOnce sync.Once
	runDone chan struct{}

	// closers run after the transport has stopped, in order
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New creates a client on t. The transport receive loop starts with Initialize.
func New(t transport.Transport, options ...Option) *Client {
	c := newClient(options...)
	c.transport = t
	return c
}

func newClient(options ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		name:    DefaultName,
		version: DefaultVersion,
		logger:  logging.Nop(),
		ctx:     ctx,
		cancel:  cancel,
		runDone: make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.WithFields(logging.String("component", "client"))
	return c
}

// Initialize starts the transport, performs the initialize handshake and
// sends notifications/initialized. Calling it again is a no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.RLock()
	initialized := c.initialized
	c.mu.RUnlock()
	if initialized {
		return nil
	}

	if err := c.transport.Initialize(ctx); err != nil {
		return fmt.Errorf("transport initialization failed: %w", err)
	}
	c.start()

	resp, err := c.transport.SendRequest(ctx, protocol.MethodInitialize, &protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    map[string]interface{}{},
		ClientInfo: &protocol.ClientInfo{
			Name:    c.name,
			Version: c.version,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	var result protocol.InitializeResult
	if err := parseResult(resp, &result); err != nil {
		return err
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.capabilities = result.Capabilities
	c.initialized = true
	c.mu.Unlock()

	fields := []logging.Field{logging.String("protocol_version", result.ProtocolVersion)}
	if result.ServerInfo != nil {
		fields = append(fields,
			logging.String("server", result.ServerInfo.Name),
			logging.String("server_version", result.ServerInfo.Version))
	}
	c.logger.Info("Connected to MCP server", fields...)

	if err := c.transport.SendNotification(ctx, protocol.MethodInitialized, nil); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}
	return nil
}

// start runs the transport receive loop in the background
func (c *Client) start() {
	c.runOnce.Do(func() {
		go func() {
			defer close(c.runDone)
			err := c.transport.Start(c.ctx)
			if err != nil && c.ctx.Err() == nil {
				c.logger.WithError(err).Warn("Transport stopped")
			}
		}()
	})
}

// Close stops the transport and releases whatever the client started
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		errs := []error{c.transport.Stop(context.Background())}

		// A loop that never started has nothing to wait for
		c.runOnce.Do(func() { close(c.runDone) })
		<-c.runDone

		for _, closer := range c.closers {
			errs = append(errs, closer())
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// ServerInfo returns the server identity from initialize, or nil before it
func (c *Client) ServerInfo() *protocol.ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// HasCapability reports whether the server advertised capability
func (c *Client) HasCapability(capability protocol.CapabilityType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.capabilities[capability]
	return ok
}

func (c *Client) requireCapability(capability protocol.CapabilityType) error {
	c.mu.RLock()
	initialized := c.initialized
	c.mu.RUnlock()
	if !initialized {
		return ErrNotInitialized
	}
	if !c.HasCapability(capability) {
		return fmt.Errorf("%w: %s", ErrCapabilityNotSupported, capability)
	}
	return nil
}

// ListTools lists the tools the server offers
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	if err := c.requireCapability(protocol.CapabilityTools); err != nil {
		return nil, err
	}

	var result protocol.ListToolsResult
	if err := c.request(ctx, protocol.MethodListTools, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool. Server failures are returned as MCPError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error) {
	if err := c.requireCapability(protocol.CapabilityTools); err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	params := &protocol.CallToolParams{Name: name, Arguments: args}
	if err := c.request(ctx, protocol.MethodCallTool, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources lists the resources the server offers
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	if err := c.requireCapability(protocol.CapabilityResources); err != nil {
		return nil, err
	}

	var result protocol.ListResourcesResult
	if err := c.request(ctx, protocol.MethodListResources, nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads a resource by URI
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	if err := c.requireCapability(protocol.CapabilityResources); err != nil {
		return nil, err
	}

	var result protocol.ReadResourceResult
	if err := c.request(ctx, protocol.MethodReadResource, &protocol.ReadResourceParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server is responding
func (c *Client) Ping(ctx context.Context) error {
	c.start()
	return c.request(ctx, protocol.MethodPing, nil, nil)
}

func (c *Client) request(ctx context.Context, method string, params, target interface{}) error {
	resp, err := c.transport.SendRequest(ctx, method, params)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	return parseResult(resp, target)
}

func parseResult(resp *protocol.Response, target interface{}) error {
	if err := json.Unmarshal(resp.Result, target); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
