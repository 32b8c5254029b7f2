package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/observability"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

// Default server identity reported by initialize
const (
	DefaultName    = "tsMCP"
	DefaultVersion = "1.0.0"
)

// Profile selects the built-in tools, resources and store seed
type Profile string

const (
	// ProfileFull registers calculate, echo and the memory tools
	ProfileFull Profile = "full"
	// ProfileExample registers a single echo tool and memory://example
	ProfileExample Profile = "example"
)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	// router dispatches requests that arrive over HTTP
	router *transport.BaseTransport

	name           string
	version        string
	profile        Profile
	requestTimeout time.Duration

	store      *store.Store
	tools      *ToolRegistry
	resources  *ResourceRegistry
	dispatcher *Dispatcher

	metrics observability.MetricsProvider
	tracer  *observability.TracingProvider
	instr   *observability.Instrumentation

	// Server state
	mu          sync.RWMutex
	initialized bool
	clientInfo  *protocol.ClientInfo

	logger logging.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithName sets the server name
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// WithVersion sets the server version
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithProfile selects the built-in tools and resources
func WithProfile(profile Profile) ServerOption {
	return func(s *Server) {
		s.profile = profile
	}
}

// WithStore injects the store backing the memory tools and resources.
// Without it the server seeds its own store for the selected profile.
func WithStore(st *store.Store) ServerOption {
	return func(s *Server) {
		s.store = st
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request, tool and resource metrics
func WithMetrics(metrics observability.MetricsProvider) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracing opens a span for every request
func WithTracing(tracer *observability.TracingProvider) ServerOption {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithRequestTimeout bounds the handling of a single HTTP request
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates a new MCP server. t may be nil when the server is only
// reached through its HTTP handler.
func New(t transport.Transport, options ...ServerOption) (*Server, error) {
	s := &Server{
		transport: t,
		name:      DefaultName,
		version:   DefaultVersion,
		profile:   ProfileFull,
		logger:    logging.Nop(),
	}

	for _, option := range options {
		option(s)
	}

	switch s.profile {
	case ProfileFull, ProfileExample:
	default:
		return nil, fmt.Errorf("unknown profile %q", s.profile)
	}

	if s.store == nil {
		if s.profile == ProfileExample {
			s.store = store.Seeded(store.ExampleSeed())
		} else {
			s.store = store.Seeded(store.DefaultSeed())
		}
	}
	if s.metrics == nil {
		s.metrics = observability.NopMetrics()
	}
	s.logger = s.logger.WithFields(logging.String("component", "server"))
	s.instr = observability.NewInstrumentation(s.metrics, s.tracer)

	tools, resources := BuiltinTools(s.store), BuiltinResources()
	var registryOpts []ResourceRegistryOption
	if s.profile == ProfileExample {
		tools, resources = ExampleTools(), ExampleResources()
		registryOpts = append(registryOpts, RegisteredOnly())
	}

	s.tools = NewToolRegistry()
	s.resources = NewResourceRegistry(s.store, registryOpts...)
	s.dispatcher = NewDispatcher(s.tools, s.resources, s.logger, s.instr)

	for _, desc := range tools {
		if err := s.tools.Register(desc); err != nil {
			return nil, err
		}
	}
	for _, desc := range resources {
		if err := s.resources.Register(desc); err != nil {
			return nil, err
		}
	}

	if err := s.metrics.RegisterStoreSize(func() float64 { return float64(s.store.Len()) }); err != nil {
		return nil, fmt.Errorf("register store metric: %w", err)
	}

	routerOpts := []transport.Option{transport.WithLogger(s.logger)}
	if s.requestTimeout > 0 {
		routerOpts = append(routerOpts, transport.WithRequestTimeout(s.requestTimeout))
	}
	s.router = transport.NewBaseTransport("http", routerOpts...)

	s.registerHandlers(s.router)
	if t != nil {
		s.registerHandlers(t)
	}

	return s, nil
}

// NewExampleServer creates a server with the example profile: one echo
// tool and the memory://example resource.
func NewExampleServer(t transport.Transport, name, version string, options ...ServerOption) (*Server, error) {
	opts := append([]ServerOption{
		WithName(name),
		WithVersion(version),
		WithProfile(ProfileExample),
	}, options...)
	return New(t, opts...)
}

type handlerRegistrar interface {
	RegisterRequestHandler(method string, handler transport.RequestHandler)
	RegisterNotificationHandler(method string, handler transport.NotificationHandler)
}

func (s *Server) registerHandlers(r handlerRegistrar) {
	r.RegisterRequestHandler(protocol.MethodInitialize, s.instrumented(protocol.MethodInitialize, s.handleInitialize))
	r.RegisterNotificationHandler(protocol.MethodInitialized, s.handleInitialized)
	r.RegisterRequestHandler(protocol.MethodPing, s.instrumented(protocol.MethodPing, s.handlePing))
	r.RegisterRequestHandler(protocol.MethodListTools, s.instrumented(protocol.MethodListTools, s.handleListTools))
	r.RegisterRequestHandler(protocol.MethodCallTool, s.instrumented(protocol.MethodCallTool, s.handleCallTool))
	r.RegisterRequestHandler(protocol.MethodListResources, s.instrumented(protocol.MethodListResources, s.handleListResources))
	r.RegisterRequestHandler(protocol.MethodReadResource, s.instrumented(protocol.MethodReadResource, s.handleReadResource))
}

func (s *Server) instrumented(method string, handler transport.RequestHandler) transport.RequestHandler {
	return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		ctx, finish := s.instr.Request(ctx, method)
		result, err := handler(ctx, params)
		finish(err)
		return result, err
	}
}

// Start initializes the transport and runs it until the peer goes away or ctx is done
func (s *Server) Start(ctx context.Context) error {
	if s.transport == nil {
		return errors.New("server has no transport")
	}

	if err := s.transport.Initialize(ctx); err != nil {
		return mcperrors.TransportError("server", "initialization", err).
			WithDetail(fmt.Sprintf("Transport type: %T", s.transport))
	}

	s.logger.Info("Server starting",
		logging.String("name", s.name),
		logging.String("version", s.version),
		logging.String("profile", string(s.profile)),
		logging.Int("tools", len(s.tools.List())),
		logging.Int("resources", len(s.resources.List())))

	return s.transport.Start(ctx)
}

// Stop shuts down the transport and fails any request still waiting on it
func (s *Server) Stop() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Stop(context.Background())
}

// Name returns the server name reported by initialize
func (s *Server) Name() string { return s.name }

// Version returns the server version reported by initialize
func (s *Server) Version() string { return s.version }

// Store returns the store backing the memory tools
func (s *Server) Store() *store.Store { return s.store }

// Dispatcher returns the dispatcher serving tools/call and resources/read
func (s *Server) Dispatcher() *Dispatcher { return s.dispatcher }

// Metrics returns the metrics provider; it records nothing unless WithMetrics was given
func (s *Server) Metrics() observability.MetricsProvider { return s.metrics }

// ClientInfo returns what the client reported in initialize, or nil
func (s *Server) ClientInfo() *protocol.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// Initialized reports whether the client has sent notifications/initialized
func (s *Server) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// RegisterTool adds a tool alongside the built-ins
func (s *Server) RegisterTool(desc ToolDescriptor) error {
	return s.tools.Register(desc)
}

// RegisterResource adds a resource alongside the built-ins
func (s *Server) RegisterResource(desc ResourceDescriptor) error {
	return s.resources.Register(desc)
}

func (s *Server) capabilities() protocol.Capabilities {
	return protocol.Capabilities{
		protocol.CapabilityTools:     {},
		protocol.CapabilityResources: {},
	}
}

// decodeParams unmarshals params into target. Absent params leave target untouched.
func decodeParams(method string, params json.RawMessage, target interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return mcperrors.InvalidParams(method, err)
	}
	return nil
}

// Request handlers

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var initParams protocol.InitializeParams
	if err := decodeParams(protocol.MethodInitialize, params, &initParams); err != nil {
		return nil, err
	}

	fields := []logging.Field{logging.String("protocol_version", initParams.ProtocolVersion)}
	if initParams.ClientInfo != nil {
		fields = append(fields,
			logging.String("client", initParams.ClientInfo.Name),
			logging.String("client_version", initParams.ClientInfo.Version))
	}
	s.logger.WithContext(ctx).Info("Initializing connection", fields...)

	s.mu.Lock()
	s.clientInfo = initParams.ClientInfo
	s.mu.Unlock()

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    s.capabilities(),
		ServerInfo: &protocol.ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) error {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Connection initialized")
	return nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return &protocol.PingResult{}, nil
}

func (s *Server) handleListTools(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.dispatcher.ListTools(ctx), nil
}

func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var callParams protocol.CallToolParams
	if err := decodeParams(protocol.MethodCallTool, params, &callParams); err != nil {
		return nil, err
	}
	return s.dispatcher.CallTool(ctx, callParams)
}

func (s *Server) handleListResources(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.dispatcher.ListResources(ctx), nil
}

func (s *Server) handleReadResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var readParams protocol.ReadResourceParams
	if err := decodeParams(protocol.MethodReadResource, params, &readParams); err != nil {
		return nil, err
	}
	return s.dispatcher.ReadResource(ctx, readParams)
}
