package server

import (
	"context"
	"strings"
	"sync"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/schema"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
)

// MemoryScheme prefixes every resource URI the server can read
const MemoryScheme = "memory://"

// ToolHandler executes a tool with arguments already validated against its input shape
type ToolHandler func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error)

// ToolDescriptor describes a tool and how to run it
type ToolDescriptor struct {
	Name        string
	Description string
	Input       schema.Shape
	Handler     ToolHandler
	// RawArgs hands the arguments to Handler unvalidated; Input is still advertised.
	RawArgs bool
}

// Tool returns the descriptor as advertised by tools/list
func (d ToolDescriptor) Tool() protocol.Tool {
	return protocol.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.Input.JSONSchema(),
	}
}

// ToolRegistry holds tools in registration order
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]ToolDescriptor
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolDescriptor)}
}

// Register adds a tool. A second tool with the same name is rejected with DuplicateName.
func (r *ToolRegistry) Register(desc ToolDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[desc.Name]; exists {
		return mcperrors.DuplicateName(desc.Name)
	}
	r.tools[desc.Name] = desc
	r.order = append(r.order, desc.Name)
	return nil
}

// Get looks up a tool by name
func (r *ToolRegistry) Get(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// List returns every tool in registration order
func (r *ToolRegistry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].Tool())
	}
	return tools
}

// ResourceProducer computes the value of a resource at read time
type ResourceProducer func(ctx context.Context) (interface{}, error)

// ResourceDescriptor describes a readable resource. A nil Producer reads
// the store entry named by the URI without its scheme.
type ResourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Producer    ResourceProducer
}

// Resource returns the descriptor as advertised by resources/list
func (d ResourceDescriptor) Resource() protocol.Resource {
	mimeType := d.MimeType
	if mimeType == "" {
		mimeType = protocol.MimeTypeJSON
	}
	return protocol.Resource{
		URI:         d.URI,
		MimeType:    mimeType,
		Name:        d.Name,
		Description: d.Description,
	}
}

// ResourceRegistry holds resource descriptors in registration order and
// reads memory:// URIs from a store.
type ResourceRegistry struct {
	mu             sync.RWMutex
	order          []string
	resources      map[string]ResourceDescriptor
	store          *store.Store
	registeredOnly bool
}

// ResourceRegistryOption configures a ResourceRegistry
type ResourceRegistryOption func(*ResourceRegistry)

// RegisteredOnly makes Read answer "Resource not found" for every URI that
// has no descriptor, whatever its scheme, instead of falling back to the store.
func RegisteredOnly() ResourceRegistryOption {
	return func(r *ResourceRegistry) { r.registeredOnly = true }
}

// NewResourceRegistry creates an empty registry backed by st
func NewResourceRegistry(st *store.Store, opts ...ResourceRegistryOption) *ResourceRegistry {
	r := &ResourceRegistry{
		resources: make(map[string]ResourceDescriptor),
		store:     st,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a resource. A second resource with the same URI is rejected with DuplicateURI.
func (r *ResourceRegistry) Register(desc ResourceDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[desc.URI]; exists {
		return mcperrors.DuplicateURI(desc.URI)
	}
	r.resources[desc.URI] = desc
	r.order = append(r.order, desc.URI)
	return nil
}

// Get looks up a resource by URI
func (r *ResourceRegistry) Get(uri string) (ResourceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.resources[uri]
	return desc, ok
}

// List returns every resource in registration order
func (r *ResourceRegistry) List() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resources := make([]protocol.Resource, 0, len(r.order))
	for _, uri := range r.order {
		resources = append(resources, r.resources[uri].Resource())
	}
	return resources
}

// Read resolves uri and renders its value as indented JSON.
func (r *ResourceRegistry) Read(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	desc, registered := r.Get(uri)
	if !registered && r.registeredOnly {
		return nil, mcperrors.InvalidRequest("Resource not found: %s", uri)
	}
	if !strings.HasPrefix(uri, MemoryScheme) {
		return nil, mcperrors.InvalidRequest("Unsupported URI scheme: %s", uri)
	}

	mimeType := protocol.MimeTypeJSON
	if registered && desc.MimeType != "" {
		mimeType = desc.MimeType
	}

	var value interface{}
	if registered && desc.Producer != nil {
		v, err := desc.Producer(ctx)
		if err != nil {
			return nil, err
		}
		value = v
	} else {
		v, ok := r.store.Get(strings.TrimPrefix(uri, MemoryScheme))
		if !ok {
			return nil, mcperrors.InvalidRequest("Resource not found: %s", uri)
		}
		value = v
	}

	text, err := prettyJSON(value)
	if err != nil {
		return nil, err
	}

	return &protocol.ReadResourceResult{
		Contents: []protocol.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}},
	}, nil
}
