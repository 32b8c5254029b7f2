package server

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/observability"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/schema"
)

// unregisteredURI labels reads of memory:// URIs without a descriptor
const unregisteredURI = "unregistered"

// Dispatcher routes tool calls and resource reads to the registries and
// folds every failure into the error a peer receives.
type Dispatcher struct {
	tools     *ToolRegistry
	resources *ResourceRegistry
	instr     *observability.Instrumentation
	logger    logging.Logger
}

// NewDispatcher creates a dispatcher. A nil logger or instrumentation disables that concern.
func NewDispatcher(tools *ToolRegistry, resources *ResourceRegistry, logger logging.Logger, instr *observability.Instrumentation) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	if instr == nil {
		instr = observability.NewInstrumentation(nil, nil)
	}
	return &Dispatcher{
		tools:     tools,
		resources: resources,
		instr:     instr,
		logger:    logger.WithFields(logging.String("component", "dispatcher")),
	}
}

// ListTools returns every registered tool
func (d *Dispatcher) ListTools(ctx context.Context) *protocol.ListToolsResult {
	return &protocol.ListToolsResult{Tools: d.tools.List()}
}

// ListResources returns every registered resource
func (d *Dispatcher) ListResources(ctx context.Context) *protocol.ListResourcesResult {
	return &protocol.ListResourcesResult{Resources: d.resources.List()}
}

// CallTool validates the arguments and runs the named tool.
//
// An unknown name fails with MethodNotFound. MethodNotFound and
// InvalidRequest raised by a handler pass through; any other failure,
// a panic included, becomes InternalError wrapping the original error.
func (d *Dispatcher) CallTool(ctx context.Context, params protocol.CallToolParams) (*protocol.CallToolResult, error) {
	desc, ok := d.tools.Get(params.Name)
	if !ok {
		d.logger.WithContext(ctx).Warn("Unknown tool", logging.String("tool", params.Name))
		return nil, mcperrors.UnknownTool(params.Name)
	}

	ctx, finish := d.instr.ToolCall(ctx, desc.Name)
	start := time.Now()
	result, err := d.invoke(ctx, desc, params.Arguments)
	finish(err)

	logger := d.logger.WithContext(ctx).WithFields(
		logging.String("tool", desc.Name),
		logging.Duration("duration", time.Since(start)),
	)
	if err != nil {
		normalized := mcperrors.NormalizeToolError(err)
		logger.WithError(err).Warn("Tool call failed")
		return nil, normalized
	}

	logger.Debug("Tool call completed")
	return result, nil
}

func (d *Dispatcher) invoke(ctx context.Context, desc ToolDescriptor, raw map[string]interface{}) (result *protocol.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithContext(ctx).Error("Panic in tool handler",
				logging.String("tool", desc.Name),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			result = nil
			err = panicError(r)
		}
	}()

	args := schema.Args(raw)
	if !desc.RawArgs {
		if args, err = desc.Input.ValidateContext(ctx, raw); err != nil {
			return nil, err
		}
	}
	if args == nil {
		args = schema.Args{}
	}

	result, err = desc.Handler(ctx, args)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &protocol.CallToolResult{}
	}
	if result.Content == nil {
		result.Content = []protocol.Content{}
	}
	return result, nil
}

func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// ReadResource reads a memory:// resource. InvalidRequest passes through;
// any other failure becomes InternalError.
func (d *Dispatcher) ReadResource(ctx context.Context, params protocol.ReadResourceParams) (result *protocol.ReadResourceResult, err error) {
	label := params.URI
	if _, ok := d.resources.Get(params.URI); !ok {
		label = unregisteredURI
	}

	ctx, finish := d.instr.ResourceRead(ctx, label)
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithContext(ctx).Error("Panic in resource producer",
				logging.String("uri", params.URI),
				logging.Any("panic", r))
			result, err = nil, panicError(r)
		}
		finish(err)
		if err != nil {
			d.logger.WithContext(ctx).WithError(err).Warn("Resource read failed", logging.String("uri", params.URI))
			err = mcperrors.NormalizeResourceError(err)
		}
	}()

	return d.resources.Read(ctx, params.URI)
}
