package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
)

// Finish completes an observation started by Instrumentation. A nil error
// marks the observation as successful.
type Finish func(err error)

// Instrumentation combines metrics and tracing around dispatched work.
// Either provider may be nil.
type Instrumentation struct {
	metrics MetricsProvider
	tracer  *TracingProvider
}

// NewInstrumentation creates an Instrumentation; a nil metrics provider records nothing
func NewInstrumentation(metrics MetricsProvider, tracer *TracingProvider) *Instrumentation {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Instrumentation{metrics: metrics, tracer: tracer}
}

// Metrics returns the underlying metrics provider
func (in *Instrumentation) Metrics() MetricsProvider { return in.metrics }

// Tracer returns the underlying tracing provider, possibly nil
func (in *Instrumentation) Tracer() *TracingProvider { return in.tracer }

// Request observes one JSON-RPC request. Errors are counted by the code
// they will carry on the wire.
func (in *Instrumentation) Request(ctx context.Context, method string) (context.Context, Finish) {
	ctx, span := in.startSpan(ctx, method, trace.SpanKindServer)
	start := time.Now()

	return ctx, func(err error) {
		status := StatusOK
		if err != nil {
			status = StatusError
			code := int(mcperrors.ToJSONRPCError(err).Code)
			in.metrics.RecordError(ctx, method, code)
			in.recordSpanError(ctx, err, attribute.Int("mcp.error_code", code))
		}
		in.metrics.RecordRequest(ctx, method, status, time.Since(start))
		if span != nil {
			span.End()
		}
	}
}

// ToolCall observes a single tool handler invocation
func (in *Instrumentation) ToolCall(ctx context.Context, tool string) (context.Context, Finish) {
	ctx, span := in.startSpan(ctx, "tool."+tool, trace.SpanKindInternal, attribute.String("mcp.tool", tool))
	start := time.Now()

	return ctx, func(err error) {
		status := StatusOK
		if err != nil {
			status = StatusError
			in.recordSpanError(ctx, err)
		}
		in.metrics.RecordToolCall(ctx, tool, status, time.Since(start))
		if span != nil {
			span.End()
		}
	}
}

// ResourceRead observes a single resource read
func (in *Instrumentation) ResourceRead(ctx context.Context, uri string) (context.Context, Finish) {
	ctx, span := in.startSpan(ctx, "resource.read", trace.SpanKindInternal, attribute.String("mcp.resource.uri", uri))
	start := time.Now()

	return ctx, func(err error) {
		status := StatusOK
		if err != nil {
			status = StatusError
			in.recordSpanError(ctx, err)
		}
		in.metrics.RecordResourceRead(ctx, uri, status, time.Since(start))
		if span != nil {
			span.End()
		}
	}
}

func (in *Instrumentation) startSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if in.tracer == nil {
		return ctx, nil
	}
	return in.tracer.StartMethodSpan(ctx, name, kind, attrs...)
}

func (in *Instrumentation) recordSpanError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if in.tracer == nil {
		return
	}
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		attrs = append(attrs, attribute.String("mcp.error_category", string(mcpErr.Category())))
	}
	in.tracer.RecordError(ctx, err, attrs...)
}
