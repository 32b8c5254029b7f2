package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string

	// Namespace prefixes every series (default: mcp_memory)
	Namespace string
	Subsystem string
	// HistogramBuckets are latency buckets in milliseconds
	HistogramBuckets []float64

	// Registerer receives the collectors; nil means prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Gatherer backs Handler; nil means prometheus.DefaultGatherer, or
	// Registerer itself when it is a *prometheus.Registry.
	Gatherer prometheus.Gatherer
}

// MetricsProvider records request-level metrics for the dispatcher
type MetricsProvider interface {
	RecordRequest(ctx context.Context, method, status string, duration time.Duration)
	RecordToolCall(ctx context.Context, tool, status string, duration time.Duration)
	RecordResourceRead(ctx context.Context, uri, status string, duration time.Duration)
	RecordError(ctx context.Context, method string, code int)

	// RegisterStoreSize exposes the size of the backing store as a gauge
	RegisterStoreSize(fn func() float64) error

	// Handler serves the collected metrics in the Prometheus text format
	Handler() http.Handler
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config   MetricsConfig
	gatherer prometheus.Gatherer

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	resourceDuration *prometheus.HistogramVec
	errorTotal       *prometheus.CounterVec
}

// NewMetricsProvider creates a Prometheus metrics provider and registers its collectors
func NewMetricsProvider(config MetricsConfig) (*PrometheusMetricsProvider, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp_memory"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000}
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	gatherer := config.Gatherer
	if gatherer == nil {
		if reg, ok := config.Registerer.(*prometheus.Registry); ok {
			gatherer = reg
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}

	constLabels := prometheus.Labels{}
	if config.ServiceName != "" {
		constLabels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		constLabels["version"] = config.ServiceVersion
	}

	p := &PrometheusMetricsProvider{config: config, gatherer: gatherer}

	p.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "request_duration_milliseconds",
		Help:        "Duration of dispatched requests in milliseconds",
		Buckets:     config.HistogramBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "status"})

	p.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "request_total",
		Help:        "Total number of dispatched requests",
		ConstLabels: constLabels,
	}, []string{"method", "status"})

	p.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "tool_call_duration_milliseconds",
		Help:        "Duration of tool invocations in milliseconds",
		Buckets:     config.HistogramBuckets,
		ConstLabels: constLabels,
	}, []string{"tool", "status"})

	p.resourceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "resource_read_duration_milliseconds",
		Help:        "Duration of resource reads in milliseconds",
		Buckets:     config.HistogramBuckets,
		ConstLabels: constLabels,
	}, []string{"uri", "status"})

	p.errorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "errors_total",
		Help:        "Total number of errors returned to peers by JSON-RPC code",
		ConstLabels: constLabels,
	}, []string{"method", "code"})

	var err error
	if p.requestDuration, err = registerOrReuse(config.Registerer, p.requestDuration); err != nil {
		return nil, err
	}
	if p.requestTotal, err = registerOrReuse(config.Registerer, p.requestTotal); err != nil {
		return nil, err
	}
	if p.toolCallDuration, err = registerOrReuse(config.Registerer, p.toolCallDuration); err != nil {
		return nil, err
	}
	if p.resourceDuration, err = registerOrReuse(config.Registerer, p.resourceDuration); err != nil {
		return nil, err
	}
	if p.errorTotal, err = registerOrReuse(config.Registerer, p.errorTotal); err != nil {
		return nil, err
	}

	return p, nil
}

// registerOrReuse registers c, returning the already registered collector
// when an identical one exists.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

func (p *PrometheusMetricsProvider) RecordRequest(ctx context.Context, method, status string, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, status).Observe(milliseconds(duration))
	p.requestTotal.WithLabelValues(method, status).Inc()
}

func (p *PrometheusMetricsProvider) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
	p.toolCallDuration.WithLabelValues(tool, status).Observe(milliseconds(duration))
}

func (p *PrometheusMetricsProvider) RecordResourceRead(ctx context.Context, uri, status string, duration time.Duration) {
	p.resourceDuration.WithLabelValues(uri, status).Observe(milliseconds(duration))
}

func (p *PrometheusMetricsProvider) RecordError(ctx context.Context, method string, code int) {
	p.errorTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// RegisterStoreSize registers a gauge sampling fn at scrape time. Unlike the
// request series, the gauge belongs to one store: a second registration on the
// same registry fails instead of reporting another store's size.
func (p *PrometheusMetricsProvider) RegisterStoreSize(fn func() float64) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: p.config.Namespace,
		Subsystem: p.config.Subsystem,
		Name:      "store_entries",
		Help:      "Number of entries in the in-memory store",
	}, fn)
	if err := p.config.Registerer.Register(gauge); err != nil {
		return fmt.Errorf("failed to register store size gauge: %w", err)
	}
	return nil
}

// Handler serves the gathered metrics
func (p *PrometheusMetricsProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// nopMetrics discards every observation
type nopMetrics struct{}

// NopMetrics returns a MetricsProvider that records nothing
func NopMetrics() MetricsProvider { return nopMetrics{} }

func (nopMetrics) RecordRequest(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordToolCall(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordResourceRead(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordError(context.Context, string, int) {}
func (nopMetrics) RegisterStoreSize(func() float64) error { return nil }
func (nopMetrics) Handler() http.Handler { return http.NotFoundHandler() }
