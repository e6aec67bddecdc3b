// Package tracing installs OpenTelemetry tracing for the process and
// instruments the HTTP client stack.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/config"
)

var ErrInvalidSampleRatio = errors.New("tracing: sample ratio must be within [0, 1]")

// Instrumentor owns the process TracerProvider. InstrumentLibraries installs
// it globally and wraps http.DefaultTransport; Shutdown undoes both.
type Instrumentor struct {
	cfg  config.TracingConfig
	opts []sdktrace.TracerProviderOption

	mu            sync.Mutex
	tp            *sdktrace.TracerProvider
	prevTP        trace.TracerProvider
	prevProp      propagation.TextMapPropagator
	prevTransport http.RoundTripper
}

// NewInstrumentor returns an Instrumentor for cfg. opts are appended to the
// TracerProvider options; pass sdktrace.WithBatcher(exporter) to export spans.
func NewInstrumentor(cfg *config.Config, opts ...sdktrace.TracerProviderOption) *Instrumentor {
	return &Instrumentor{cfg: cfg.Tracing, opts: opts}
}

// InstrumentLibraries installs tracing. Calling it again is a no-op.
func (i *Instrumentor) InstrumentLibraries() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tp != nil {
		return nil
	}
	if i.cfg.SampleRatio < 0 || i.cfg.SampleRatio > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRatio, i.cfg.SampleRatio)
	}

	res := resource.NewSchemaless(attribute.String("service.name", i.cfg.ServiceName))
	opts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(i.cfg.SampleRatio))),
	}, i.opts...)
	i.tp = sdktrace.NewTracerProvider(opts...)

	i.prevTP = otel.GetTracerProvider()
	i.prevProp = otel.GetTextMapPropagator()
	otel.SetTracerProvider(i.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	i.prevTransport = http.DefaultTransport
	http.DefaultTransport = otelhttp.NewTransport(i.prevTransport)

	zap.L().Info("tracing installed",
		zap.String("service", i.cfg.ServiceName),
		zap.Float64("sample_ratio", i.cfg.SampleRatio),
	)
	return nil
}

// Installed reports whether InstrumentLibraries has run.
func (i *Instrumentor) Installed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tp != nil
}

// TracerProvider returns the installed provider, or the global one before
// InstrumentLibraries has run.
func (i *Instrumentor) TracerProvider() trace.TracerProvider {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tp == nil {
		return otel.GetTracerProvider()
	}
	return i.tp
}

// Shutdown flushes pending spans and restores the globals replaced by
// InstrumentLibraries.
func (i *Instrumentor) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tp == nil {
		return nil
	}

	http.DefaultTransport = i.prevTransport
	otel.SetTextMapPropagator(i.prevProp)
	otel.SetTracerProvider(i.prevTP)

	tp := i.tp
	i.tp = nil
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}
