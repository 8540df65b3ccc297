// Package telemetry wires OpenTelemetry tracing. Grounded directly on
// Lens/modules/core/pkg/trace/otel.go's InitTracer/CloseTracer shape
// (OTLP gRPC exporter, resource attributes, trace-id-ratio sampler, batch
// span processor) — trimmed to read its endpoint from internal/config
// instead of raw OTEL_* env vars, since this service already centralizes
// configuration there.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"k8s.io/klog/v2"
)

var provider *sdktrace.TracerProvider

// InitTracer dials the configured OTLP collector and installs a global
// tracer provider. If endpoint is empty, tracing is left disabled rather
// than failing startup — an unreachable or unconfigured collector must
// never block the service from serving traffic.
func InitTracer(ctx context.Context, serviceName, endpoint string) error {
	if endpoint == "" {
		klog.InfoS("otel endpoint not configured, tracing disabled")
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(dialCtx, endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return fmt.Errorf("failed to dial otel collector at %s: %w", endpoint, err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return fmt.Errorf("failed to create otlp trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("failed to build otel resource: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1.0))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	klog.InfoS("otel tracer initialized", "service", serviceName, "endpoint", endpoint)
	return nil
}

// Shutdown flushes pending spans. Safe to call even if InitTracer never
// installed a provider.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
