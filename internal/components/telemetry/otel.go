package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OtlpConnConfig is where one signal is exported to, grpc wins when both are set.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) Enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

func (c OtlpConnConfig) spanExporter(ctx context.Context) (trace.SpanExporter, error) {
	if c.GrpcEndpoint != "" {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(c.GrpcEndpoint), otlptracegrpc.WithHeaders(c.Headers))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(c.HttpEndpoint), otlptracehttp.WithHeaders(c.Headers))
}

func (c OtlpConnConfig) metricExporter(ctx context.Context) (metric.Exporter, error) {
	if c.GrpcEndpoint != "" {
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint), otlpmetricgrpc.WithHeaders(c.Headers))
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(c.HttpEndpoint), otlpmetrichttp.WithHeaders(c.Headers))
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

// Config is the telemetry section of the config, leaving it empty disables export.
type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

// Telemetry holds the installed providers, either may be nil.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

const EXPORT_INTERVAL = 15 * time.Second

// Setup installs global otel providers for whichever signals have an endpoint configured.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, err
	}

	var out Telemetry
	if config.Otlp.Traces.Enabled() {
		exporter, err := config.Otlp.Traces.spanExporter(ctx)
		if err != nil {
			return Telemetry{}, fmt.Errorf("trace exporter: %w", err)
		}
		out.TracerProvider = trace.NewTracerProvider(trace.WithBatcher(exporter), trace.WithResource(res))
		otel.SetTracerProvider(out.TracerProvider)
	}
	if config.Otlp.Metrics.Enabled() {
		exporter, err := config.Otlp.Metrics.metricExporter(ctx)
		if err != nil {
			return out, fmt.Errorf("metric exporter: %w", err)
		}
		out.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(EXPORT_INTERVAL))),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(out.MeterProvider)
	}
	return out, nil
}

var (
	countGaugeOnce sync.Once
	countGauge     otelmetric.Int64Gauge
)

// recordCount mirrors ReportCount onto an otel gauge, it is a no-op until a meter
// provider has been installed by Setup.
func recordCount(id string, count int64) {
	countGaugeOnce.Do(func() {
		countGauge, _ = otel.Meter("partwatch").Int64Gauge("partwatch.count")
	})
	if countGauge == nil {
		return
	}
	countGauge.Record(context.Background(), count, otelmetric.WithAttributes(
		attribute.String("id", id),
	))
}
