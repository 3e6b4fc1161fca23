/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tracing configures OpenTelemetry tracing of wallet operations.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

// SpanExporterType specifies the type of span exporter used by tracer provider.
type SpanExporterType = string

const (
	None   SpanExporterType = ""
	Jaeger SpanExporterType = "JAEGER"
	Stdout SpanExporterType = "STDOUT"
)

const (
	JaegerAgentEndpointEnvKey     = "OTEL_EXPORTER_JAEGER_AGENT_HOST"
	JaegerCollectorEndpointEnvKey = "OTEL_EXPORTER_JAEGER_ENDPOINT"
	tracerName                    = "github.com/trustbloc/walletcore"

	// OperationAttribute is set on the span of every wallet operation.
	OperationAttribute = attribute.Key("wallet.operation")
)

type options struct {
	serviceName    string
	serviceVersion string
	stdout         io.Writer
	sampleRatio    float64
}

// Opt configures the tracer provider.
type Opt func(o *options)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Opt {
	return func(o *options) {
		o.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Opt {
	return func(o *options) {
		o.serviceVersion = version
	}
}

// WithStdoutWriter redirects the output of the STDOUT exporter.
func WithStdoutWriter(w io.Writer) Opt {
	return func(o *options) {
		o.stdout = w
	}
}

// WithSampleRatio samples the given fraction of root spans. All spans are sampled by default.
func WithSampleRatio(ratio float64) Opt {
	return func(o *options) {
		o.sampleRatio = ratio
	}
}

// Provider is the tracer provider installed by Initialize.
type Provider struct {
	tp       trace.TracerProvider
	enabled  bool
	shutdown func(ctx context.Context) error
}

// IsExportedSupported reports whether the exporter type can be passed to Initialize.
func IsExportedSupported(exporter SpanExporterType) bool {
	switch exporter {
	case None, Jaeger, Stdout:
		return true
	default:
		return false
	}
}

// Initialize creates a tracer provider exporting to the given exporter and registers it globally together
// with the W3C trace context propagator. With the None exporter a no-op provider is returned and nothing is
// registered.
func Initialize(exporter SpanExporterType, opts ...Opt) (*Provider, error) {
	o := &options{
		serviceName: "walletcore",
		stdout:      os.Stdout,
		sampleRatio: 1,
	}

	for _, opt := range opts {
		opt(o)
	}

	if exporter == None {
		return &Provider{
			tp:       trace.NewNoopTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	spanExporter, err := newExporter(exporter, o)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(o.serviceName),
		semconv.ProcessPIDKey.Int(os.Getpid()),
	}

	if o.serviceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(o.serviceVersion))
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(spanExporter),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(o.sampleRatio))),
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{tp: tp, enabled: true, shutdown: tp.Shutdown}, nil
}

func newExporter(exporter SpanExporterType, o *options) (tracesdk.SpanExporter, error) {
	switch exporter {
	case Jaeger:
		var endpoint jaeger.EndpointOption

		switch {
		case os.Getenv(JaegerAgentEndpointEnvKey) != "":
			endpoint = jaeger.WithAgentEndpoint()
		case os.Getenv(JaegerCollectorEndpointEnvKey) != "":
			endpoint = jaeger.WithCollectorEndpoint()
		default:
			return nil, fmt.Errorf("neither agent nor collector endpoint is provided")
		}

		e, err := jaeger.New(endpoint)
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}

		return e, nil
	case Stdout:
		e, err := stdouttrace.New(stdouttrace.WithWriter(o.stdout))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}

		return e, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", exporter)
	}
}

// TracerProvider returns the provider. Storage clients instrument themselves with it.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// Tracer returns the wallet tracer from the globally registered provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
