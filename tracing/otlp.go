package tracing

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
)

var _ Provider = (*OTLPProvider)(nil)

// OTLPProvider batches spans to an OTLP/HTTP collector.
type OTLPProvider struct {
	*tracesdk.TracerProvider
}

// Close flushes pending spans before shutting the exporter down.
func (p *OTLPProvider) Close() error {
	ctx := context.Background()
	if err := p.ForceFlush(ctx); err != nil {
		if shutdownErr := p.Shutdown(ctx); shutdownErr != nil {
			return errors.Wrap(err, "otlp force flush failed (also shutdown failed)")
		}
		return errors.Wrap(err, "otlp force flush failed")
	}

	return errors.Wrap(p.Shutdown(ctx), "shutdown otlp provider")
}

func NewOTLPBuilder(c Config) ProviderBuilder {
	return func() (Provider, error) {
		if c.Endpoint == "" {
			return nil, errors.New("empty tracing endpoint")
		}
		if c.ServiceName == "" {
			return nil, errors.New("service name is empty")
		}

		exp, err := otlptrace.New(
			context.Background(),
			otlptracehttp.NewClient(otlptracehttp.WithEndpointURL(c.Endpoint)),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create otlp exporter")
		}

		tp := tracesdk.NewTracerProvider(
			tracesdk.WithBatcher(exp),
			tracesdk.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(c.ServiceName),
				semconv.ServiceVersionKey.String(c.AppVersion),
			)),
			tracesdk.WithSampler(tracesdk.AlwaysSample()),
		)

		return &OTLPProvider{TracerProvider: tp}, nil
	}
}
