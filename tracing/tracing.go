// Package tracing installs the global otel tracer provider.
package tracing

import (
	"io"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	Endpoint    string `envconfig:"TRACING_ENDPOINT"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"mailrelay"`
	AppVersion  string `envconfig:"APP_VERSION" default:"dev"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

type Provider interface {
	trace.TracerProvider
	io.Closer
}

// ProviderBuilder hides the exporter specific construction.
type ProviderBuilder func() (Provider, error)

// Init installs the built provider globally. On failure a NoopProvider is
// returned together with the error and the global state is left untouched.
func Init(build ProviderBuilder) (Provider, error) {
	provider, err := build()
	if err != nil {
		return NoopProvider{}, errors.Wrap(err, "failed to load tracing provider")
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider, nil
}

type NoopProvider struct{ noop.TracerProvider }

func (NoopProvider) Close() error { return nil }
