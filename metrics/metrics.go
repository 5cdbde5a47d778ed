// Package metrics exposes the otel meter provider on a Prometheus /metrics endpoint.
package metrics

import (
	"context"
	stdErr "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Config struct {
	Enabled     bool          `envconfig:"METRICS_ENABLED" default:"false"`
	Host        string        `envconfig:"METRICS_HOST"`
	Port        int           `envconfig:"METRICS_PORT" default:"9090"`
	ReadTimeout time.Duration `envconfig:"METRICS_READ_TIMEOUT" default:"30s"`
}

// Exporter owns a meter provider and the HTTP server scraping it.
type Exporter struct {
	config   Config
	registry *prom.Registry
	provider *sdkmetric.MeterProvider
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// InitDefault builds the exporter, installs it as the global meter provider,
// starts runtime instrumentation and begins serving /metrics.
func InitDefault(c Config) (io.Closer, error) {
	e, err := New(c)
	if err != nil {
		return nil, err
	}

	otel.SetMeterProvider(e.provider)

	if err := runtime.Start(runtime.WithMeterProvider(e.provider)); err != nil {
		return nil, stdErr.Join(errors.Wrap(err, "failed to start runtime metrics"), e.Close())
	}

	if err := e.Start(); err != nil {
		return nil, stdErr.Join(errors.Wrap(err, "failed to start metrics server"), e.Close())
	}

	return e, nil
}

func New(c Config) (*Exporter, error) {
	registry := prom.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create prometheus exporter")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Exporter{
		config:   c,
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		server: &http.Server{
			Addr:              net.JoinHostPort(c.Host, fmt.Sprint(c.Port)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       c.ReadTimeout,
		},
		logger: slog.Default().WithGroup("metrics"),
	}, nil
}

// MeterProvider is the provider backing the /metrics endpoint.
func (e *Exporter) MeterProvider() *sdkmetric.MeterProvider {
	return e.provider
}

// Addr is the bound address once Start has returned, the configured one before.
func (e *Exporter) Addr() string {
	if e.listener != nil {
		return e.listener.Addr().String()
	}
	return e.server.Addr
}

// Start binds the listener synchronously and serves in the background.
func (e *Exporter) Start() error {
	ln, err := net.Listen("tcp", e.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", e.server.Addr)
	}
	e.listener = ln

	e.logger.Info("metrics server starting", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Warn("metrics server failed", "error", err.Error())
		}
	}()

	return nil
}

func (e *Exporter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return stdErr.Join(
		errors.Wrap(e.server.Close(), "failed to close metrics server"),
		errors.Wrap(e.provider.Shutdown(ctx), "failed to shutdown meter provider"),
	)
}
