package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailrelay/logger"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/mailrelay/httpserver/middleware")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	requestsCount, _      = meter.Int64Counter("http.request_count")
	requestTimeHist, _    = meter.Int64Histogram("http.request_time", metric.WithUnit("ms"))
	requestBodyLenHist, _ = meter.Int64Histogram("http.request_body_len", metric.WithUnit("By"))
	tracer                = otel.Tracer("github.com/pure-golang/mailrelay/httpserver/middleware")
)

// Monitoring traces incoming requests, records request metrics and attaches a
// request scoped logger to the context. Bodies are not recorded: they carry
// recipient addresses and message text.
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTime := time.Now()

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		traceID := span.SpanContext().TraceID().String()

		log := slog.Default().With("method", r.Method, "path", r.URL.Path, "trace_id", traceID)
		if id := RequestIDFromContext(ctx); id != "" {
			log = log.With("request_id", id)
			span.SetAttributes(attribute.String("http.request_id", id))
		}

		w.Header().Set("X-Trace-Id", traceID)

		srw := newStatefulRespWriter(w)
		next.ServeHTTP(srw, r.WithContext(logger.NewContext(ctx, log)))
		if srw.status == 0 {
			srw.status = http.StatusOK
		}

		// chi resolves the pattern while routing, after the span was opened
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
			span.SetName(r.Method + " " + route)
		}

		attrs := semconv.HTTPServerAttributesFromHTTPRequest("mailrelay", route, r)
		attrs = append(attrs,
			attribute.Int("http.response.status", srw.status),
			attribute.Int64("http.request.content_length", r.ContentLength),
			attribute.String("http.request.header.User-Agent", r.UserAgent()),
			attribute.String("http.request.header.Origin", r.Header.Get("Origin")),
		)
		span.SetAttributes(attrs...)

		metricLabels := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		}
		requestsCount.Add(ctx, 1, metric.WithAttributes(append(metricLabels,
			attribute.Int("http.response.code", srw.status))...))
		requestTimeHist.Record(ctx, time.Since(reqTime).Milliseconds(), metric.WithAttributes(metricLabels...))
		if r.ContentLength > 0 {
			requestBodyLenHist.Record(ctx, r.ContentLength, metric.WithAttributes(metricLabels...))
		}

		log.Debug("request served", "status", srw.status, "duration", time.Since(reqTime))

		if srw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(srw.status))
			return
		}
		span.SetStatus(codes.Ok, "")
	})
}

// statefulRespWriter remembers the status sent downstream.
type statefulRespWriter struct {
	http.ResponseWriter
	status int
}

func newStatefulRespWriter(w http.ResponseWriter) *statefulRespWriter {
	return &statefulRespWriter{ResponseWriter: w}
}

func (w *statefulRespWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statefulRespWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statefulRespWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statefulRespWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
