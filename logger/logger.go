package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

type Level string
type Provider string
type contextKeyT string

var contextKey = contextKeyT("github.com/pure-golang/mailrelay/logger")

const (
	INFO  Level = "info"
	ERROR Level = "error"
	WARN  Level = "warn"
	DEBUG Level = "debug"

	ProviderDevSlog Provider = "dev"      // colored human readable output
	ProviderStdJson Provider = "std_json" // production
	ProviderNoop    Provider = "noop"     // unit tests
)

type Config struct {
	Provider Provider `envconfig:"LOG_PROVIDER" default:"std_json"`
	Level    Level    `envconfig:"LOG_LEVEL" default:"info"`
}

// New builds a logger writing to stdout according to c.
func New(c Config) *slog.Logger {
	return NewWithWriter(c, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(c Config, w io.Writer) *slog.Logger {
	level := convertLevel(c.Level)
	switch c.Provider {
	case ProviderDevSlog:
		return slog.New(devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			},
			NewLineAfterLog:    true,
			MaxErrorStackTrace: 40,
			SortKeys:           true,
			TimeFormat:         "[15:04:05]",
			DebugColor:         devslog.Magenta,
			StringerFormatter:  true,
		}))
	case ProviderNoop:
		return Discard()
	case ProviderStdJson:
		fallthrough
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// InitDefault builds a logger, installs it as slog default and routes
// OpenTelemetry internal errors into it.
func InitDefault(c Config) *slog.Logger {
	l := New(c)
	slog.SetDefault(l)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		slog.Default().Error("opentelemetry", "error", err.Error())
	}))
	return l
}

// FromContext returns the request scoped logger or slog default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

// NewContext stores l in ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// WithErr returns default logger with error attached.
func WithErr(err error) *slog.Logger {
	return appendErr(slog.Default(), err)
}

// FromContextWithErr extracts logger from ctx and attaches error field
// and the pkg/errors stack trace when present.
func FromContextWithErr(ctx context.Context, err error) *slog.Logger {
	return appendErr(FromContext(ctx), err)
}

func appendErr(l *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return l
	}

	var stackTracer interface {
		StackTrace() errors.StackTrace
	}
	if errors.As(err, &stackTracer) {
		l = l.With("stack", stackTracer.StackTrace())
	}

	return l.With("error", err.Error())
}

func convertLevel(level Level) slog.Level {
	switch level {
	case ERROR:
		return slog.LevelError
	case WARN:
		return slog.LevelWarn
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		fallthrough
	default:
		return slog.LevelInfo
	}
}
