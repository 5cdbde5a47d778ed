package httpserver

import (
	"context"
	stdErr "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const ShutdownTimeout = 15 * time.Second

type Config struct {
	Host         string        `envconfig:"WEBSERVER_HOST"`
	Port         int           `envconfig:"WEBSERVER_PORT" default:"8001"`
	TLSCertPath  string        `envconfig:"WEBSERVER_TLS_CERT_PATH"`
	TLSKeyPath   string        `envconfig:"WEBSERVER_TLS_KEY_PATH"`
	ReadTimeout  time.Duration `envconfig:"WEBSERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WEBSERVER_WRITE_TIMEOUT" default:"60s"`
}

// Server owns the lifecycle of the public HTTP listener.
type Server struct {
	logger *slog.Logger
	server *http.Server
	config Config
}

func NewDefault(c Config, h http.Handler) *Server {
	s := New(c, h)

	s.server.ErrorLog = slog.NewLogLogger(s.logger.Handler(), slog.LevelError)

	return s
}

func New(c Config, h http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort(c.Host, fmt.Sprint(c.Port)),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
			ReadTimeout:       c.ReadTimeout,
			// must outlive the relay send deadline
			WriteTimeout: c.WriteTimeout,
		},
		logger: slog.Default().WithGroup("webserver"),
		config: c,
	}
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start blocks until the server stops. A graceful Close yields nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.server.Addr)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))

	var err error
	if s.config.TLSCertPath == "" {
		err = s.server.Serve(ln)
	} else {
		err = s.server.ServeTLS(ln, s.config.TLSCertPath, s.config.TLSKeyPath)
	}

	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return errors.Wrapf(err, "serve failed")
}

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		err = stdErr.Join(err, errors.Wrapf(s.server.Close(), "failed to close server"))
	}
	s.logger.Info("server closed")
	return errors.Wrapf(err, "server shutdown failed")
}
