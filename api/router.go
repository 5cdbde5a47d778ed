package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pure-golang/mailrelay/httpserver/middleware"
	"github.com/pure-golang/mailrelay/relay"
)

// HealthStatus is returned by GET / for uptime monitors.
const HealthStatus = "Backend is alive ✅"

type Config struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173,https://freelancer-cashflow-guard.vercel.app"`
	MaxBodyBytes   int64    `envconfig:"HTTP_MAX_BODY_BYTES" default:"1048576"`
}

// Relay is the send operation the HTTP surface dispatches to.
type Relay interface {
	Send(ctx context.Context, req relay.EmailRequest) relay.SendResult
}

// NewRouter wires the public routes behind request id, monitoring, panic
// recovery and the CORS allow-list.
func NewRouter(r Relay, c Config) http.Handler {
	h := &handler{relay: r, maxBodyBytes: c.MaxBodyBytes}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Monitoring,
		middleware.Recovery,
		cors.Handler(corsOptions(c.AllowedOrigins)),
	)

	router.Get("/", h.health)
	router.Post("/send-email", h.sendEmail)

	return router
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}
