// Package relay implements the send operation: one delivery attempt per
// request, with every failure folded into a SendResult.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

// ErrCredentialsMissing is reported when the service starts without sender credentials.
const ErrCredentialsMissing = "Server email credentials missing."

const (
	outcomeSent          = "sent"
	outcomeNotConfigured = "not_configured"
	outcomeFailed        = "failed"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/mailrelay/relay")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	sendAttempts, _ = meter.Int64Counter("relay.send_attempts")
	// nolint:errcheck
	sendDuration, _ = meter.Int64Histogram("relay.send_duration", metric.WithUnit("ms"))
)

type Config struct {
	SendTimeout time.Duration `envconfig:"RELAY_SEND_TIMEOUT" default:"20s"`
}

// Credentials identify the sender towards the mail provider. They are read
// once at startup and never change.
type Credentials struct {
	SenderAddress string
	SenderSecret  string
}

// Configured reports whether both halves are present.
func (c Credentials) Configured() bool {
	return c.SenderAddress != "" && c.SenderSecret != ""
}

// EmailRequest is one outbound message as accepted by the HTTP layer.
type EmailRequest struct {
	To      string
	Subject string
	Message string
}

// SendResult is either {success:true} or {success:false, error:<non-empty>}.
type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func Sent() SendResult {
	return SendResult{Success: true}
}

func Failed(reason string) SendResult {
	if reason == "" {
		reason = "unknown delivery error"
	}
	return SendResult{Error: reason}
}

type Options struct {
	// SendTimeout bounds a single delivery attempt. Zero disables the bound.
	SendTimeout time.Duration
	// SenderName is shown next to the sender address. Optional.
	SenderName string
}

// Service relays EmailRequests through a mail.Sender.
type Service struct {
	sender  mail.Sender
	creds   Credentials
	options Options
}

func NewService(sender mail.Sender, creds Credentials, options *Options) *Service {
	s := &Service{sender: sender, creds: creds}
	if options != nil {
		s.options = *options
	}
	return s
}

// Configured reports whether sends can reach the provider at all.
func (s *Service) Configured() bool {
	return s.creds.Configured()
}

// Send makes exactly one delivery attempt. It never returns an error and never panics.
func (s *Service) Send(ctx context.Context, req EmailRequest) (res SendResult) {
	start := time.Now()
	log := logger.FromContext(ctx).With(slog.String("to", req.To))

	outcome := outcomeFailed
	defer func() {
		sendAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		sendDuration.Record(ctx, time.Since(start).Milliseconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	if !s.creds.Configured() {
		outcome = outcomeNotConfigured
		log.Warn("send refused, credentials are not configured")
		return Failed(ErrCredentialsMissing)
	}

	if err := s.deliver(ctx, req); err != nil {
		logger.FromContextWithErr(ctx, err).Warn("email delivery failed", slog.String("to", req.To))
		return Failed(err.Error())
	}

	outcome = outcomeSent
	log.Info("email sent", slog.Duration("duration", time.Since(start)))
	return Sent()
}

func (s *Service) deliver(ctx context.Context, req EmailRequest) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("mail sender panicked: %v", p)
		}
	}()

	if s.options.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.SendTimeout)
		defer cancel()
	}

	return s.sender.Send(ctx, mail.Message{
		From:    mail.Address{Name: s.options.SenderName, Address: s.creds.SenderAddress},
		To:      mail.Address{Address: req.To},
		Subject: req.Subject,
		Body:    req.Message,
	})
}
