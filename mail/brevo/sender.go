package brevo

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailrelay/mail"
)

var (
	_      mail.Sender = (*Sender)(nil)
	tracer             = otel.Tracer("github.com/pure-golang/mailrelay/mail/brevo")
)

const sendPath = "/v3/smtp/email"

type contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type sendRequest struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	Subject     string    `json:"subject"`
	TextContent string    `json:"textContent"`
}

// Sender implements mail.Sender on top of the Brevo HTTP API.
type Sender struct {
	cfg    Config
	client *resty.Client
	closed atomic.Bool
}

func NewSender(cfg Config) *Sender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &Sender{cfg: cfg, client: client}
}

func (s *Sender) Send(ctx context.Context, msg mail.Message) (err error) {
	ctx, span := tracer.Start(ctx, "Brevo.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}()

	if s.closed.Load() {
		return errors.New("sender is closed")
	}
	if msg.To.Address == "" {
		return errors.New("no recipient specified")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(s.request(msg)).
		Post(sendPath)
	if err != nil {
		return errors.Wrap(err, "failed to call brevo")
	}
	span.SetAttributes(attribute.Int("http.response.status", resp.StatusCode()))

	if resp.IsError() {
		return errors.Errorf("brevo rejected message: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}

	return nil
}

func (s *Sender) request(msg mail.Message) sendRequest {
	from := contact{Name: msg.From.Name, Email: msg.From.Address}
	if from.Email == "" {
		from.Email = s.cfg.SenderEmail
	}
	if from.Name == "" {
		from.Name = s.cfg.SenderName
	}
	if from.Name == "" {
		from.Name = DefaultSenderName
	}

	subject := msg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	return sendRequest{
		Sender:      from,
		To:          []contact{{Name: msg.To.Name, Email: msg.To.Address}},
		Subject:     subject,
		TextContent: msg.Body,
	}
}

func (s *Sender) Close() error {
	s.closed.Store(true)
	return nil
}
