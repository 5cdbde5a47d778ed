package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/gomail.v2"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Sender implements mail.Sender over a single SMTP session per message:
// connect, authenticate, submit, quit.
type Sender struct {
	cfg    Config
	closed atomic.Bool
}

func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send delivers msg. Every failure is returned wrapped with the step that failed.
func (s *Sender) Send(ctx context.Context, msg mail.Message) (err error) {
	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.host", s.cfg.Host),
		attribute.Int("smtp.port", s.cfg.Port),
		attribute.Bool("smtp.ssl", s.cfg.SSL),
		attribute.Bool("smtp.starttls", s.cfg.StartTLS),
		attribute.Bool("smtp.auth", s.cfg.Username != ""),
	)
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
	if msg.From.Address == "" {
		return errors.New("no from address specified")
	}
	if msg.To.Address == "" {
		return errors.New("no recipient specified")
	}

	return s.deliver(ctx, msg)
}

func (s *Sender) deliver(ctx context.Context, msg mail.Message) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	// a cancelled request tears the session down instead of waiting for the deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "failed to start SMTP session")
	}
	defer func() {
		// after a successful QUIT the connection is already gone
		_ = client.Close()
	}()

	if s.cfg.StartTLS && !s.cfg.SSL {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			return errors.Wrap(err, "failed to start TLS")
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "failed to authenticate")
		}
	}

	if err := client.Mail(msg.From.Address); err != nil {
		return errors.Wrap(err, "failed to set sender")
	}
	if err := client.Rcpt(msg.To.Address); err != nil {
		return errors.Wrapf(err, "failed to set recipient: %s", msg.To.Address)
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "failed to get data writer")
	}
	if _, err := buildMessage(msg).WriteTo(w); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "failed to write message")
	}
	// the server's verdict on the message arrives with the terminating dot
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "message rejected")
	}

	if err := client.Quit(); err != nil {
		// the message is accepted at this point; a failed QUIT does not undo it
		logger.FromContextWithErr(ctx, err).Warn("SMTP QUIT failed after delivery", slog.String("smtp.host", s.cfg.Host))
	}

	return nil
}

// dial opens the TCP connection, performs the implicit TLS handshake when
// configured and bounds the whole session with a deadline.
func (s *Sender) dial(ctx context.Context) (net.Conn, error) {
	ctx, span := tracer.Start(ctx, "SMTP.Dial")
	defer span.End()

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	span.SetAttributes(attribute.String("smtp.address", addr))

	deadline, hasDeadline := ctx.Deadline()
	if s.cfg.Timeout > 0 {
		if d := time.Now().Add(s.cfg.Timeout); !hasDeadline || d.Before(deadline) {
			deadline, hasDeadline = d, true
		}
	}

	dialer := &net.Dialer{}
	if hasDeadline {
		dialer.Deadline = deadline
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect")
		return nil, errors.Wrap(err, "failed to connect to SMTP server")
	}
	if hasDeadline {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "failed to set session deadline")
		}
	}

	if !s.cfg.SSL {
		span.SetStatus(codes.Ok, "")
		return conn, nil
	}

	tlsConn := tls.Client(conn, s.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "TLS handshake failed")
		return nil, errors.Wrap(err, "TLS handshake failed")
	}

	span.SetStatus(codes.Ok, "")
	return tlsConn, nil
}

func (s *Sender) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         s.cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.cfg.Insecure, // #nosec G402 -- controlled by config, user's responsibility
	}
}

// buildMessage renders msg as a MIME plain-text message.
func buildMessage(msg mail.Message) io.WriterTo {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", msg.From.Address, msg.From.Name)
	m.SetAddressHeader("To", msg.To.Address, msg.To.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m
}

// Close makes further sends fail. Sessions are per message so there is
// nothing else to release.
func (s *Sender) Close() error {
	s.closed.Store(true)
	return nil
}
