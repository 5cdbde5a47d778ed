// Package config gathers every component's settings into one value loaded at startup.
package config

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/api"
	"github.com/pure-golang/mailrelay/env"
	"github.com/pure-golang/mailrelay/httpserver"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
	"github.com/pure-golang/mailrelay/mail/brevo"
	"github.com/pure-golang/mailrelay/mail/smtp"
	"github.com/pure-golang/mailrelay/metrics"
	"github.com/pure-golang/mailrelay/relay"
	"github.com/pure-golang/mailrelay/tracing"
)

// Mail selects the provider and holds the Gmail credentials used by the SMTP one.
type Mail struct {
	Provider         mail.Provider `envconfig:"MAIL_PROVIDER" default:"smtp"`
	GmailEmail       string        `envconfig:"GMAIL_EMAIL"`
	GmailAppPassword string        `envconfig:"GMAIL_APP_PASSWORD"`
}

type Config struct {
	Mail    Mail
	SMTP    smtp.Config
	Brevo   brevo.Config
	Relay   relay.Config
	Server  httpserver.Config
	API     api.Config
	Logger  logger.Config
	Metrics metrics.Config
	Tracing tracing.Config
}

// Load reads every part from the environment, .env files first.
func Load(files ...string) (Config, error) {
	var c Config
	for _, part := range c.parts() {
		if err := env.InitConfig(part, files...); err != nil {
			return Config{}, err
		}
	}

	switch c.Mail.Provider {
	case mail.ProviderSMTP, mail.ProviderBrevo, mail.ProviderNoop:
	default:
		return Config{}, errors.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}

	return c, nil
}

// PrintUsage lists every variable Load understands.
func PrintUsage(w io.Writer) error {
	var c Config
	return env.PrintUsage(w, c.parts()...)
}

func (c *Config) parts() []any {
	return []any{
		&c.Mail, &c.SMTP, &c.Brevo, &c.Relay, &c.Server,
		&c.API, &c.Logger, &c.Metrics, &c.Tracing,
	}
}
