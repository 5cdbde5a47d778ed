package main

import (
	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/mail"
	"github.com/pure-golang/mailrelay/mail/brevo"
	"github.com/pure-golang/mailrelay/mail/noop"
	"github.com/pure-golang/mailrelay/mail/smtp"
	"github.com/pure-golang/mailrelay/relay"
)

const noopSenderAddress = "noreply@localhost"

// newSender picks the transport named by MAIL_PROVIDER together with the
// credentials that decide whether the relay is configured.
func newSender(cfg config.Config) (mail.Sender, relay.Credentials, error) {
	switch cfg.Mail.Provider {
	case mail.ProviderSMTP:
		c := cfg.SMTP
		c.Username = cfg.Mail.GmailEmail
		c.Password = cfg.Mail.GmailAppPassword
		return smtp.NewSender(c), relay.Credentials{
			SenderAddress: cfg.Mail.GmailEmail,
			SenderSecret:  cfg.Mail.GmailAppPassword,
		}, nil
	case mail.ProviderBrevo:
		return brevo.NewSender(cfg.Brevo), relay.Credentials{
			SenderAddress: cfg.Brevo.SenderEmail,
			SenderSecret:  cfg.Brevo.APIKey,
		}, nil
	case mail.ProviderNoop:
		from := cfg.Mail.GmailEmail
		if from == "" {
			from = noopSenderAddress
		}
		return noop.NewSender(), relay.Credentials{SenderAddress: from, SenderSecret: "noop"}, nil
	default:
		return nil, relay.Credentials{}, errors.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

func newRelay(cfg config.Config) (*relay.Service, mail.Sender, error) {
	sender, creds, err := newSender(cfg)
	if err != nil {
		return nil, nil, err
	}

	return relay.NewService(sender, creds, &relay.Options{
		SendTimeout: cfg.Relay.SendTimeout,
	}), sender, nil
}
