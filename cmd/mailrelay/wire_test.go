package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
	"github.com/pure-golang/mailrelay/mail/brevo"
	"github.com/pure-golang/mailrelay/mail/noop"
	"github.com/pure-golang/mailrelay/mail/smtp"
	"github.com/pure-golang/mailrelay/relay"
)

func init() {
	logger.InitDefault(logger.Config{
		Provider: logger.ProviderNoop,
		Level:    logger.INFO,
	})
}

func TestNewSender_SMTPUsesGmailCredentials(t *testing.T) {
	var cfg config.Config
	cfg.Mail = config.Mail{Provider: mail.ProviderSMTP, GmailEmail: "sender@gmail.com", GmailAppPassword: "secret"}

	sender, creds, err := newSender(cfg)
	require.NoError(t, err)

	assert.IsType(t, &smtp.Sender{}, sender)
	assert.Equal(t, relay.Credentials{SenderAddress: "sender@gmail.com", SenderSecret: "secret"}, creds)
	assert.True(t, creds.Configured())
}

func TestNewSender_SMTPWithoutCredentials(t *testing.T) {
	var cfg config.Config
	cfg.Mail.Provider = mail.ProviderSMTP

	_, creds, err := newSender(cfg)
	require.NoError(t, err)

	assert.False(t, creds.Configured())
}

func TestNewSender_Brevo(t *testing.T) {
	var cfg config.Config
	cfg.Mail.Provider = mail.ProviderBrevo
	cfg.Brevo.SenderEmail = "billing@example.com"
	cfg.Brevo.APIKey = "xkeysib-test"

	sender, creds, err := newSender(cfg)
	require.NoError(t, err)

	assert.IsType(t, &brevo.Sender{}, sender)
	assert.Equal(t, "billing@example.com", creds.SenderAddress)
	assert.True(t, creds.Configured())
}

func TestNewSender_NoopIsAlwaysConfigured(t *testing.T) {
	var cfg config.Config
	cfg.Mail.Provider = mail.ProviderNoop

	sender, creds, err := newSender(cfg)
	require.NoError(t, err)

	assert.IsType(t, &noop.Sender{}, sender)
	assert.Equal(t, noopSenderAddress, creds.SenderAddress)
	assert.True(t, creds.Configured())
}

func TestNewSender_UnknownProvider(t *testing.T) {
	var cfg config.Config
	cfg.Mail.Provider = "fax"

	_, _, err := newSender(cfg)

	assert.Error(t, err)
}

func TestSendCmd_Noop(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "noop")
	t.Setenv("LOG_PROVIDER", "noop")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"send", "--env-file", t.TempDir() + "/absent.env", "--to", "user@example.com", "--subject", "Hi", "--message", "Hello"})

	require.NoError(t, root.Execute())

	var res relay.SendResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Success)
}

func TestSendCmd_MissingCredentialsFails(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "smtp")
	t.Setenv("LOG_PROVIDER", "noop")
	t.Setenv("GMAIL_EMAIL", "")
	t.Setenv("GMAIL_APP_PASSWORD", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"send", "--env-file", t.TempDir() + "/absent.env", "--to", "user@example.com", "--subject", "Hi", "--message", "Hello"})

	require.Error(t, root.Execute())
	assert.JSONEq(t, `{"success":false,"error":"Server email credentials missing."}`, out.String())
}

func TestSendCmd_InvalidRecipient(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"send", "--to", "not-an-email"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "body.to")
}

func TestEnvCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"env"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "GMAIL_APP_PASSWORD")
}
