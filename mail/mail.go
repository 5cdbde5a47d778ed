package mail

import (
	"context"
	"io"
)

// Sender delivers a single message. Implementations make exactly one
// delivery attempt per call and never retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	io.Closer
}

// Message is a plain-text email with one recipient.
type Message struct {
	From    Address
	To      Address
	Subject string
	Body    string
}

// Address represents an email address.
type Address struct {
	Name    string // "Freelancer Cashflow Guard"
	Address string // "billing@example.com"
}

// Provider names a Sender implementation.
type Provider string

const (
	ProviderSMTP  Provider = "smtp"
	ProviderBrevo Provider = "brevo"
	ProviderNoop  Provider = "noop" // logs instead of sending
)
