package noop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Sender logs messages instead of delivering them. Meant for local runs
// where no mail provider is reachable.
type Sender struct {
	closed atomic.Bool
	sent   atomic.Int64
}

func NewSender() *Sender {
	return &Sender{}
}

func (n *Sender) Send(ctx context.Context, msg mail.Message) error {
	if n.closed.Load() {
		return errors.New("sender is closed")
	}
	n.sent.Add(1)
	logger.FromContext(ctx).Info("noop sender discarded message",
		slog.String("to", msg.To.Address),
		slog.Int("subject_len", len(msg.Subject)),
		slog.Int("body_len", len(msg.Body)),
	)
	return nil
}

// Sent reports how many messages were accepted.
func (n *Sender) Sent() int64 {
	return n.sent.Load()
}

func (n *Sender) Close() error {
	n.closed.Store(true)
	return nil
}
