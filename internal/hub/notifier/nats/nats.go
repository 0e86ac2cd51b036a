// Package nats publishes transfer envelopes to NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
)

// JetStream is the subset of nats.JetStreamContext the notifier uses.
type JetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Notifier publishes each envelope on "<prefix>.<destination chain>.<kind>".
// The message id is set as Nats-Msg-Id so the stream drops duplicates
// inside its dedupe window.
type Notifier struct {
	js     JetStream
	prefix string
}

func New(js JetStream, prefix string) *Notifier {
	return &Notifier{js: js, prefix: prefix}
}

func (n *Notifier) Subject(msg models.CrossChainMessage) string {
	return n.prefix + "." + strconv.FormatUint(uint64(msg.DestinationChain), 10) + "." + msg.Kind.String()
}

func (n *Notifier) Publish(ctx context.Context, msg models.CrossChainMessage) error {
	m := nats.NewMsg(n.Subject(msg))
	m.Data = envelope.Encode(msg)
	m.Header.Set(nats.MsgIdHdr, msg.ID)
	if _, err := n.js.PublishMsg(m, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish envelope %s to %s: %w", msg.ID, m.Subject, err)
	}
	return nil
}

// Connect dials url and returns the connection with its JetStream context.
func Connect(url string, timeout time.Duration) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return conn, js, nil
}

// EnsureStream creates the envelope stream over "<prefix>.>" if missing.
func EnsureStream(js nats.JetStreamContext, stream, prefix string) error {
	_, err := js.StreamInfo(stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", stream, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{prefix + ".>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", stream, err)
	}
	return nil
}
