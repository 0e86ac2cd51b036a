// Package kafka publishes transfer envelopes to a Kafka topic.
//
// Records are keyed by sender so a sender's envelopes stay ordered within a
// partition. The value is the binary envelope; the message id travels in a
// header so consumers can drop redeliveries.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
)

const (
	HeaderMessageID = "message-id"
	HeaderKind      = "message-kind"
)

// Producer is the subset of *kgo.Client the notifier uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Notifier struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Notifier {
	return &Notifier{producer: producer, topic: topic}
}

// Record builds the Kafka record for msg.
func (n *Notifier) Record(msg models.CrossChainMessage) *kgo.Record {
	return &kgo.Record{
		Topic: n.topic,
		Key:   []byte(msg.Sender.String()),
		Value: envelope.Encode(msg),
		Headers: []kgo.RecordHeader{
			{Key: HeaderMessageID, Value: []byte(msg.ID)},
			{Key: HeaderKind, Value: []byte(msg.Kind.String())},
		},
	}
}

func (n *Notifier) Publish(ctx context.Context, msg models.CrossChainMessage) error {
	if err := n.producer.ProduceSync(ctx, n.Record(msg)).FirstErr(); err != nil {
		return fmt.Errorf("produce envelope %s to %s: %w", msg.ID, n.topic, err)
	}
	return nil
}

// NewClient connects a producer with idempotent writes and full acks.
func NewClient(brokers []string, clientID string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
