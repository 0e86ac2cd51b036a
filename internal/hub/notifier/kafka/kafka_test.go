package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
	"bridgehub/pkg/domain"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func message() models.CrossChainMessage {
	var sender domain.Identity
	sender[31] = 7
	return models.CrossChainMessage{
		ID:               "msg-1",
		SourceChain:      1,
		DestinationChain: 8453,
		Sender:           sender,
		Kind:             models.KindTokenTransfer,
		Payload:          []byte("payload"),
		Nonce:            3,
		Timestamp:        1_700_000_000,
	}
}

func TestPublish(t *testing.T) {
	producer := &fakeProducer{}
	n := New(producer, "bridge.envelopes")

	msg := message()
	require.NoError(t, n.Publish(context.Background(), msg))
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "bridge.envelopes", rec.Topic)
	assert.Equal(t, []byte(msg.Sender.String()), rec.Key)

	decoded, err := envelope.Decode(rec.Value)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "msg-1", headers[HeaderMessageID])
	assert.Equal(t, "token_transfer", headers[HeaderKind])
}

func TestPublish_ProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("not leader")}
	err := New(producer, "bridge.envelopes").Publish(context.Background(), message())
	assert.ErrorContains(t, err, "not leader")
	assert.ErrorContains(t, err, "msg-1")
}
