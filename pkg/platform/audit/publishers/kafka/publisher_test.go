package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "auditkit/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_ProducesKeyedRecord(t *testing.T) {
	producer := &fakeProducer{}
	ts := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	pub := New(producer, "audit-events")

	err := pub.Publish(context.Background(), audit.Event{
		Action:     "retired",
		EntityType: "asset",
		Entities:   []audit.EntityRef{{ID: "a1", Name: "pump"}},
		Timestamp:  ts,
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	record := producer.records[0]
	assert.Equal(t, "audit-events", record.Topic)
	assert.Equal(t, []byte("asset"), record.Key)
	assert.Equal(t, ts, record.Timestamp)
	assert.Equal(t, "retired", header(record, HeaderAction))

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, header(record, HeaderEventID), decoded.EventID)
	assert.NotEmpty(t, decoded.EventID)
	assert.Equal(t, []audit.EntityRef{{ID: "a1", Name: "pump"}}, decoded.Entities)
}

func TestPublisher_StampsMissingTimestamp(t *testing.T) {
	producer := &fakeProducer{}
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pub := New(producer, "audit-events")
	pub.now = func() time.Time { return fixed }

	require.NoError(t, pub.Publish(context.Background(), audit.Event{Action: "created"}))
	assert.Equal(t, fixed, producer.records[0].Timestamp)
}

func TestPublisher_ProduceFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("not leader for partition")}
	pub := New(producer, "audit-events")

	err := pub.Publish(context.Background(), audit.Event{Action: "created"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produce audit event to audit-events")
}

func TestNewClient_RequiresBrokers(t *testing.T) {
	_, err := NewClient(nil, "audit-events")
	assert.Error(t, err)
}
