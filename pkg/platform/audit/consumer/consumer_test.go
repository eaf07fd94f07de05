package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/audit/mocks"
	"auditkit/pkg/platform/audit/store/memory"
)

const topic = "audit-events"

// fakeFetcher hands out one batch per poll and cancels the run once drained.
type fakeFetcher struct {
	batches   [][]*kgo.Record
	committed []*kgo.Record
	cancel    context.CancelFunc
}

func (f *fakeFetcher) PollFetches(context.Context) kgo.Fetches {
	if len(f.batches) == 0 {
		f.cancel()
		return nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      topic,
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: batch}},
	}}}}
}

func (f *fakeFetcher) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	f.committed = append(f.committed, rs...)
	return nil
}

type ConsumerSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
}

func TestConsumerSuite(t *testing.T) {
	suite.Run(t, new(ConsumerSuite))
}

func (s *ConsumerSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *ConsumerSuite) TearDownTest() {
	s.cancel()
}

func (s *ConsumerSuite) record(offset int64, event audit.Event) *kgo.Record {
	value, err := json.Marshal(event)
	s.Require().NoError(err)
	return &kgo.Record{
		Topic:   topic,
		Offset:  offset,
		Key:     []byte(event.EntityType),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: HeaderEventID, Value: []byte(event.EventID)}},
	}
}

// =============================================================================
// Consumer loop
// =============================================================================

func (s *ConsumerSuite) TestMaterializesAndCommits() {
	store := memory.NewInMemoryStore()
	fetcher := &fakeFetcher{cancel: s.cancel, batches: [][]*kgo.Record{
		{
			s.record(0, audit.Event{EventID: "e1", Action: "created", EntityType: "asset"}),
			s.record(1, audit.Event{EventID: "e2", Action: "deleted", EntityType: "asset"}),
		},
		{{Topic: topic, Offset: 2, Value: []byte("not json")}},
	}}
	router := NewRouter(nil, nil).Register(topic, NewStoreHandler(store, nil))

	err := New(fetcher, router).Run(s.ctx)
	s.ErrorIs(err, context.Canceled)

	s.Equal(2, store.Len())
	s.Len(fetcher.committed, 3, "malformed records are committed and skipped")
}

func offsets(rs []*kgo.Record) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Offset)
	}
	return out
}

func (s *ConsumerSuite) TestFailedRecordIsRetriedBeforeLaterOffsets() {
	store := memory.NewInMemoryStore()
	fetcher := &fakeFetcher{cancel: s.cancel, batches: [][]*kgo.Record{
		{
			s.record(0, audit.Event{EventID: "e0", Action: "created"}),
			s.record(1, audit.Event{EventID: "e1", Action: "created"}),
			s.record(2, audit.Event{EventID: "e2", Action: "created"}),
		},
		{s.record(3, audit.Event{EventID: "e3", Action: "created"})},
	}}
	materialize := NewStoreHandler(store, nil)
	failures := 0
	handler := HandlerFunc(func(ctx context.Context, m *Message) error {
		if m.Offset == 1 && failures == 0 {
			failures++
			return errors.New("store down")
		}
		return materialize.Handle(ctx, m)
	})

	err := New(fetcher, handler, WithRetryBackoff(time.Millisecond, 2*time.Millisecond)).Run(s.ctx)
	s.ErrorIs(err, context.Canceled)

	s.Equal(1, failures)
	s.Equal(4, store.Len())
	s.Equal([]int64{0, 1, 2, 3}, offsets(fetcher.committed))
}

func (s *ConsumerSuite) TestCancelDuringRetryCommitsHandledPrefixOnly() {
	fetcher := &fakeFetcher{cancel: s.cancel, batches: [][]*kgo.Record{
		{
			s.record(0, audit.Event{EventID: "e0", Action: "created"}),
			s.record(1, audit.Event{EventID: "e1", Action: "created"}),
			s.record(2, audit.Event{EventID: "e2", Action: "created"}),
		},
		{s.record(3, audit.Event{EventID: "e3", Action: "created"})},
	}}
	attempts := 0
	handler := HandlerFunc(func(_ context.Context, m *Message) error {
		if m.Offset != 1 {
			return nil
		}
		attempts++
		if attempts == 3 {
			s.cancel()
		}
		return errors.New("store down")
	})

	err := New(fetcher, handler, WithRetryBackoff(time.Millisecond, 2*time.Millisecond)).Run(s.ctx)
	s.ErrorIs(err, context.Canceled)

	s.Equal(3, attempts)
	s.Equal([]int64{0}, offsets(fetcher.committed), "nothing past the unhandled record is committed")
	s.Len(fetcher.batches, 1, "no further poll after cancellation")
}

// =============================================================================
// Store handler
// =============================================================================

func (s *ConsumerSuite) TestStoreHandler() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	handler := NewStoreHandler(store, nil)

	s.Run("event id falls back to the header", func() {
		value, _ := json.Marshal(audit.Event{Action: "created", EntityType: "asset"})
		store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal("from-header", e.EventID)
				return nil
			})
		msg := FromRecord(&kgo.Record{
			Topic:   topic,
			Value:   value,
			Headers: []kgo.RecordHeader{{Key: HeaderEventID, Value: []byte("from-header")}},
		})
		s.NoError(handler.Handle(s.ctx, msg))
	})

	s.Run("missing action is skipped", func() {
		value, _ := json.Marshal(audit.Event{EventID: "e1"})
		s.NoError(handler.Handle(s.ctx, &Message{Topic: topic, Value: value}))
	})

	s.Run("store failure is returned", func() {
		value, _ := json.Marshal(audit.Event{EventID: "e1", Action: "created"})
		store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("conn reset"))
		err := handler.Handle(s.ctx, &Message{Topic: topic, Value: value})
		s.Error(err)
		s.Contains(err.Error(), "store audit event e1")
	})
}

// =============================================================================
// Router
// =============================================================================

func (s *ConsumerSuite) TestRouter() {
	var routed, fell []string
	record := func(dst *[]string) TopicHandler {
		return HandlerFunc(func(_ context.Context, m *Message) error {
			*dst = append(*dst, m.Topic)
			return nil
		})
	}

	s.Run("dispatches by topic", func() {
		r := NewRouter(nil, nil).Register("a", record(&routed))
		s.NoError(r.Handle(s.ctx, &Message{Topic: "a"}))
		s.NoError(r.Handle(s.ctx, &Message{Topic: "unknown"}))
		s.Equal([]string{"a"}, routed)
		s.ElementsMatch([]string{"a"}, r.Topics())
	})

	s.Run("unknown topics go to the fallback", func() {
		r := NewRouter(nil, record(&fell))
		s.NoError(r.Handle(s.ctx, &Message{Topic: "b"}))
		s.Equal([]string{"b"}, fell)
	})
}
