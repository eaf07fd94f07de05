package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"auditkit/internal/platform/config"
	platformredis "auditkit/internal/platform/redis"
	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/audit/publisher"
	"auditkit/pkg/platform/audit/publishers/fanout"
	"auditkit/pkg/platform/audit/publishers/guard"
	"auditkit/pkg/platform/audit/publishers/kafka"
	"auditkit/pkg/platform/audit/publishers/stream"
	"auditkit/pkg/platform/audit/store/memory"
	"auditkit/pkg/platform/audit/store/postgres"
	"auditkit/pkg/platform/circuit"
)

// recordStore is where events are kept and queried.
type recordStore interface {
	audit.Store
	ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error)
}

// sinks owns every audit sink and the connections behind them.
type sinks struct {
	store     recordStore
	base      *publisher.Publisher
	publisher *fanout.Publisher
	db        *sql.DB
	redis     *platformredis.Client
	kafka     *kgo.Client
}

func openSinks(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = db
		pg := postgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.store = pg
	} else {
		s.store = memory.NewInMemoryStore()
	}

	s.base = publisher.NewPublisher(s.store,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(log),
	)
	s.publisher = fanout.New().Add("store", s.base)

	var streamSink audit.Publisher
	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		s.Close()
		return nil, err
	}
	if rc != nil {
		s.redis = rc
		streamSink = stream.New(rc.Client, cfg.Redis.Stream)
	}

	if len(cfg.Kafka.Brokers) == 0 {
		if streamSink != nil {
			s.publisher.Add("stream", streamSink)
		}
		return s, nil
	}

	kc, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.kafka = kc
	if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.Topic, 1, 1); err != nil {
		log.WarnContext(ctx, "kafka topic bootstrap failed", "topic", cfg.Kafka.Topic, "error", err)
	}

	fallback := streamSink
	if fallback == nil {
		// the record store already holds the event
		fallback = audit.PublisherFunc(func(ctx context.Context, e audit.Event) error {
			log.WarnContext(ctx, "kafka unavailable, event kept in record store only", "event_id", e.EventID)
			return nil
		})
	}
	breaker := circuit.New("kafka", circuit.WithFailureThreshold(cfg.Audit.BreakerThreshold))
	s.publisher.Add("kafka", guard.New(kafka.New(kc, cfg.Kafka.Topic, kafka.WithLogger(log)), fallback, breaker,
		guard.WithLogger(log),
		guard.WithMetrics(guard.NewMetrics(reg, "kafka")),
	))
	return s, nil
}

// Health pings the backing services that are configured.
func (s *sinks) Health(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains the buffered publisher before closing connections.
func (s *sinks) Close() {
	if s.base != nil {
		_ = s.base.Close()
	}
	if s.kafka != nil {
		s.kafka.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
