//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// Kafka is a single-node Redpanda broker speaking the Kafka protocol.
type Kafka struct {
	Container *redpanda.Container
	Brokers   []string
}

// NewKafka starts Redpanda and registers cleanup on t.
func NewKafka(t *testing.T) *Kafka {
	t.Helper()
	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4",
		redpanda.WithAutoCreateTopics(),
	)
	if err != nil {
		t.Fatalf("start redpanda container: %v", err)
	}
	testcontainers.CleanupContainer(t, container)

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("redpanda seed broker: %v", err)
	}
	return &Kafka{Container: container, Brokers: []string{broker}}
}
