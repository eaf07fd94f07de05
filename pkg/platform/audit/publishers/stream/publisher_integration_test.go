//go:build integration

package stream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/audit/publishers/stream"
	"auditkit/pkg/testutil/containers"
)

func TestPublisher_RoundTripThroughRedis(t *testing.T) {
	rc := containers.NewRedis(t)
	ctx := context.Background()
	pub := stream.New(rc.Client, "audit-events", stream.WithMaxLen(10))

	for i := 0; i < 25; i++ {
		require.NoError(t, pub.Publish(ctx, audit.Event{
			Action:     audit.ActionUpdated,
			EntityType: "asset",
			Entities:   []audit.EntityRef{{ID: "a1", Name: "pump"}},
		}))
	}

	length, err := rc.Client.XLen(ctx, "audit-events").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(25))

	msgs, err := rc.Client.XRevRangeN(ctx, "audit-events", "+", "-", 1).Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	event, err := stream.Decode(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, audit.ActionUpdated, event.Action)
	assert.True(t, event.HasEntity("a1"))
}
