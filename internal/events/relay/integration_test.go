//go:build integration

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"museion/internal/events"
	"museion/internal/events/store/outbox"
	"museion/internal/platform/kafka"
	"museion/pkg/testutil/containers"
)

// The relay against a real broker: outbox rows land on the topic in sequence
// order and are marked published only after acknowledgement.
func TestRelay_DeliversToBroker(t *testing.T) {
	broker := containers.NewRedpanda(t)
	ctx := context.Background()

	const topic = "museion.events"
	producer, err := kafka.New(ctx, []string{broker}, topic)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	store := outbox.NewInMemory()
	for i := 0; i < 5; i++ {
		e := events.Event{
			ID:         fmt.Sprintf("evt-%d", i),
			Type:       events.TypeTokenSold,
			OccurredAt: time.Now().UTC(),
		}
		require.NoError(t, store.Append(ctx, &e))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(store, producer, log, WithInterval(50*time.Millisecond))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(runCtx)
	}()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	var got []events.Event
	deadline := time.Now().Add(30 * time.Second)
	for len(got) < 5 && time.Now().Before(deadline) {
		pollCtx, pollCancel := context.WithTimeout(ctx, time.Second)
		fetches := consumer.PollFetches(pollCtx)
		pollCancel()
		fetches.EachRecord(func(rec *kgo.Record) {
			var e events.Event
			require.NoError(t, json.Unmarshal(rec.Value, &e))
			got = append(got, e)
		})
	}
	cancel()
	<-done

	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq, "broker order matches ledger sequence order")
	}

	pending, err := store.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
