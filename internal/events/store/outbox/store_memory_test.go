package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/internal/events"
)

func TestAppend_AssignsDenseSequences(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := events.Event{Type: events.TypeTokenMinted}
		require.NoError(t, s.Append(ctx, &e))
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestFetchAndMarkPublished(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := events.Event{Type: events.TypeTokenMinted}
		require.NoError(t, s.Append(ctx, &e))
	}

	batch, err := s.FetchUnpublished(ctx, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, uint64(1), batch[0].Seq)

	require.NoError(t, s.MarkPublished(ctx, []uint64{1, 2, 3}))

	batch, err = s.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, uint64(4), batch[0].Seq)
}

func TestListAfter_PagesInSequenceOrder(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := events.Event{Type: events.TypeTokenSold}
		require.NoError(t, s.Append(ctx, &e))
	}
	// Published state does not affect the feed.
	require.NoError(t, s.MarkPublished(ctx, []uint64{1, 2, 3, 4, 5}))

	page, err := s.ListAfter(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].Seq)
	assert.Equal(t, uint64(4), page[1].Seq)

	page, err = s.ListAfter(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
