package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) stores.Store { return NewStore() })
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	store := NewStore()
	ev := storetest.Event(storetest.Alice, kinds.TextNote, 1, "original")
	require.NoError(t, store.SaveEvent(context.Background(), ev))

	ev.Content = "mutated by caller"
	got, err := store.QueryEvents(context.Background(), filter.Filter{IDs: []string{ev.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Content)
	assert.Equal(t, 1, store.Len())
}
