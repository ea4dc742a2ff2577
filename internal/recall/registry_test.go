package recall

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

var now = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func bumpedOrder(t *testing.T, store *orders.Store, id string) orders.CompletedOrder {
	t.Helper()
	store.Upsert(orders.Order{
		ID: id,
		Items: []orders.OrderItem{
			{ID: id + "-a", Name: "Pasta", StationID: "kitchen"},
			{ID: id + "-b", Name: "Spritz", StationID: "bar"},
		},
	})
	store.UpdateStationStatus(id, "kitchen", enums.OrderStatusReady, false)
	store.UpdateStationStatus(id, "bar", enums.OrderStatusReady, false)
	completed, ok := store.Bump(id)
	require.True(t, ok)
	return completed
}

func TestRecallRoundTrip(t *testing.T) {
	store := orders.NewStore(clock)
	registry := NewRegistry(store, 0, clock)
	completed := bumpedOrder(t, store, "7")
	registry.Complete(completed)

	live, ok := registry.Recall("7")
	require.True(t, ok)

	assert.Equal(t, "7", live.ID)
	assert.Equal(t, completed.Items, live.Items)
	assert.Equal(t, map[string]enums.OrderStatus{"kitchen": enums.OrderStatusReady, "bar": enums.OrderStatusReady}, live.StationStatuses)
	assert.Equal(t, enums.OrderStatusReady, live.Status)
	assert.True(t, live.IsRecalled)
	assert.Equal(t, now, *live.RecalledAt)
	assert.True(t, store.Has("7"))
	assert.Zero(t, registry.Len())

	_, ok = registry.Recall("7")
	assert.False(t, ok, "recalling twice is impossible once removed")
}

func TestRecallRejectsLiveOrUnknown(t *testing.T) {
	store := orders.NewStore(clock)
	registry := NewRegistry(store, 0, clock)
	completed := bumpedOrder(t, store, "7")
	registry.Complete(completed)
	store.Upsert(completed.Order)

	_, ok := registry.Recall("7")
	assert.False(t, ok)
	assert.True(t, registry.Has("7"))

	_, ok = registry.Recall("missing")
	assert.False(t, ok)
}

func TestRegistryKeepsMostRecentTen(t *testing.T) {
	store := orders.NewStore(clock)
	registry := NewRegistry(store, DefaultCapacity, clock)

	for i := 1; i <= 13; i++ {
		registry.Complete(bumpedOrder(t, store, fmt.Sprintf("%d", i)))
	}

	list := registry.List()
	require.Len(t, list, 10)
	assert.Equal(t, "13", list[0].ID)
	assert.Equal(t, "4", list[9].ID)
	assert.False(t, registry.Has("3"))
}

func TestCompleteReplacesDuplicateID(t *testing.T) {
	store := orders.NewStore(clock)
	registry := NewRegistry(store, 3, clock)
	first := bumpedOrder(t, store, "1")
	registry.Complete(first)
	registry.Complete(bumpedOrder(t, store, "2"))
	registry.Complete(first)

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
}
