package modifications

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*orders.Store, *Tracker, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)}
	store := orders.NewStore(c.now)
	store.Upsert(orders.Order{
		ID:          "1",
		TableNumber: "3",
		Items: []orders.OrderItem{
			{ID: "burger", Name: "Burger", Quantity: 1, StationID: "kitchen"},
			{ID: "cola", Name: "Cola", Quantity: 1, StationID: "bar"},
		},
	})
	store.UpdateStationStatus("1", "kitchen", enums.OrderStatusReady, false)
	store.UpdateStationStatus("1", "bar", enums.OrderStatusReady, false)
	tracker := NewTracker(store, 30*time.Second, c.now, func(id string) bool { return id != "grill" })
	seq := 0
	tracker.newID = func() string {
		seq++
		if seq == 1 {
			return "new-item"
		}
		return fmt.Sprintf("new-item-%d", seq)
	}
	return store, tracker, c
}

func TestApplyAddItemResetsStation(t *testing.T) {
	_, tracker, c := setup(t)

	o, ok := tracker.Apply("1", Change{AddItems: []orders.OrderItem{{Name: "Fries", StationID: "kitchen"}}})
	require.True(t, ok)

	assert.True(t, o.IsModified)
	assert.Equal(t, c.t, *o.ModifiedAt)
	require.Len(t, o.Items, 3)
	added := o.Items[2]
	assert.Equal(t, "new-item", added.ID)
	assert.True(t, added.IsNew)
	assert.Equal(t, 1, added.Quantity)
	assert.Equal(t, enums.OrderStatusPending, o.StationStatuses["kitchen"])
	assert.Equal(t, enums.OrderStatusReady, o.StationStatuses["bar"])
}

func TestApplyNewStationJoinsMap(t *testing.T) {
	_, tracker, _ := setup(t)

	o, ok := tracker.Apply("1", Change{AddItems: []orders.OrderItem{{Name: "Brownie", StationID: "dessert"}}})
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusPending, o.StationStatuses["dessert"])
	assert.Len(t, o.StationStatuses, 3)
}

func TestApplyQuantityAndCustomizations(t *testing.T) {
	_, tracker, _ := setup(t)

	o, ok := tracker.Apply("1", Change{
		Quantities:     map[string]int{"burger": 2},
		Customizations: map[string][]string{"cola": {"no ice"}},
	})
	require.True(t, ok)

	burger, _ := o.Item("burger")
	assert.Equal(t, 2, burger.Quantity)
	assert.True(t, burger.IsModified)
	assert.Equal(t, "qty 1 -> 2", burger.ChangeDetails)
	assert.Equal(t, enums.OrderStatusPending, o.StationStatuses["kitchen"])

	cola, _ := o.Item("cola")
	assert.Equal(t, []string{"no ice"}, cola.Customizations)
	assert.Equal(t, enums.OrderStatusReady, o.StationStatuses["bar"], "a customization alone keeps the station status")
}

func TestApplyRemoveDropsEmptyStation(t *testing.T) {
	_, tracker, _ := setup(t)

	o, ok := tracker.Apply("1", Change{RemoveItemIDs: []string{"cola"}})
	require.True(t, ok)
	assert.Len(t, o.Items, 1)
	_, hasBar := o.StationStatuses["bar"]
	assert.False(t, hasBar)
}

func TestApplySkipsUnknownStation(t *testing.T) {
	store, tracker, _ := setup(t)
	before, _ := store.Get("1")

	_, ok := tracker.Apply("1", Change{AddItems: []orders.OrderItem{{Name: "Ribeye", StationID: "grill"}}})
	assert.False(t, ok)
	after, _ := store.Get("1")
	assert.Equal(t, before, after)

	o, ok := tracker.Apply("1", Change{AddItems: []orders.OrderItem{
		{Name: "Ribeye", StationID: "grill"},
		{Name: "Fries", StationID: "kitchen"},
	}})
	require.True(t, ok)
	require.Len(t, o.Items, 3)
	assert.Equal(t, "Fries", o.Items[2].Name)
	assert.NotContains(t, o.StationStatuses, "grill")
}

func TestModifiedReadyOrderCannotBeBumped(t *testing.T) {
	store, tracker, _ := setup(t)

	o, ok := tracker.Apply("1", Change{AddItems: []orders.OrderItem{{Name: "Fries", StationID: "kitchen"}}})
	require.True(t, ok)
	require.Equal(t, enums.OrderStatusReady, o.Status)

	_, bumped := store.Bump("1")
	assert.False(t, bumped)
	res := store.UpdateStationStatus("1", "kitchen", enums.OrderStatusPending, true)
	assert.Nil(t, res.Completed)
	assert.True(t, store.Has("1"))

	store.UpdateStationStatus("1", "kitchen", enums.OrderStatusReady, false)
	completed, bumped := store.Bump("1")
	require.True(t, bumped)
	assert.Equal(t, enums.OrderStatusReady, completed.StationStatuses["kitchen"])
}

func TestApplyRaisedQuantityBlocksBump(t *testing.T) {
	store, tracker, _ := setup(t)

	_, ok := tracker.Apply("1", Change{Quantities: map[string]int{"cola": 3}})
	require.True(t, ok)
	_, bumped := store.Bump("1")
	assert.False(t, bumped)
}

func TestApplyNoops(t *testing.T) {
	store, tracker, _ := setup(t)
	before, _ := store.Get("1")

	_, ok := tracker.Apply("1", Change{})
	assert.False(t, ok)
	_, ok = tracker.Apply("missing", Change{Quantities: map[string]int{"burger": 3}})
	assert.False(t, ok)
	_, ok = tracker.Apply("1", Change{Quantities: map[string]int{"burger": 1, "ghost": 4}})
	assert.False(t, ok)

	after, _ := store.Get("1")
	assert.Equal(t, before, after)
}

func TestExpireClearsAfterWindow(t *testing.T) {
	_, tracker, c := setup(t)
	tracker.Apply("1", Change{AddItems: []orders.OrderItem{{Name: "Fries", StationID: "kitchen"}}})

	c.t = c.t.Add(29 * time.Second)
	assert.Empty(t, tracker.Expire())

	c.t = c.t.Add(time.Second)
	cleared := tracker.Expire()
	require.Len(t, cleared, 1)
	assert.False(t, cleared[0].IsModified)
	assert.Nil(t, cleared[0].ModifiedAt)
	for _, it := range cleared[0].Items {
		assert.False(t, it.IsNew)
		assert.Empty(t, it.ChangeDetails)
	}
	assert.Empty(t, tracker.Expire())
}

func TestSimulatorSkipsRemakes(t *testing.T) {
	store, tracker, _ := setup(t)
	store.Remove("1")
	store.Upsert(orders.Order{
		ID:       "1-R",
		IsRemake: true,
		Items:    []orders.OrderItem{{ID: "x", Name: "Burger", StationID: "kitchen"}},
	})
	sim := NewSimulator(tracker, store, rand.New(rand.NewPCG(1, 2)))

	_, ok := sim.Step()
	assert.False(t, ok)
}

func TestSimulatorModifiesEligibleOrder(t *testing.T) {
	store, tracker, _ := setup(t)
	store.Upsert(orders.Order{
		ID:       "1-R",
		IsRemake: true,
		Items:    []orders.OrderItem{{ID: "x", Name: "Burger", StationID: "kitchen"}},
	})
	sim := NewSimulator(tracker, store, rand.New(rand.NewPCG(7, 11)))

	for i := 0; i < 5; i++ {
		o, ok := sim.Step()
		require.True(t, ok)
		assert.Equal(t, "1", o.ID)
	}
	remake, _ := store.Get("1-R")
	assert.False(t, remake.IsModified)
}
