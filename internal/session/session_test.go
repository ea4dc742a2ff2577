package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kds-backend/internal/batches"
	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/intake"
	"github.com/angelmondragon/kds-backend/internal/modifications"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	"github.com/angelmondragon/kds-backend/pkg/logger"
)

var baseTime = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubSource struct {
	orders []orders.Order
}

func (s *stubSource) FetchOrders(context.Context, string) ([]orders.Order, error) {
	out := make([]orders.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out, nil
}

type journalCall struct {
	orderID string
	itemID  string
	status  enums.OrderStatus
	reason  string
}

type recordingJournal struct {
	calls []journalCall
}

func (j *recordingJournal) PersistItemStatus(_ context.Context, orderID, itemID string, status enums.OrderStatus) {
	j.calls = append(j.calls, journalCall{orderID: orderID, itemID: itemID, status: status})
}

func (j *recordingJournal) PersistRefire(_ context.Context, orderID, itemID, reason string) {
	j.calls = append(j.calls, journalCall{orderID: orderID, itemID: itemID, reason: reason})
}

type recordingNotifier struct {
	events []events.BoardEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event events.BoardEvent) {
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []enums.BoardEventType {
	out := make([]enums.BoardEventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	session  *Session
	clock    *clock
	source   *stubSource
	journal  *recordingJournal
	notifier *recordingNotifier
}

func item(id, name, station string) orders.OrderItem {
	return orders.OrderItem{ID: id, Name: name, Quantity: 1, StationID: station}
}

func order(id string, items ...orders.OrderItem) orders.Order {
	return orders.Order{
		ID:          id,
		OrderNumber: "#" + id,
		Kind:        enums.FulfillmentDineIn,
		TableNumber: "4",
		CreatedAt:   baseTime,
		Status:      enums.OrderStatusPending,
		Items:       items,
	}
}

func newFixture(t *testing.T, seed ...orders.Order) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &clock{t: baseTime},
		source:   &stubSource{orders: seed},
		journal:  &recordingJournal{},
		notifier: &recordingNotifier{},
	}
	logg := logger.New(logger.Options{ServiceName: "session-test"})
	registry := stations.NewRegistry("kitchen", "bar", "dessert")
	loader, err := intake.NewLoader(intake.LoaderParams{
		Source:     f.source,
		LocationID: "loc-1",
		Logger:     logg,
		Stations:   registry,
	})
	require.NoError(t, err)

	f.session, err = New(Params{
		LocationID: "loc-1",
		Board: config.BoardConfig{
			BatchThreshold:        3,
			RecallCapacity:        10,
			ModificationHighlight: 30 * time.Second,
			MessageHistory:        50,
			RefreshInterval:       30 * time.Second,
			SimulationInterval:    45 * time.Second,
		},
		Stations:  registry,
		Logger:    logg,
		Loader:    loader,
		Journal:   f.journal,
		Notifiers: []events.Notifier{f.notifier},
		Now:       f.clock.now,
	})
	require.NoError(t, err)
	return f
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Params{})
	require.Error(t, err)
}

func TestLoadAddsOnlyUnknownOrders(t *testing.T) {
	f := newFixture(t,
		order("1", item("a", "Burger", "kitchen")),
		order("2", item("b", "Mojito", "bar")),
	)
	ctx := context.Background()

	assert.Equal(t, 2, f.session.Load(ctx))
	assert.Equal(t, 0, f.session.Load(ctx))
	require.Len(t, f.session.Orders(), 2)

	f.session.UpdateStationStatus(ctx, "2", "bar", enums.OrderStatusReady, false)
	_, ok := f.session.Bump(ctx, "2")
	require.True(t, ok)

	assert.Equal(t, 0, f.session.Load(ctx), "orders waiting in recall are not reloaded")
	assert.Len(t, f.session.Orders(), 1)
}

func TestStatusLifecycleJournalsAndCompletes(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen"), item("b", "Fries", "kitchen"), item("c", "Mojito", "bar")))
	ctx := context.Background()
	f.session.Load(ctx)

	update := f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusPreparing, false)
	require.True(t, update.Applied)
	require.NotNil(t, update.Order)
	assert.Equal(t, enums.OrderStatusPreparing, update.Order.Status)
	assert.Equal(t, []journalCall{
		{orderID: "1", itemID: "a", status: enums.OrderStatusPreparing},
		{orderID: "1", itemID: "b", status: enums.OrderStatusPreparing},
	}, f.journal.calls)

	backward := f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusPending, false)
	assert.False(t, backward.Applied)
	assert.Len(t, f.journal.calls, 2)

	f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusReady, false)
	f.session.UpdateStationStatus(ctx, "1", "bar", enums.OrderStatusReady, false)
	o, ok := f.session.Order("1")
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusReady, o.Status)

	final := f.session.UpdateStationStatus(ctx, "1", "bar", enums.OrderStatusReady, true)
	require.True(t, final.Applied)
	require.NotNil(t, final.Completed)

	_, ok = f.session.Order("1")
	assert.False(t, ok)
	completed := f.session.Completed()
	require.Len(t, completed, 1)
	assert.Equal(t, "1", completed[0].ID)
	assert.Equal(t, enums.BoardEventOrderBumped, f.notifier.events[len(f.notifier.events)-1].Type)
	for _, e := range f.notifier.events {
		assert.Equal(t, "loc-1", e.LocationID)
	}
}

func TestBumpRequiresReady(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)

	_, ok := f.session.Bump(ctx, "1")
	assert.False(t, ok)

	f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusReady, false)
	completed, ok := f.session.Bump(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, baseTime, completed.BumpedAt)

	recalled, ok := f.session.Recall(ctx, "1")
	require.True(t, ok)
	assert.True(t, recalled.IsRecalled)
	assert.Equal(t, enums.OrderStatusReady, recalled.StationStatuses["kitchen"])
	assert.Empty(t, f.session.Completed())

	_, ok = f.session.Recall(ctx, "1")
	assert.False(t, ok)
}

func TestRefireJournalsReason(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)

	remake, ok := f.session.Refire(ctx, "1", "a", "dropped")
	require.True(t, ok)
	assert.True(t, remake.IsRemake)
	assert.Equal(t, "1", remake.OriginalOrderID)
	assert.Len(t, f.session.Orders(), 2)
	assert.Equal(t, []journalCall{{orderID: "1", itemID: "a", reason: "dropped"}}, f.journal.calls)

	_, ok = f.session.Refire(ctx, "1", "missing", "dropped")
	assert.False(t, ok)
}

func TestSnoozeAndSweep(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)

	_, ok := f.session.Snooze(ctx, "1", 0)
	assert.False(t, ok)
	snoozed, ok := f.session.Snooze(ctx, "1", 60)
	require.True(t, ok)
	assert.True(t, snoozed.IsSnoozed)

	board, ok := f.session.StationBoard("kitchen")
	require.True(t, ok)
	assert.Len(t, board.Columns.Snoozed, 1)

	assert.Empty(t, f.session.Sweep(ctx))
	f.clock.advance(61 * time.Second)
	woken := f.session.Sweep(ctx)
	require.Len(t, woken, 1)
	assert.True(t, woken[0].WasSnoozed)

	_, ok = f.session.Wake(ctx, "1")
	assert.False(t, ok)
}

func TestDismissBatch(t *testing.T) {
	f := newFixture(t,
		order("1", item("a", "Margherita", "kitchen")),
		order("2", item("b", "Margherita", "kitchen")),
		order("3", item("c", "Margherita", "kitchen")),
	)
	ctx := context.Background()
	f.session.Load(ctx)
	key := batches.Key("Margherita", "")

	board, ok := f.session.StationBoard("kitchen")
	require.True(t, ok)
	require.Len(t, board.Batches, 1)
	assert.Equal(t, key, board.Batches[0].Key)

	assert.False(t, f.session.DismissBatch(ctx, "kitchen", "burger|"))
	assert.False(t, f.session.DismissBatch(ctx, "nowhere", key))
	assert.True(t, f.session.DismissBatch(ctx, "kitchen", key))
	assert.False(t, f.session.DismissBatch(ctx, "kitchen", key))

	board, _ = f.session.StationBoard("kitchen")
	assert.Empty(t, board.Batches)

	f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusPreparing, false)
	f.source.orders = append(f.source.orders, order("4", item("d", "Margherita", "kitchen")))
	f.session.Load(ctx)

	board, _ = f.session.StationBoard("kitchen")
	require.Len(t, board.Batches, 1, "dismissal is dropped once the key stops being suggested")
}

func TestStationBoardUnknownStation(t *testing.T) {
	f := newFixture(t)
	_, ok := f.session.StationBoard("grill")
	assert.False(t, ok)
}

func TestModifyEmitsEvent(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)

	modified, ok := f.session.Modify(ctx, "1", modifications.Change{Quantities: map[string]int{"a": 2}})
	require.True(t, ok)
	assert.True(t, modified.IsModified)
	assert.Contains(t, f.notifier.types(), enums.BoardEventOrderModified)

	f.clock.advance(31 * time.Second)
	cleared := f.session.ExpireModifications(ctx)
	require.Len(t, cleared, 1)
	assert.False(t, cleared[0].IsModified)
}

func TestModifyRejectsUnknownStationAndHoldsBump(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)
	f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusReady, false)

	_, ok := f.session.Modify(ctx, "1", modifications.Change{AddItems: []orders.OrderItem{{Name: "Ribeye", StationID: "grill"}}})
	assert.False(t, ok)
	o, _ := f.session.Order("1")
	assert.NotContains(t, o.StationStatuses, "grill")

	_, ok = f.session.Modify(ctx, "1", modifications.Change{AddItems: []orders.OrderItem{{Name: "Fries", StationID: "kitchen"}}})
	require.True(t, ok)
	_, ok = f.session.Bump(ctx, "1")
	assert.False(t, ok, "new kitchen work must be finished first")
	assert.Empty(t, f.session.Completed())
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok := f.session.SendMessage(ctx, "kitchen", "kitchen", "hi")
	assert.False(t, ok)
	msg, ok := f.session.SendMessage(ctx, "kitchen", stations.Broadcast, "86 salmon")
	require.True(t, ok)
	_, ok = f.session.SendMessage(ctx, "bar", "kitchen", "need ice")
	require.True(t, ok)

	assert.Equal(t, 1, f.session.UnreadCount("bar"))
	assert.Equal(t, 1, f.session.UnreadCount("kitchen"))
	assert.Len(t, f.session.Messages("dessert"), 1)
	assert.Empty(t, f.session.Messages("nowhere"))

	_, ok = f.session.MarkMessageRead(ctx, msg.ID)
	require.True(t, ok)
	assert.Equal(t, 0, f.session.UnreadCount("dessert"))

	assert.Equal(t, 1, f.session.MarkAllMessagesRead(ctx, "kitchen"))
	assert.Equal(t, 0, f.session.MarkAllMessagesRead(ctx, "kitchen"))

	before := len(f.notifier.events)
	ingested := msg
	ingested.ID = "remote-1"
	ingested.IsRead = false
	assert.True(t, f.session.IngestMessage(ctx, ingested))
	assert.False(t, f.session.IngestMessage(ctx, ingested))
	require.Len(t, f.notifier.events, before+1, "a duplicate relay emits nothing")
	relayed := f.notifier.events[before]
	assert.Equal(t, enums.BoardEventMessageSent, relayed.Type)
	assert.True(t, relayed.Relayed)
	require.NotNil(t, relayed.Message)
	assert.Equal(t, "remote-1", relayed.Message.ID)
	assert.Equal(t, 1, f.session.UnreadCount("dessert"))

	ingested.IsRead = true
	assert.True(t, f.session.IngestMessage(ctx, ingested))
	require.Len(t, f.notifier.events, before+2)
	assert.Equal(t, enums.BoardEventMessageRead, f.notifier.events[before+1].Type)
	assert.Equal(t, 0, f.session.UnreadCount("dessert"))
}

func TestCloseTurnsMutationsIntoNoops(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	ctx := context.Background()
	f.session.Load(ctx)
	require.NoError(t, f.session.Close())

	update := f.session.UpdateStationStatus(ctx, "1", "kitchen", enums.OrderStatusReady, false)
	assert.False(t, update.Applied)
	_, ok := f.session.Snooze(ctx, "1", 30)
	assert.False(t, ok)
	_, ok = f.session.SendMessage(ctx, "kitchen", "bar", "hello")
	assert.False(t, ok)
	assert.Len(t, f.session.Orders(), 1)
}

func TestJobs(t *testing.T) {
	f := newFixture(t, order("1", item("a", "Burger", "kitchen")))
	names := func(s *Session) []string {
		var out []string
		for _, job := range s.Jobs() {
			out = append(out, job.Name())
		}
		return out
	}
	assert.Equal(t, []string{"snooze-sweep", "modification-expiry", "intake-refresh"}, names(f.session))

	for _, job := range f.session.Jobs() {
		require.NoError(t, job.Run(context.Background()))
	}
	assert.Len(t, f.session.Orders(), 1)

	f.session.simulate = true
	assert.Contains(t, names(f.session), "modification-simulator")
}
