package session

import (
	"context"

	"github.com/angelmondragon/kds-backend/internal/batches"
	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/modifications"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// StationBoard is what one station screen renders.
type StationBoard struct {
	Station     stations.Station     `json:"station"`
	Columns     orders.Columns       `json:"columns"`
	Batches     []batches.Suggestion `json:"batches"`
	UnreadCount int                  `json:"unreadCount"`
}

// Orders lists live orders in arrival order.
func (s *Session) Orders() []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Order returns one live order.
func (s *Session) Order(id string) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// StationBoard projects the live set for one station. Unknown stations report false.
func (s *Session) StationBoard(stationID string) (StationBoard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	station, ok := s.registry.Get(stationID)
	if !ok {
		return StationBoard{}, false
	}
	list := s.store.List()
	suggestions := s.dismissals.Visible(stationID, batches.Detect(list, stationID, s.threshold))
	if suggestions == nil {
		suggestions = []batches.Suggestion{}
	}
	return StationBoard{
		Station:     station,
		Columns:     orders.StationView(list, stationID),
		Batches:     suggestions,
		UnreadCount: s.messages.UnreadCount(stationID),
	}, true
}

// Expo projects the live set across every station.
func (s *Session) Expo() orders.Columns {
	s.mu.Lock()
	defer s.mu.Unlock()
	return orders.ExpoView(s.store.List())
}

// UpdateStationStatus moves one station of an order forward, completing the order when bump
// is set on an already ready order.
func (s *Session) UpdateStationStatus(ctx context.Context, orderID, stationID string, status enums.OrderStatus, bump bool) orders.StatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.StatusUpdate{}
	}
	ctx = s.logg.WithStationID(s.logg.WithOrderID(s.ctx(ctx), orderID), stationID)

	var items []orders.OrderItem
	if existing, ok := s.store.Get(orderID); ok {
		items = existing.ItemsAt(stationID)
	}
	update := s.store.UpdateStationStatus(orderID, stationID, status, bump)
	if !update.Applied {
		return update
	}
	for _, item := range items {
		s.journal.PersistItemStatus(ctx, orderID, item.ID, status)
	}
	if update.Completed != nil {
		s.complete(ctx, *update.Completed)
		return update
	}
	s.emit(ctx, eventForStatus(update, stationID))
	s.ordersChanged()
	return update
}

func eventForStatus(update orders.StatusUpdate, stationID string) events.BoardEvent {
	return events.BoardEvent{
		Type:      enums.BoardEventOrderStatusChanged,
		OrderID:   update.Order.ID,
		StationID: stationID,
		Order:     update.Order,
	}
}

// Bump completes a ready order.
func (s *Session) Bump(ctx context.Context, orderID string) (orders.CompletedOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.CompletedOrder{}, false
	}
	completed, ok := s.store.Bump(orderID)
	if !ok {
		return orders.CompletedOrder{}, false
	}
	s.complete(s.logg.WithOrderID(s.ctx(ctx), orderID), completed)
	return completed, true
}

func (s *Session) complete(ctx context.Context, completed orders.CompletedOrder) {
	s.recall.Complete(completed)
	snapshot := completed
	s.emit(ctx, events.BoardEvent{Type: enums.BoardEventOrderBumped, OrderID: completed.ID, Completed: &snapshot})
	s.ordersChanged()
	s.logg.Info(ctx, "order bumped")
}

// Snooze hides an order for seconds. Non-positive durations are no-ops.
func (s *Session) Snooze(ctx context.Context, orderID string, seconds int) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	o, ok := s.snooze.Snooze(orderID, seconds)
	if ok {
		s.emitOrder(s.ctx(ctx), enums.BoardEventOrderSnoozed, o)
		s.ordersChanged()
	}
	return o, ok
}

// Wake clears a snooze. Waking an order that is not snoozed is a no-op.
func (s *Session) Wake(ctx context.Context, orderID string) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	o, ok := s.snooze.Wake(orderID)
	if ok {
		s.emitOrder(s.ctx(ctx), enums.BoardEventOrderWoken, o)
		s.ordersChanged()
	}
	return o, ok
}

// Refire creates a remake ticket for one item.
func (s *Session) Refire(ctx context.Context, orderID, itemID, reason string) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	remake, ok := s.refire.Refire(orderID, itemID, reason)
	if !ok {
		return orders.Order{}, false
	}
	ctx = s.logg.WithOrderID(s.ctx(ctx), orderID)
	s.journal.PersistRefire(ctx, orderID, itemID, remake.RemakeReason)
	s.emitOrder(ctx, enums.BoardEventOrderRefired, remake)
	s.ordersChanged()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"item_id":   itemID,
		"remake_id": remake.ID,
		"reason":    remake.RemakeReason,
	}), "item refired")
	return remake, true
}

// Recall restores a completed order to the board with every station ready.
func (s *Session) Recall(ctx context.Context, orderID string) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	o, ok := s.recall.Recall(orderID)
	if !ok {
		return orders.Order{}, false
	}
	s.emitOrder(s.logg.WithOrderID(s.ctx(ctx), orderID), enums.BoardEventOrderRecalled, o)
	s.ordersChanged()
	return o, true
}

// Completed lists recallable orders, most recently bumped first.
func (s *Session) Completed() []orders.CompletedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recall.List()
}

// Modify applies a point-of-sale edit.
func (s *Session) Modify(ctx context.Context, orderID string, change modifications.Change) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	o, ok := s.mods.Apply(orderID, change)
	if ok {
		s.emitOrder(s.logg.WithOrderID(s.ctx(ctx), orderID), enums.BoardEventOrderModified, o)
		s.ordersChanged()
	}
	return o, ok
}

// DismissBatch hides a currently suggested batch key at a station until the key stops being
// suggested.
func (s *Session) DismissBatch(ctx context.Context, stationID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.registry.Has(stationID) {
		return false
	}
	suggested := false
	for _, suggestion := range batches.Detect(s.store.List(), stationID, s.threshold) {
		if suggestion.Key == key {
			suggested = true
			break
		}
	}
	if !suggested || !s.dismissals.Dismiss(stationID, key) {
		return false
	}
	s.emit(s.logg.WithStationID(s.ctx(ctx), stationID), events.BoardEvent{
		Type:      enums.BoardEventBatchDismissed,
		StationID: stationID,
		BatchKey:  key,
	})
	return true
}
