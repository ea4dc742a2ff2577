package orders

import (
	"time"

	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// Store owns the live orders. It is not safe for concurrent use; callers serialize access.
// Every value it returns is a deep copy.
type Store struct {
	orders map[string]*Order
	seq    []string
	now    func() time.Time
}

// StatusUpdate reports the outcome of UpdateStationStatus.
type StatusUpdate struct {
	Applied        bool
	PreviousStatus enums.OrderStatus
	// Order is set when the order stays live.
	Order *Order
	// Completed is set when the update bumped the order off the board.
	Completed *CompletedOrder
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		orders: make(map[string]*Order),
		now:    now,
	}
}

// List returns the live orders in arrival order.
func (s *Store) List() []Order {
	out := make([]Order, 0, len(s.seq))
	for _, id := range s.seq {
		out = append(out, s.orders[id].Clone())
	}
	return out
}

func (s *Store) Get(id string) (Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.Clone(), true
}

func (s *Store) Has(id string) bool {
	_, ok := s.orders[id]
	return ok
}

func (s *Store) Len() int {
	return len(s.seq)
}

// Upsert inserts or replaces an order after normalizing its station map and status.
func (s *Store) Upsert(o Order) Order {
	stored := o.Clone()
	if existing, ok := s.orders[o.ID]; ok && !stored.Status.IsValid() {
		stored.Status = existing.Status
	}
	normalize(&stored)
	if _, ok := s.orders[stored.ID]; !ok {
		s.seq = append(s.seq, stored.ID)
	}
	s.orders[stored.ID] = &stored
	return stored.Clone()
}

// Remove deletes an order and reports whether it was live.
func (s *Store) Remove(id string) bool {
	if _, ok := s.orders[id]; !ok {
		return false
	}
	delete(s.orders, id)
	for i, candidate := range s.seq {
		if candidate == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	return true
}

// Patch applies fn to a copy of the order and stores the normalized result when fn reports a
// change. It is the write path for every component other than the store itself.
func (s *Store) Patch(id string, fn func(*Order) bool) (Order, bool) {
	existing, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	working := existing.Clone()
	if !fn(&working) {
		return existing.Clone(), false
	}
	working.ID = id
	normalize(&working)
	s.orders[id] = &working
	return working.Clone(), true
}

// UpdateStationStatus moves one station of an order forward. Unknown orders, stations the
// order does not touch and invalid statuses are no-ops.
//
// Stations only move forward here: a request to move a station back (ready to preparing, or
// anything to pending) is ignored and reported as not applied. The only path that returns a
// station to pending is a modification that gives it new work, which is how an order reaches
// the mixed pending/ready hold.
//
// When the order was already ready, every station is ready afterwards and bump is set, the
// order leaves the store and the returned update carries the completion snapshot instead.
func (s *Store) UpdateStationStatus(orderID, stationID string, status enums.OrderStatus, bump bool) StatusUpdate {
	existing, ok := s.orders[orderID]
	if !ok || !status.IsValid() {
		return StatusUpdate{}
	}
	current, ok := existing.StationStatuses[stationID]
	if !ok || status.Rank() < current.Rank() {
		return StatusUpdate{PreviousStatus: existing.Status}
	}

	previous := existing.Status
	working := existing.Clone()
	working.StationStatuses[stationID] = status
	working.Status = Aggregate(working.StationStatuses, previous)

	if bump && previous == enums.OrderStatusReady && allReady(working.StationStatuses) {
		completed := s.complete(working)
		return StatusUpdate{Applied: true, PreviousStatus: previous, Completed: &completed}
	}
	if status == current {
		return StatusUpdate{PreviousStatus: previous}
	}

	s.orders[orderID] = &working
	updated := working.Clone()
	return StatusUpdate{Applied: true, PreviousStatus: previous, Order: &updated}
}

// Bump completes a ready order whose stations have all finished. Missing orders, orders that
// are not ready and ready orders held with a station back at pending are left alone.
func (s *Store) Bump(orderID string) (CompletedOrder, bool) {
	existing, ok := s.orders[orderID]
	if !ok || existing.Status != enums.OrderStatusReady || !allReady(existing.StationStatuses) {
		return CompletedOrder{}, false
	}
	return s.complete(existing.Clone()), true
}

func (s *Store) complete(o Order) CompletedOrder {
	s.Remove(o.ID)
	return CompletedOrder{Order: o, BumpedAt: s.now().UTC()}
}

// normalize enforces that the station keys match the item stations exactly and that the
// overall status is derived from them.
func normalize(o *Order) {
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	for i := range o.Items {
		if o.Items[i].StationID == "" {
			o.Items[i].StationID = stations.Kitchen
		}
		if o.Items[i].Quantity < 1 {
			o.Items[i].Quantity = 1
		}
		if o.Items[i].Customizations == nil {
			o.Items[i].Customizations = []string{}
		}
	}
	if o.StationStatuses == nil {
		o.StationStatuses = make(map[string]enums.OrderStatus)
	}
	wanted := make(map[string]struct{}, len(o.Items))
	for _, id := range o.Stations() {
		wanted[id] = struct{}{}
		if status, ok := o.StationStatuses[id]; !ok || !status.IsValid() {
			o.StationStatuses[id] = enums.OrderStatusPending
		}
	}
	for id := range o.StationStatuses {
		if _, ok := wanted[id]; !ok {
			delete(o.StationStatuses, id)
		}
	}
	if !o.Kind.IsValid() {
		if o.TableNumber != "" {
			o.Kind = enums.FulfillmentDineIn
		} else {
			o.Kind = enums.FulfillmentPickup
		}
	}
	o.Status = Aggregate(o.StationStatuses, o.Status)
}
