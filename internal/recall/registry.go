package recall

import (
	"time"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

const DefaultCapacity = 10

// Registry keeps the most recently bumped orders, newest first. Entries beyond the capacity
// are dropped.
type Registry struct {
	store    *orders.Store
	now      func() time.Time
	capacity int
	entries  []orders.CompletedOrder
}

func NewRegistry(store *orders.Store, capacity int, now func() time.Time) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, now: now, capacity: capacity}
}

// Complete records a bump snapshot at the front of the history.
func (r *Registry) Complete(snapshot orders.CompletedOrder) {
	r.remove(snapshot.ID)
	r.entries = append([]orders.CompletedOrder{snapshot.Clone()}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
}

// List returns the history, newest first.
func (r *Registry) List() []orders.CompletedOrder {
	out := make([]orders.CompletedOrder, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.Clone()
	}
	return out
}

func (r *Registry) Get(id string) (orders.CompletedOrder, bool) {
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry.Clone(), true
		}
	}
	return orders.CompletedOrder{}, false
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Recall puts a completed order back on the board with every station ready and removes it
// from the history. Unknown ids and ids that are already live are no-ops.
func (r *Registry) Recall(id string) (orders.Order, bool) {
	snapshot, ok := r.Get(id)
	if !ok || r.store.Has(id) {
		return orders.Order{}, false
	}
	live := snapshot.Order.Clone()
	for station := range live.StationStatuses {
		live.StationStatuses[station] = enums.OrderStatusReady
	}
	live.Status = enums.OrderStatusReady
	recalledAt := r.now().UTC()
	live.IsRecalled = true
	live.RecalledAt = &recalledAt
	live.IsSnoozed = false
	live.SnoozedAt = nil
	live.SnoozeUntil = nil
	live.SnoozeDurationSeconds = 0

	restored := r.store.Upsert(live)
	r.remove(id)
	return restored, true
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) remove(id string) {
	for i, entry := range r.entries {
		if entry.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}
