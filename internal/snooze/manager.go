package snooze

import (
	"time"

	"github.com/angelmondragon/kds-backend/internal/orders"
)

// MaxSnoozeSeconds caps a single snooze at one day.
const MaxSnoozeSeconds = 24 * 60 * 60

// Manager defers an order's visibility for a while. Snoozed orders stay in the store and keep
// accepting station updates.
type Manager struct {
	store *orders.Store
	now   func() time.Time
}

func NewManager(store *orders.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now}
}

// Snooze hides the order for the given number of seconds, capped at MaxSnoozeSeconds.
// Snoozing again restarts the timer. Non-positive durations and unknown orders are no-ops.
func (m *Manager) Snooze(orderID string, seconds int) (orders.Order, bool) {
	if seconds <= 0 {
		return orders.Order{}, false
	}
	seconds = min(seconds, MaxSnoozeSeconds)
	now := m.now().UTC()
	until := now.Add(time.Duration(seconds) * time.Second)
	return m.store.Patch(orderID, func(o *orders.Order) bool {
		o.IsSnoozed = true
		o.SnoozedAt = &now
		o.SnoozeUntil = &until
		o.SnoozeDurationSeconds = seconds
		return true
	})
}

// Wake brings a snoozed order back. Waking an order that is not snoozed is a no-op.
func (m *Manager) Wake(orderID string) (orders.Order, bool) {
	return m.store.Patch(orderID, wake)
}

// Sweep wakes every order whose snooze has elapsed and returns them.
func (m *Manager) Sweep() []orders.Order {
	now := m.now()
	var woken []orders.Order
	for _, o := range m.store.List() {
		if !o.IsSnoozed || o.SnoozeUntil == nil || now.Before(*o.SnoozeUntil) {
			continue
		}
		if updated, ok := m.store.Patch(o.ID, wake); ok {
			woken = append(woken, updated)
		}
	}
	return woken
}

func wake(o *orders.Order) bool {
	if !o.IsSnoozed {
		return false
	}
	o.IsSnoozed = false
	o.SnoozedAt = nil
	o.SnoozeUntil = nil
	o.SnoozeDurationSeconds = 0
	o.WasSnoozed = true
	return true
}
