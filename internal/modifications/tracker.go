package modifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

const DefaultHighlight = 30 * time.Second

// Change describes an edit to a live order coming from the point of sale.
type Change struct {
	AddItems       []orders.OrderItem  `json:"addItems,omitempty"`
	RemoveItemIDs  []string            `json:"removeItemIds,omitempty"`
	Quantities     map[string]int      `json:"quantities,omitempty"`
	Customizations map[string][]string `json:"customizations,omitempty"`
}

func (c Change) IsEmpty() bool {
	return len(c.AddItems) == 0 && len(c.RemoveItemIDs) == 0 && len(c.Quantities) == 0 && len(c.Customizations) == 0
}

// Tracker applies modifications and clears their highlight once the window passes.
type Tracker struct {
	store     *orders.Store
	now       func() time.Time
	newID     func() string
	highlight time.Duration
	known     func(stationID string) bool
}

// NewTracker builds a tracker. known reports whether added items may be routed to a station;
// nil accepts every station.
func NewTracker(store *orders.Store, highlight time.Duration, now func() time.Time, known func(stationID string) bool) *Tracker {
	if highlight <= 0 {
		highlight = DefaultHighlight
	}
	if now == nil {
		now = time.Now
	}
	if known == nil {
		known = func(string) bool { return true }
	}
	return &Tracker{store: store, now: now, newID: uuid.NewString, highlight: highlight, known: known}
}

// Apply edits the order and flags what changed. A station that receives new work goes back to
// pending. Added items routed to a station the board does not run are skipped. Changes that
// touch nothing are no-ops.
func (t *Tracker) Apply(orderID string, change Change) (orders.Order, bool) {
	if change.IsEmpty() {
		return orders.Order{}, false
	}
	return t.store.Patch(orderID, func(o *orders.Order) bool {
		changed := false
		reset := make(map[string]struct{})

		if len(change.RemoveItemIDs) > 0 {
			drop := make(map[string]struct{}, len(change.RemoveItemIDs))
			for _, id := range change.RemoveItemIDs {
				drop[id] = struct{}{}
			}
			kept := o.Items[:0]
			for _, it := range o.Items {
				if _, ok := drop[it.ID]; ok {
					changed = true
					continue
				}
				kept = append(kept, it)
			}
			o.Items = kept
		}

		for i := range o.Items {
			it := &o.Items[i]
			var details []string
			if qty, ok := change.Quantities[it.ID]; ok && qty > 0 && qty != it.Quantity {
				details = append(details, fmt.Sprintf("qty %d -> %d", it.Quantity, qty))
				if qty > it.Quantity {
					reset[it.StationID] = struct{}{}
				}
				it.Quantity = qty
			}
			if mods, ok := change.Customizations[it.ID]; ok && !sameStrings(mods, it.Customizations) {
				it.Customizations = append([]string{}, mods...)
				if len(mods) == 0 {
					details = append(details, "customizations cleared")
				} else {
					details = append(details, "now: "+strings.Join(mods, ", "))
				}
			}
			if len(details) > 0 {
				it.IsModified = true
				it.ChangeDetails = strings.Join(details, "; ")
				changed = true
			}
		}

		for _, added := range change.AddItems {
			if strings.TrimSpace(added.Name) == "" {
				continue
			}
			it := added.Clone()
			if it.ID == "" {
				it.ID = t.newID()
			}
			if it.StationID == "" {
				it.StationID = stations.Kitchen
			}
			if !t.known(it.StationID) {
				continue
			}
			it.IsNew = true
			it.IsModified = false
			it.ChangeDetails = "added"
			o.Items = append(o.Items, it)
			reset[it.StationID] = struct{}{}
			changed = true
		}

		if !changed {
			return false
		}
		for station := range reset {
			o.StationStatuses[station] = enums.OrderStatusPending
		}
		now := t.now().UTC()
		o.IsModified = true
		o.ModifiedAt = &now
		return true
	})
}

// Expire clears modification highlights older than the window and returns the orders it
// touched.
func (t *Tracker) Expire() []orders.Order {
	cutoff := t.now().Add(-t.highlight)
	var cleared []orders.Order
	for _, o := range t.store.List() {
		if !o.IsModified || o.ModifiedAt == nil || o.ModifiedAt.After(cutoff) {
			continue
		}
		updated, ok := t.store.Patch(o.ID, func(o *orders.Order) bool {
			o.IsModified = false
			o.ModifiedAt = nil
			for i := range o.Items {
				o.Items[i].IsNew = false
				o.Items[i].IsModified = false
				o.Items[i].ChangeDetails = ""
			}
			return true
		})
		if ok {
			cleared = append(cleared, updated)
		}
	}
	return cleared
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
