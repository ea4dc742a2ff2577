package refire

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

const (
	remakeSuffix  = "-R"
	DefaultReason = "unspecified"
)

// Tracker spawns remake tickets. The original order is never modified.
type Tracker struct {
	store    *orders.Store
	now      func() time.Time
	newID    func() string
	reserved func(id string) bool
}

// NewTracker builds a tracker. reserved reports ids that are taken outside the store, such as
// orders waiting in the recall registry; it may be nil.
func NewTracker(store *orders.Store, now func() time.Time, reserved func(id string) bool) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:    store,
		now:      now,
		newID:    uuid.NewString,
		reserved: reserved,
	}
}

// Refire creates a sibling ticket holding a fresh copy of one item. Unknown orders or items
// are no-ops.
func (t *Tracker) Refire(orderID, itemID, reason string) (orders.Order, bool) {
	original, ok := t.store.Get(orderID)
	if !ok {
		return orders.Order{}, false
	}
	source, ok := original.Item(itemID)
	if !ok {
		return orders.Order{}, false
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultReason
	}

	remade := source.Clone()
	remade.ID = t.newID()
	remade.IsNew = false
	remade.IsModified = false
	remade.ChangeDetails = ""

	suffix := t.nextSuffix(original.ID)
	remake := orders.Order{
		ID:                  original.ID + suffix,
		OrderNumber:         original.OrderNumber + suffix,
		Kind:                original.Kind,
		TableNumber:         original.TableNumber,
		CustomerName:        original.CustomerName,
		CreatedAt:           t.now().UTC(),
		Status:              enums.OrderStatusPending,
		Items:               []orders.OrderItem{remade},
		StationStatuses:     map[string]enums.OrderStatus{remade.StationID: enums.OrderStatusPending},
		IsPriority:          original.IsPriority,
		SpecialInstructions: original.SpecialInstructions,
		IsRemake:            true,
		RemakeReason:        reason,
		OriginalOrderID:     original.ID,
	}
	return t.store.Upsert(remake), true
}

func (t *Tracker) nextSuffix(orderID string) string {
	suffix := remakeSuffix
	for n := 2; t.taken(orderID + suffix); n++ {
		suffix = fmt.Sprintf("%s%d", remakeSuffix, n)
	}
	return suffix
}

func (t *Tracker) taken(id string) bool {
	if t.store.Has(id) {
		return true
	}
	return t.reserved != nil && t.reserved(id)
}

// Eligible reports whether an order may be targeted by modification simulation. Remakes are
// excluded so they never spawn further churn.
func Eligible(o orders.Order) bool {
	return !o.IsRemake
}
