package orders

import (
	"time"

	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// Order is a live ticket on the board.
type Order struct {
	ID                  string                       `json:"id"`
	OrderNumber         string                       `json:"orderNumber"`
	Kind                enums.FulfillmentKind        `json:"type"`
	TableNumber         string                       `json:"tableNumber,omitempty"`
	CustomerName        string                       `json:"customerName,omitempty"`
	CreatedAt           time.Time                    `json:"createdAt"`
	Status              enums.OrderStatus            `json:"status"`
	Items               []OrderItem                  `json:"items"`
	StationStatuses     map[string]enums.OrderStatus `json:"stationStatuses"`
	IsPriority          bool                         `json:"isPriority,omitempty"`
	SpecialInstructions string                       `json:"specialInstructions,omitempty"`

	IsRemake        bool   `json:"isRemake,omitempty"`
	RemakeReason    string `json:"remakeReason,omitempty"`
	OriginalOrderID string `json:"originalOrderId,omitempty"`

	IsRecalled bool       `json:"isRecalled,omitempty"`
	RecalledAt *time.Time `json:"recalledAt,omitempty"`

	IsModified bool       `json:"isModified,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`

	IsSnoozed             bool       `json:"isSnoozed,omitempty"`
	SnoozedAt             *time.Time `json:"snoozedAt,omitempty"`
	SnoozeUntil           *time.Time `json:"snoozeUntil,omitempty"`
	SnoozeDurationSeconds int        `json:"snoozeDurationSeconds,omitempty"`
	WasSnoozed            bool       `json:"wasSnoozed,omitempty"`
}

// OrderItem belongs to exactly one station. An empty Variant means no variant.
type OrderItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Variant        string   `json:"variant,omitempty"`
	Quantity       int      `json:"quantity"`
	Customizations []string `json:"customizations"`
	StationID      string   `json:"stationId"`

	IsNew         bool   `json:"isNew,omitempty"`
	IsModified    bool   `json:"isModified,omitempty"`
	ChangeDetails string `json:"changeDetails,omitempty"`
}

// CompletedOrder is the snapshot taken when an order is bumped.
type CompletedOrder struct {
	Order
	BumpedAt time.Time `json:"bumpedAt"`
}

// Clone returns a deep copy.
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			out.Items[i] = item.Clone()
		}
	}
	if o.StationStatuses != nil {
		out.StationStatuses = make(map[string]enums.OrderStatus, len(o.StationStatuses))
		for k, v := range o.StationStatuses {
			out.StationStatuses[k] = v
		}
	}
	out.RecalledAt = cloneTime(o.RecalledAt)
	out.ModifiedAt = cloneTime(o.ModifiedAt)
	out.SnoozedAt = cloneTime(o.SnoozedAt)
	out.SnoozeUntil = cloneTime(o.SnoozeUntil)
	return out
}

func (i OrderItem) Clone() OrderItem {
	out := i
	if i.Customizations != nil {
		out.Customizations = append([]string(nil), i.Customizations...)
	}
	return out
}

// Clone returns a deep copy.
func (c CompletedOrder) Clone() CompletedOrder {
	return CompletedOrder{Order: c.Order.Clone(), BumpedAt: c.BumpedAt}
}

// Item returns the item with the given id.
func (o Order) Item(itemID string) (OrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return OrderItem{}, false
}

// ItemsAt returns the items routed to one station.
func (o Order) ItemsAt(stationID string) []OrderItem {
	var out []OrderItem
	for _, item := range o.Items {
		if item.StationID == stationID {
			out = append(out, item)
		}
	}
	return out
}

// Stations returns the distinct station ids among the items, in first-seen order.
func (o Order) Stations() []string {
	seen := make(map[string]struct{}, len(o.Items))
	var out []string
	for _, item := range o.Items {
		if _, ok := seen[item.StationID]; ok {
			continue
		}
		seen[item.StationID] = struct{}{}
		out = append(out, item.StationID)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
