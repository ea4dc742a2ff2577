// Package events defines the change notifications a board session fans out to screens,
// the message bus and metrics.
package events

import (
	"context"
	"time"

	"github.com/angelmondragon/kds-backend/internal/messaging"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// BoardEvent describes one applied mutation. Order carries the post-change snapshot when the
// order is still live; Completed is set on bump. Relayed marks events that arrived from
// another process and must not be published back to the bus.
type BoardEvent struct {
	Type       enums.BoardEventType   `json:"type"`
	LocationID string                 `json:"locationId"`
	OrderID    string                 `json:"orderId,omitempty"`
	StationID  string                 `json:"stationId,omitempty"`
	BatchKey   string                 `json:"batchKey,omitempty"`
	Order      *orders.Order          `json:"order,omitempty"`
	Completed  *orders.CompletedOrder `json:"completed,omitempty"`
	Message    *messaging.Message     `json:"message,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
	Relayed    bool                   `json:"relayed,omitempty"`
}

// Notifier receives board events. Implementations must not block and must not call back into
// the session.
type Notifier interface {
	Notify(ctx context.Context, event BoardEvent)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, event BoardEvent)

func (f NotifierFunc) Notify(ctx context.Context, event BoardEvent) { f(ctx, event) }

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event BoardEvent) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}
