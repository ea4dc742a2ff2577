package orders

import (
	"time"

	"github.com/angelmondragon/kds-backend/pkg/enums"
)

var baseTime = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return baseTime }
}

func item(id, name, station string) OrderItem {
	return OrderItem{ID: id, Name: name, Quantity: 1, StationID: station}
}

func newOrder(id string, items ...OrderItem) Order {
	return Order{
		ID:          id,
		OrderNumber: "#" + id,
		Kind:        enums.FulfillmentDineIn,
		TableNumber: "7",
		CreatedAt:   baseTime,
		Items:       items,
	}
}
