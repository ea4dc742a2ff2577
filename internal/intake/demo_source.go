package intake

import (
	"context"
	"time"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// DemoSource serves a fixed floor of mock tickets with creation times relative to now.
type DemoSource struct {
	now func() time.Time
}

func NewDemoSource(now func() time.Time) *DemoSource {
	if now == nil {
		now = time.Now
	}
	return &DemoSource{now: now}
}

type demoItem struct {
	id, name, variant, station string
	qty                        int
	mods                       []string
}

type demoOrder struct {
	id, number, table, customer, notes string
	kind                               enums.FulfillmentKind
	age                                time.Duration
	priority                           bool
	stationStatuses                    map[string]enums.OrderStatus
	items                              []demoItem
}

var demoFloor = []demoOrder{
	{
		id: "ord-1001", number: "1001", table: "12", kind: enums.FulfillmentDineIn, age: 14 * time.Minute,
		items: []demoItem{
			{id: "ord-1001-1", name: "Margherita Pizza", variant: "Large", station: stations.Kitchen, qty: 1},
			{id: "ord-1001-2", name: "Negroni", station: stations.Bar, qty: 2},
		},
		stationStatuses: map[string]enums.OrderStatus{stations.Kitchen: enums.OrderStatusPreparing, stations.Bar: enums.OrderStatusReady},
	},
	{
		id: "ord-1002", number: "1002", table: "4", kind: enums.FulfillmentDineIn, age: 11 * time.Minute, priority: true,
		notes: "Nut allergy at the table",
		items: []demoItem{
			{id: "ord-1002-1", name: "Margherita Pizza", variant: "Large", station: stations.Kitchen, qty: 1, mods: []string{"No basil"}},
			{id: "ord-1002-2", name: "Tiramisu", station: stations.Dessert, qty: 2},
		},
	},
	{
		id: "ord-1003", number: "1003", customer: "Dana", kind: enums.FulfillmentPickup, age: 9 * time.Minute,
		items: []demoItem{
			{id: "ord-1003-1", name: "Margherita Pizza", variant: "Large", station: stations.Kitchen, qty: 2},
			{id: "ord-1003-2", name: "Caesar Salad", station: stations.Kitchen, qty: 1, mods: []string{"Dressing on the side"}},
		},
	},
	{
		id: "ord-1004", number: "1004", table: "7", kind: enums.FulfillmentDineIn, age: 6 * time.Minute,
		items: []demoItem{
			{id: "ord-1004-1", name: "Old Fashioned", station: stations.Bar, qty: 1},
			{id: "ord-1004-2", name: "Espresso Martini", station: stations.Bar, qty: 2},
		},
	},
	{
		id: "ord-1005", number: "1005", table: "2", kind: enums.FulfillmentDineIn, age: 4 * time.Minute,
		items: []demoItem{
			{id: "ord-1005-1", name: "Ribeye", variant: "Medium Rare", station: stations.Kitchen, qty: 1, mods: []string{"Extra jus"}},
			{id: "ord-1005-2", name: "Cabernet", station: stations.Bar, qty: 1},
			{id: "ord-1005-3", name: "Creme Brulee", station: stations.Dessert, qty: 1},
		},
	},
	{
		id: "ord-1006", number: "1006", customer: "Sam", kind: enums.FulfillmentPickup, age: 2 * time.Minute,
		items: []demoItem{
			{id: "ord-1006-1", name: "Chocolate Lava Cake", station: stations.Dessert, qty: 1},
		},
	},
}

func (d *DemoSource) FetchOrders(context.Context, string) ([]orders.Order, error) {
	now := d.now().UTC()
	out := make([]orders.Order, 0, len(demoFloor))
	for _, seed := range demoFloor {
		o := orders.Order{
			ID:                  seed.id,
			OrderNumber:         seed.number,
			Kind:                seed.kind,
			TableNumber:         seed.table,
			CustomerName:        seed.customer,
			CreatedAt:           now.Add(-seed.age),
			Status:              enums.OrderStatusPending,
			IsPriority:          seed.priority,
			SpecialInstructions: seed.notes,
			StationStatuses:     make(map[string]enums.OrderStatus, len(seed.stationStatuses)),
		}
		for station, status := range seed.stationStatuses {
			o.StationStatuses[station] = status
		}
		for _, it := range seed.items {
			mods := append([]string{}, it.mods...)
			o.Items = append(o.Items, orders.OrderItem{
				ID:             it.id,
				Name:           it.name,
				Variant:        it.variant,
				Quantity:       it.qty,
				Customizations: mods,
				StationID:      it.station,
			})
		}
		out = append(out, o)
	}
	return out, nil
}
