package orders

import (
	"sort"

	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// Ticket is an order as one station sees it: only that station's items, with that
// station's progress.
type Ticket struct {
	Order
	StationStatus enums.OrderStatus `json:"stationStatus"`
}

// Columns splits tickets into board lanes. Snoozed tickets leave their status column.
type Columns struct {
	Pending   []Ticket `json:"pending"`
	Preparing []Ticket `json:"preparing"`
	Ready     []Ticket `json:"ready"`
	Snoozed   []Ticket `json:"snoozed"`
}

// StationView projects the live orders onto one station.
func StationView(list []Order, stationID string) Columns {
	var tickets []Ticket
	for _, o := range list {
		status, ok := o.StationStatuses[stationID]
		if !ok {
			continue
		}
		filtered := o.Clone()
		filtered.Items = filtered.ItemsAt(stationID)
		tickets = append(tickets, Ticket{Order: filtered, StationStatus: status})
	}
	return split(tickets)
}

// ExpoView projects every live order by its overall status.
func ExpoView(list []Order) Columns {
	tickets := make([]Ticket, 0, len(list))
	for _, o := range list {
		tickets = append(tickets, Ticket{Order: o.Clone(), StationStatus: o.Status})
	}
	return split(tickets)
}

// PendingAt returns the orders whose given station has not started.
func PendingAt(list []Order, stationID string) []Order {
	var out []Order
	for _, o := range list {
		if o.StationStatuses[stationID] == enums.OrderStatusPending {
			out = append(out, o)
		}
	}
	return out
}

func split(tickets []Ticket) Columns {
	cols := Columns{
		Pending:   []Ticket{},
		Preparing: []Ticket{},
		Ready:     []Ticket{},
		Snoozed:   []Ticket{},
	}
	sortTickets(tickets)
	for _, t := range tickets {
		if t.IsSnoozed {
			cols.Snoozed = append(cols.Snoozed, t)
			continue
		}
		switch t.StationStatus {
		case enums.OrderStatusPending:
			cols.Pending = append(cols.Pending, t)
		case enums.OrderStatusPreparing:
			cols.Preparing = append(cols.Preparing, t)
		case enums.OrderStatusReady:
			cols.Ready = append(cols.Ready, t)
		}
	}
	return cols
}

// sortTickets puts priority tickets first, then the oldest.
func sortTickets(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if a.IsPriority != b.IsPriority {
			return a.IsPriority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
