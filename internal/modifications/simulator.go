package modifications

import (
	"math/rand/v2"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/refire"
)

var demoMenu = map[string][]string{
	"kitchen": {"Fries", "Side Salad", "Garlic Bread", "Onion Rings"},
	"bar":     {"Lemonade", "Iced Tea", "Sparkling Water"},
	"dessert": {"Vanilla Scoop", "Brownie"},
	"coffee":  {"Espresso", "Flat White"},
}

// Simulator produces point-of-sale style edits for demo boards.
type Simulator struct {
	tracker *Tracker
	store   *orders.Store
	rng     *rand.Rand
}

func NewSimulator(tracker *Tracker, store *orders.Store, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{tracker: tracker, store: store, rng: rng}
}

// Step modifies one random eligible order. Remakes and snoozed orders are never targeted.
func (s *Simulator) Step() (orders.Order, bool) {
	var candidates []orders.Order
	for _, o := range s.store.List() {
		if refire.Eligible(o) && !o.IsSnoozed && len(o.Items) > 0 {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return orders.Order{}, false
	}
	target := candidates[s.rng.IntN(len(candidates))]
	existing := target.Items[s.rng.IntN(len(target.Items))]

	if s.rng.IntN(2) == 0 {
		return s.tracker.Apply(target.ID, Change{
			Quantities: map[string]int{existing.ID: existing.Quantity + 1},
		})
	}
	menu := demoMenu[existing.StationID]
	if len(menu) == 0 {
		menu = demoMenu["kitchen"]
	}
	return s.tracker.Apply(target.ID, Change{
		AddItems: []orders.OrderItem{{
			Name:      menu[s.rng.IntN(len(menu))],
			Quantity:  1,
			StationID: existing.StationID,
		}},
	})
}
