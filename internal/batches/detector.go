package batches

import (
	"sort"
	"strings"

	"github.com/angelmondragon/kds-backend/internal/orders"
)

const DefaultThreshold = 3

// Suggestion flags an item that enough pending orders share to be cooked together.
type Suggestion struct {
	Key           string   `json:"key"`
	ItemName      string   `json:"itemName"`
	Variant       string   `json:"variant,omitempty"`
	StationID     string   `json:"stationId"`
	Count         int      `json:"count"`
	TotalQuantity int      `json:"totalQuantity"`
	OrderIDs      []string `json:"orderIds"`
}

// Key is the stable identity of a suggestion for a (name, variant) pair.
func Key(name, variant string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(variant))
}

// Detect groups the station's items across orders that have not started there, counting
// distinct orders per (name, variant). Groups reaching threshold are returned by count,
// then key.
func Detect(list []orders.Order, stationID string, threshold int) []Suggestion {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	groups := make(map[string]*Suggestion)
	for _, o := range orders.PendingAt(list, stationID) {
		counted := make(map[string]struct{})
		for _, it := range o.ItemsAt(stationID) {
			key := Key(it.Name, it.Variant)
			g, ok := groups[key]
			if !ok {
				g = &Suggestion{
					Key:       key,
					ItemName:  it.Name,
					Variant:   it.Variant,
					StationID: stationID,
				}
				groups[key] = g
			}
			g.TotalQuantity += it.Quantity
			if _, seen := counted[key]; seen {
				continue
			}
			counted[key] = struct{}{}
			g.Count++
			g.OrderIDs = append(g.OrderIDs, o.ID)
		}
	}

	out := make([]Suggestion, 0, len(groups))
	for _, g := range groups {
		if g.Count >= threshold {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
