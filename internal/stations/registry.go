package stations

import "strings"

// Broadcast addresses every station except the sender. It is never a station id.
const Broadcast = "all"

const (
	Kitchen = "kitchen"
	Bar     = "bar"
	Dessert = "dessert"
	Coffee  = "coffee"
)

// Station is static configuration for one prep area.
type Station struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var catalog = []Station{
	{ID: Kitchen, Name: "Kitchen", Icon: "chef-hat", Color: "#f97316"},
	{ID: Bar, Name: "Bar", Icon: "wine", Color: "#8b5cf6"},
	{ID: Dessert, Name: "Dessert", Icon: "cake", Color: "#ec4899"},
	{ID: Coffee, Name: "Coffee", Icon: "coffee", Color: "#a16207"},
}

var defaultIDs = []string{Kitchen, Bar, Dessert}

// Registry is the enabled subset of the catalog, in catalog order.
type Registry struct {
	stations []Station
	byID     map[string]Station
}

// NewRegistry enables the given ids. Unknown ids are ignored; an empty result falls back to
// kitchen, bar and dessert.
func NewRegistry(ids ...string) *Registry {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || id == Broadcast {
			continue
		}
		wanted[id] = struct{}{}
	}
	r := build(wanted)
	if len(r.stations) == 0 {
		fallback := make(map[string]struct{}, len(defaultIDs))
		for _, id := range defaultIDs {
			fallback[id] = struct{}{}
		}
		r = build(fallback)
	}
	return r
}

func build(wanted map[string]struct{}) *Registry {
	r := &Registry{byID: make(map[string]Station, len(wanted))}
	for _, st := range catalog {
		if _, ok := wanted[st.ID]; !ok {
			continue
		}
		r.stations = append(r.stations, st)
		r.byID[st.ID] = st
	}
	return r
}

func (r *Registry) Get(id string) (Station, bool) {
	st, ok := r.byID[id]
	return st, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns the enabled stations in a stable order.
func (r *Registry) All() []Station {
	out := make([]Station, len(r.stations))
	copy(out, r.stations)
	return out
}

// IDs returns the enabled station ids in a stable order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.stations))
	for _, st := range r.stations {
		out = append(out, st.ID)
	}
	return out
}
