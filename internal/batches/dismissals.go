package batches

// Dismissals remembers which suggestion keys each station has hidden. A key stays hidden
// while it keeps being suggested; once it disappears the dismissal is forgotten so a later
// reappearance shows again.
type Dismissals struct {
	byStation map[string]map[string]struct{}
}

func NewDismissals() *Dismissals {
	return &Dismissals{byStation: make(map[string]map[string]struct{})}
}

func (d *Dismissals) Dismiss(stationID, key string) bool {
	keys, ok := d.byStation[stationID]
	if !ok {
		keys = make(map[string]struct{})
		d.byStation[stationID] = keys
	}
	if _, exists := keys[key]; exists {
		return false
	}
	keys[key] = struct{}{}
	return true
}

func (d *Dismissals) IsDismissed(stationID, key string) bool {
	_, ok := d.byStation[stationID][key]
	return ok
}

// Visible filters out dismissed suggestions and prunes dismissals whose key is no longer
// suggested.
func (d *Dismissals) Visible(stationID string, suggestions []Suggestion) []Suggestion {
	current := make(map[string]struct{}, len(suggestions))
	for _, s := range suggestions {
		current[s.Key] = struct{}{}
	}
	for key := range d.byStation[stationID] {
		if _, ok := current[key]; !ok {
			delete(d.byStation[stationID], key)
		}
	}

	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if d.IsDismissed(stationID, s.Key) {
			continue
		}
		out = append(out, s)
	}
	return out
}
