package enums

import "fmt"

// JournalEventType identifies rows written to the ticket journal.
type JournalEventType string

const (
	JournalEventItemStatus JournalEventType = "item_status"
	JournalEventRefire     JournalEventType = "refire"
)

var validJournalEventTypes = []JournalEventType{
	JournalEventItemStatus,
	JournalEventRefire,
}

func (t JournalEventType) String() string {
	return string(t)
}

func (t JournalEventType) IsValid() bool {
	for _, candidate := range validJournalEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseJournalEventType(value string) (JournalEventType, error) {
	for _, candidate := range validJournalEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journal event type %q", value)
}
