package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kds-backend/internal/stations"
)

const DefaultHistory = 200

// Message is an immutable note between stations. IsRead is a single flag shared by every
// recipient, including all recipients of a broadcast.
type Message struct {
	ID            string    `json:"id"`
	FromStationID string    `json:"fromStationId"`
	ToStation     string    `json:"toStation"`
	Text          string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	IsRead        bool      `json:"isRead"`
}

// IsBroadcast reports whether the message targets every station but the sender.
func (m Message) IsBroadcast() bool {
	return m.ToStation == stations.Broadcast
}

// AddressedTo reports whether station should see the message in its inbox.
func (m Message) AddressedTo(stationID string) bool {
	if m.FromStationID == stationID {
		return false
	}
	return m.ToStation == stationID || m.IsBroadcast()
}

type BoardParams struct {
	// Known reports whether a station id may send or receive messages.
	Known   func(stationID string) bool
	History int
	Now     func() time.Time
}

// Board holds the message history, oldest first, bounded by History.
type Board struct {
	known    func(string) bool
	history  int
	now      func() time.Time
	newID    func() string
	messages []Message
}

func NewBoard(params BoardParams) *Board {
	b := &Board{
		known:   params.Known,
		history: params.History,
		now:     params.Now,
		newID:   uuid.NewString,
	}
	if b.known == nil {
		b.known = func(string) bool { return true }
	}
	if b.history <= 0 {
		b.history = DefaultHistory
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Send appends a message. Empty text, unknown stations and messages to oneself are no-ops.
func (b *Board) Send(from, to, text string) (Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !b.known(from) || from == to {
		return Message{}, false
	}
	if to != stations.Broadcast && !b.known(to) {
		return Message{}, false
	}
	msg := Message{
		ID:            b.newID(),
		FromStationID: from,
		ToStation:     to,
		Text:          text,
		Timestamp:     b.now().UTC(),
	}
	b.append(msg)
	return msg, true
}

// Ingest stores a message produced by another screen. For a known id only the read flag is
// merged, so a replicated read marks the local copy read.
func (b *Board) Ingest(msg Message) bool {
	if msg.ID == "" || strings.TrimSpace(msg.Text) == "" {
		return false
	}
	if i, ok := b.index(msg.ID); ok {
		if msg.IsRead && !b.messages[i].IsRead {
			b.messages[i].IsRead = true
			return true
		}
		return false
	}
	b.append(msg)
	return true
}

// MarkRead flips the shared read flag. Unknown or already read messages are no-ops.
func (b *Board) MarkRead(id string) (Message, bool) {
	i, ok := b.index(id)
	if !ok || b.messages[i].IsRead {
		return Message{}, false
	}
	b.messages[i].IsRead = true
	return b.messages[i], true
}

// MarkAllRead marks every unread message addressed to station and returns the ones it changed.
func (b *Board) MarkAllRead(stationID string) []Message {
	var changed []Message
	for i := range b.messages {
		if b.messages[i].IsRead || !b.messages[i].AddressedTo(stationID) {
			continue
		}
		b.messages[i].IsRead = true
		changed = append(changed, b.messages[i])
	}
	return changed
}

// UnreadCount counts unread messages addressed to station directly or by broadcast, excluding
// its own.
func (b *Board) UnreadCount(stationID string) int {
	count := 0
	for _, m := range b.messages {
		if !m.IsRead && m.AddressedTo(stationID) {
			count++
		}
	}
	return count
}

// Inbox returns the messages station can see, newest first.
func (b *Board) Inbox(stationID string) []Message {
	var out []Message
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].AddressedTo(stationID) {
			out = append(out, b.messages[i])
		}
	}
	return out
}

// All returns the full history, oldest first.
func (b *Board) All() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Has reports whether a message with id is in the history.
func (b *Board) Has(id string) bool {
	_, ok := b.index(id)
	return ok
}

func (b *Board) append(msg Message) {
	b.messages = append(b.messages, msg)
	if overflow := len(b.messages) - b.history; overflow > 0 {
		b.messages = append([]Message(nil), b.messages[overflow:]...)
	}
}

func (b *Board) index(id string) (int, bool) {
	for i := range b.messages {
		if b.messages[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
