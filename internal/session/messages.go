package session

import (
	"context"

	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/messaging"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// SendMessage posts a note from one station to another or to every station.
func (s *Session) SendMessage(ctx context.Context, from, to, text string) (messaging.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return messaging.Message{}, false
	}
	msg, ok := s.messages.Send(from, to, text)
	if ok {
		s.emitMessage(s.logg.WithStationID(s.ctx(ctx), from), enums.BoardEventMessageSent, msg)
	}
	return msg, ok
}

// MarkMessageRead flips the shared read flag of one message.
func (s *Session) MarkMessageRead(ctx context.Context, id string) (messaging.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return messaging.Message{}, false
	}
	msg, ok := s.messages.MarkRead(id)
	if ok {
		s.emitMessage(s.ctx(ctx), enums.BoardEventMessageRead, msg)
	}
	return msg, ok
}

// MarkAllMessagesRead marks a station's inbox read and returns how many messages changed.
func (s *Session) MarkAllMessagesRead(ctx context.Context, stationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	changed := s.messages.MarkAllRead(stationID)
	ctx = s.logg.WithStationID(s.ctx(ctx), stationID)
	for _, msg := range changed {
		s.emitMessage(ctx, enums.BoardEventMessageRead, msg)
	}
	return len(changed)
}

// Messages returns a station's inbox, newest first.
func (s *Session) Messages(stationID string) []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.messages.Inbox(stationID)
	if inbox == nil {
		inbox = []messaging.Message{}
	}
	return inbox
}

// UnreadCount counts unread messages addressed to a station.
func (s *Session) UnreadCount(stationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.UnreadCount(stationID)
}

// IngestMessage stores a message relayed from another board process of the same location, or
// applies its read flag when already known, and announces the change to local screens. The
// event is marked relayed so it is not published again.
func (s *Session) IngestMessage(ctx context.Context, msg messaging.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	eventType := enums.BoardEventMessageSent
	if s.messages.Has(msg.ID) {
		eventType = enums.BoardEventMessageRead
	}
	if !s.messages.Ingest(msg) {
		return false
	}
	snapshot := msg
	s.emit(s.ctx(ctx), events.BoardEvent{
		Type:      eventType,
		StationID: msg.FromStationID,
		Message:   &snapshot,
		Relayed:   true,
	})
	return true
}

func (s *Session) emitMessage(ctx context.Context, eventType enums.BoardEventType, msg messaging.Message) {
	snapshot := msg
	s.emit(ctx, events.BoardEvent{Type: eventType, StationID: msg.FromStationID, Message: &snapshot})
}
