package messaging

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kds-backend/internal/stations"
)

func newTestBoard(history int) *Board {
	registry := stations.NewRegistry(stations.Kitchen, stations.Bar, stations.Dessert)
	b := NewBoard(BoardParams{
		Known:   registry.Has,
		History: history,
		Now:     func() time.Time { return time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC) },
	})
	seq := 0
	b.newID = func() string {
		seq++
		return fmt.Sprintf("m%d", seq)
	}
	return b
}

func TestBroadcastSharedReadFlag(t *testing.T) {
	b := newTestBoard(0)

	msg, ok := b.Send(stations.Bar, stations.Broadcast, "86 the mint")
	require.True(t, ok)
	assert.True(t, msg.IsBroadcast())

	assert.Equal(t, 1, b.UnreadCount(stations.Kitchen))
	assert.Equal(t, 1, b.UnreadCount(stations.Dessert))
	assert.Equal(t, 0, b.UnreadCount(stations.Bar), "sender never counts its own message")

	_, ok = b.MarkRead(msg.ID)
	require.True(t, ok)

	assert.Equal(t, 0, b.UnreadCount(stations.Kitchen))
	// The read flag is shared, so dessert's count drops too.
	assert.Equal(t, 0, b.UnreadCount(stations.Dessert))
}

func TestDirectMessageUnread(t *testing.T) {
	b := newTestBoard(0)
	b.Send(stations.Kitchen, stations.Bar, "need 2 lemons")

	assert.Equal(t, 1, b.UnreadCount(stations.Bar))
	assert.Equal(t, 0, b.UnreadCount(stations.Dessert))
	assert.Equal(t, 0, b.UnreadCount(stations.Kitchen))
}

func TestSendNoops(t *testing.T) {
	b := newTestBoard(0)

	_, ok := b.Send(stations.Kitchen, stations.Bar, "   ")
	assert.False(t, ok)
	_, ok = b.Send("grill", stations.Bar, "hi")
	assert.False(t, ok)
	_, ok = b.Send(stations.Kitchen, "grill", "hi")
	assert.False(t, ok)
	_, ok = b.Send(stations.Kitchen, stations.Kitchen, "hi")
	assert.False(t, ok)
	assert.Empty(t, b.All())
}

func TestMarkReadNoops(t *testing.T) {
	b := newTestBoard(0)
	msg, _ := b.Send(stations.Kitchen, stations.Bar, "fire table 4")

	_, ok := b.MarkRead("missing")
	assert.False(t, ok)
	_, ok = b.MarkRead(msg.ID)
	assert.True(t, ok)
	_, ok = b.MarkRead(msg.ID)
	assert.False(t, ok)
}

func TestMarkAllReadOnlyTouchesInbox(t *testing.T) {
	b := newTestBoard(0)
	b.Send(stations.Kitchen, stations.Bar, "a")
	b.Send(stations.Dessert, stations.Broadcast, "b")
	b.Send(stations.Bar, stations.Kitchen, "c")

	changed := b.MarkAllRead(stations.Bar)
	assert.Len(t, changed, 2)
	assert.Equal(t, 0, b.UnreadCount(stations.Bar))
	assert.Equal(t, 1, b.UnreadCount(stations.Kitchen))
}

func TestInboxNewestFirst(t *testing.T) {
	b := newTestBoard(0)
	b.Send(stations.Kitchen, stations.Bar, "first")
	b.Send(stations.Dessert, stations.Broadcast, "second")
	b.Send(stations.Bar, stations.Kitchen, "own")

	inbox := b.Inbox(stations.Bar)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Text)
	assert.Equal(t, "first", inbox[1].Text)
}

func TestHistoryIsBounded(t *testing.T) {
	b := newTestBoard(3)
	for i := 0; i < 5; i++ {
		b.Send(stations.Kitchen, stations.Bar, fmt.Sprintf("msg %d", i))
	}

	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, "msg 2", all[0].Text)
	assert.Equal(t, "msg 4", all[2].Text)
}

func TestIngestDeduplicates(t *testing.T) {
	b := newTestBoard(0)
	remote := Message{ID: "remote-1", FromStationID: stations.Bar, ToStation: stations.Kitchen, Text: "hello"}

	assert.False(t, b.Has("remote-1"))
	assert.True(t, b.Ingest(remote))
	assert.True(t, b.Has("remote-1"))
	assert.False(t, b.Ingest(remote))
	assert.False(t, b.Ingest(Message{ID: "remote-2"}))
	assert.False(t, b.Has("remote-2"))
	assert.Equal(t, 1, b.UnreadCount(stations.Kitchen))

	read := remote
	read.IsRead = true
	assert.True(t, b.Ingest(read))
	assert.False(t, b.Ingest(read))
	assert.Zero(t, b.UnreadCount(stations.Kitchen))

	remote.IsRead = false
	assert.False(t, b.Ingest(remote), "a replayed unread copy never clears the flag")
}
