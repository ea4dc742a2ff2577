package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/messaging"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/natsbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

// memoryBus delivers published payloads synchronously to subscribers of the same subject.
type memoryBus struct {
	sent     []published
	handlers map[string][]natsbus.Handler
	err      error
}

func newMemoryBus() *memoryBus {
	return &memoryBus{handlers: map[string][]natsbus.Handler{}}
}

func (m *memoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, published{subject: subject, data: data})
	for _, h := range m.handlers[subject] {
		_ = h(ctx, data)
	}
	return nil
}

func (m *memoryBus) Subscribe(_ context.Context, subject string, handler natsbus.Handler) (func() error, error) {
	m.handlers[subject] = append(m.handlers[subject], handler)
	return func() error {
		delete(m.handlers, subject)
		return nil
	}, nil
}

type ingestRecorder struct {
	got []messaging.Message
}

func (r *ingestRecorder) IngestMessage(_ context.Context, msg messaging.Message) bool {
	r.got = append(r.got, msg)
	return true
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "bus-test"})
}

func TestNotifierRoutesBySubject(t *testing.T) {
	mem := newMemoryBus()
	subjects := NewSubjects("kds", "downtown")
	n, err := NewNotifier(NotifierParams{Publisher: mem, Subjects: subjects, Logger: testLogger(), Origin: "screen-a"})
	require.NoError(t, err)

	ctx := context.Background()
	order := orders.Order{ID: "o1"}
	n.Notify(ctx, events.BoardEvent{Type: enums.BoardEventOrderBumped, OrderID: "o1", Order: &order})
	n.Notify(ctx, events.BoardEvent{Type: enums.BoardEventMessageSent, Message: &messaging.Message{ID: "m1", Text: "hi"}})

	require.Len(t, mem.sent, 2)
	assert.Equal(t, "kds.downtown.orders", mem.sent[0].subject)
	assert.Equal(t, "kds.downtown.messages", mem.sent[1].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(mem.sent[0].data, &env))
	assert.Equal(t, "screen-a", env.Origin)
	assert.Equal(t, enums.BoardEventOrderBumped, env.Event.Type)
	assert.Equal(t, "o1", env.Event.OrderID)
}

func TestNotifierSkipsRelayedEvents(t *testing.T) {
	mem := newMemoryBus()
	n, err := NewNotifier(NotifierParams{Publisher: mem, Subjects: NewSubjects("kds", "downtown"), Logger: testLogger()})
	require.NoError(t, err)

	n.Notify(context.Background(), events.BoardEvent{
		Type:    enums.BoardEventMessageSent,
		Message: &messaging.Message{ID: "m1", Text: "from another screen"},
		Relayed: true,
	})
	assert.Empty(t, mem.sent)
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	mem := newMemoryBus()
	mem.err = errors.New("nats down")
	n, err := NewNotifier(NotifierParams{Publisher: mem, Subjects: NewSubjects("kds", "x"), Logger: testLogger()})
	require.NoError(t, err)
	assert.NotEmpty(t, n.Origin())
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), events.BoardEvent{Type: enums.BoardEventOrderUpserted})
	})
}

func TestMessageRelayIgnoresOwnEchoes(t *testing.T) {
	mem := newMemoryBus()
	subjects := NewSubjects("kds", "downtown")
	local, err := NewNotifier(NotifierParams{Publisher: mem, Subjects: subjects, Logger: testLogger(), Origin: "screen-a"})
	require.NoError(t, err)
	remote, err := NewNotifier(NotifierParams{Publisher: mem, Subjects: subjects, Logger: testLogger(), Origin: "screen-b"})
	require.NoError(t, err)

	target := &ingestRecorder{}
	relay, err := NewMessageRelay(MessageRelayParams{
		Subscriber: mem,
		Subjects:   subjects,
		Target:     target,
		Logger:     testLogger(),
		Origin:     local.Origin(),
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, relay.Start(ctx))

	own := messaging.Message{ID: "m-own", FromStationID: stations.Kitchen, ToStation: stations.Bar, Text: "mine"}
	local.Notify(ctx, events.BoardEvent{Type: enums.BoardEventMessageSent, Message: &own})
	assert.Empty(t, target.got)

	theirs := messaging.Message{ID: "m-remote", FromStationID: stations.Bar, ToStation: stations.Kitchen, Text: "yours"}
	remote.Notify(ctx, events.BoardEvent{Type: enums.BoardEventMessageSent, Message: &theirs})
	require.Len(t, target.got, 1)
	assert.Equal(t, "m-remote", target.got[0].ID)

	require.NoError(t, relay.Stop())
	require.NoError(t, relay.Stop())
	remote.Notify(ctx, events.BoardEvent{Type: enums.BoardEventMessageRead, Message: &theirs})
	assert.Len(t, target.got, 1)
}

func TestMessageRelayRejectsGarbage(t *testing.T) {
	relay, err := NewMessageRelay(MessageRelayParams{Subscriber: newMemoryBus(), Target: &ingestRecorder{}, Logger: testLogger()})
	require.NoError(t, err)
	assert.Error(t, relay.handle(context.Background(), []byte("{")))
	assert.NoError(t, relay.handle(context.Background(), []byte(`{"origin":"x","event":{"type":"order.bumped"}}`)))
}

func TestConstructorsValidate(t *testing.T) {
	_, err := NewNotifier(NotifierParams{Subjects: NewSubjects("kds", "x"), Logger: testLogger()})
	assert.Error(t, err)
	_, err = NewNotifier(NotifierParams{Publisher: newMemoryBus(), Logger: testLogger()})
	assert.Error(t, err)
	_, err = NewMessageRelay(MessageRelayParams{Target: &ingestRecorder{}, Logger: testLogger()})
	assert.Error(t, err)
	_, err = NewMessageRelay(MessageRelayParams{Subscriber: newMemoryBus(), Logger: testLogger()})
	assert.Error(t, err)
}
