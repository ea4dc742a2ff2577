// Package bus publishes board activity over NATS. Station messages are relayed back into
// every board process of the location; order events go to the orders subject for downstream
// consumers and are not applied by other boards.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/messaging"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/natsbus"
	"github.com/google/uuid"
)

const (
	ordersTopic   = "orders"
	messagesTopic = "messages"
)

// Envelope is the wire shape on both subjects.
type Envelope struct {
	Origin string            `json:"origin"`
	Event  events.BoardEvent `json:"event"`
}

// Subjects derives the per-location subjects.
type Subjects struct {
	Orders   string
	Messages string
}

func NewSubjects(prefix, locationID string) Subjects {
	return Subjects{
		Orders:   natsbus.Subject(prefix, locationID, ordersTopic),
		Messages: natsbus.Subject(prefix, locationID, messagesTopic),
	}
}

// NotifierParams configure a Notifier.
type NotifierParams struct {
	Publisher natsbus.Publisher
	Subjects  Subjects
	Logger    *logger.Logger
	// Origin identifies this process; a random id is used when empty.
	Origin string
}

// Notifier publishes board events. Message events go to the messages subject and everything
// else to the orders subject. Relayed events are skipped. Publish failures are logged and
// dropped.
type Notifier struct {
	pub      natsbus.Publisher
	subjects Subjects
	logg     *logger.Logger
	origin   string
}

func NewNotifier(params NotifierParams) (*Notifier, error) {
	if params.Publisher == nil {
		return nil, errors.New("publisher required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Subjects.Orders == "" || params.Subjects.Messages == "" {
		return nil, errors.New("subjects required")
	}
	origin := params.Origin
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Notifier{
		pub:      params.Publisher,
		subjects: params.Subjects,
		logg:     params.Logger,
		origin:   origin,
	}, nil
}

// Origin returns the id stamped on every published envelope.
func (n *Notifier) Origin() string { return n.origin }

func (n *Notifier) Notify(ctx context.Context, event events.BoardEvent) {
	if event.Relayed {
		return
	}
	subject := n.subjects.Orders
	if isMessageEvent(event.Type) {
		subject = n.subjects.Messages
	}
	data, err := json.Marshal(Envelope{Origin: n.origin, Event: event})
	if err != nil {
		n.logg.Error(ctx, "encode board event", err)
		return
	}
	if err := n.pub.Publish(ctx, subject, data); err != nil {
		n.logg.Error(n.logg.WithFields(ctx, map[string]any{
			"subject":    subject,
			"event_type": event.Type.String(),
		}), "publish board event", err)
	}
}

func isMessageEvent(t enums.BoardEventType) bool {
	return t == enums.BoardEventMessageSent || t == enums.BoardEventMessageRead
}

// MessageIngester applies a message replicated from another screen.
type MessageIngester interface {
	IngestMessage(ctx context.Context, msg messaging.Message) bool
}

// MessageRelayParams configure a MessageRelay.
type MessageRelayParams struct {
	Subscriber natsbus.Subscriber
	Subjects   Subjects
	Target     MessageIngester
	Logger     *logger.Logger
	// Origin must match the local Notifier so a screen ignores its own echoes.
	Origin string
}

// MessageRelay feeds station messages from other screens into the local session.
type MessageRelay struct {
	sub      natsbus.Subscriber
	subjects Subjects
	target   MessageIngester
	logg     *logger.Logger
	origin   string
	stop     func() error
}

func NewMessageRelay(params MessageRelayParams) (*MessageRelay, error) {
	if params.Subscriber == nil {
		return nil, errors.New("subscriber required")
	}
	if params.Target == nil {
		return nil, errors.New("message target required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &MessageRelay{
		sub:      params.Subscriber,
		subjects: params.Subjects,
		target:   params.Target,
		logg:     params.Logger,
		origin:   params.Origin,
	}, nil
}

// Start subscribes to the messages subject.
func (r *MessageRelay) Start(ctx context.Context) error {
	stop, err := r.sub.Subscribe(ctx, r.subjects.Messages, r.handle)
	if err != nil {
		return fmt.Errorf("message relay: %w", err)
	}
	r.stop = stop
	r.logg.Info(r.logg.WithField(ctx, "subject", r.subjects.Messages), "message relay subscribed")
	return nil
}

func (r *MessageRelay) handle(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Origin == r.origin || env.Event.Message == nil || !isMessageEvent(env.Event.Type) {
		return nil
	}
	r.target.IngestMessage(ctx, *env.Event.Message)
	return nil
}

// Stop unsubscribes. It is safe to call when Start was never called.
func (r *MessageRelay) Stop() error {
	if r.stop == nil {
		return nil
	}
	err := r.stop()
	r.stop = nil
	return err
}
