// Package session composes the board components behind one lock. Each exported method is a
// single non-preemptible step, whether triggered by an operator request, the bus or the tick.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/angelmondragon/kds-backend/internal/batches"
	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/intake"
	"github.com/angelmondragon/kds-backend/internal/journal"
	"github.com/angelmondragon/kds-backend/internal/messaging"
	"github.com/angelmondragon/kds-backend/internal/modifications"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/recall"
	"github.com/angelmondragon/kds-backend/internal/refire"
	"github.com/angelmondragon/kds-backend/internal/snooze"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/metrics"
)

// Params wire a Session.
type Params struct {
	LocationID string
	Board      config.BoardConfig
	Stations   *stations.Registry
	Logger     *logger.Logger
	// Loader feeds Load. Nil means the board starts empty.
	Loader *intake.Loader
	// Journal receives item status and refire writes. Nil discards them.
	Journal   journal.Persister
	Notifiers []events.Notifier
	Metrics   *metrics.BoardMetrics
	// Simulate enables the demo modification job.
	Simulate bool
	// Rand drives the modification simulator. Nil seeds one randomly.
	Rand *rand.Rand
	Now  func() time.Time
}

// Session is one dashboard's board state.
type Session struct {
	mu     sync.Mutex
	closed bool

	locationID string
	threshold  int
	registry   *stations.Registry
	logg       *logger.Logger
	loader     *intake.Loader
	journal    journal.Persister
	notifier   events.Fanout
	metrics    *metrics.BoardMetrics
	now        func() time.Time
	board      config.BoardConfig
	simulate   bool

	store      *orders.Store
	snooze     *snooze.Manager
	refire     *refire.Tracker
	recall     *recall.Registry
	dismissals *batches.Dismissals
	messages   *messaging.Board
	mods       *modifications.Tracker
	simulator  *modifications.Simulator
}

// New builds a session with an empty board.
func New(params Params) (*Session, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	registry := params.Stations
	if registry == nil {
		registry = stations.NewRegistry(params.Board.Stations...)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	persister := params.Journal
	if persister == nil {
		persister = journal.Noop{}
	}
	threshold := params.Board.BatchThreshold
	if threshold < 1 {
		threshold = batches.DefaultThreshold
	}

	store := orders.NewStore(now)
	recalls := recall.NewRegistry(store, params.Board.RecallCapacity, now)
	mods := modifications.NewTracker(store, params.Board.ModificationHighlight, now, registry.Has)

	s := &Session{
		locationID: params.LocationID,
		threshold:  threshold,
		registry:   registry,
		logg:       params.Logger,
		loader:     params.Loader,
		journal:    persister,
		notifier:   events.Fanout(params.Notifiers),
		metrics:    params.Metrics,
		now:        now,
		board:      params.Board,
		simulate:   params.Simulate,
		store:      store,
		snooze:     snooze.NewManager(store, now),
		refire:     refire.NewTracker(store, now, recalls.Has),
		recall:     recalls,
		dismissals: batches.NewDismissals(),
		messages: messaging.NewBoard(messaging.BoardParams{
			Known:   registry.Has,
			History: params.Board.MessageHistory,
			Now:     now,
		}),
		mods:      mods,
		simulator: modifications.NewSimulator(mods, store, params.Rand),
	}
	return s, nil
}

// Stations returns the stations this board runs.
func (s *Session) Stations() []stations.Station {
	return s.registry.All()
}

// LocationID returns the location this board serves.
func (s *Session) LocationID() string {
	return s.locationID
}

// Close stops the session. Later mutations are no-ops and reads see the final state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) ctx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.logg.WithLocationID(ctx, s.locationID)
}

func (s *Session) emit(ctx context.Context, event events.BoardEvent) {
	event.LocationID = s.locationID
	event.OccurredAt = s.now().UTC()
	s.metrics.IncEvent(event.Type.String())
	s.notifier.Notify(ctx, event)
}

func (s *Session) emitOrder(ctx context.Context, eventType enums.BoardEventType, o orders.Order) {
	snapshot := o
	s.emit(ctx, events.BoardEvent{Type: eventType, OrderID: o.ID, Order: &snapshot})
}

// ordersChanged runs after every mutation of the live set: it prunes batch dismissals whose
// key vanished and refreshes the board gauges.
func (s *Session) ordersChanged() {
	list := s.store.List()
	for _, id := range s.registry.IDs() {
		s.dismissals.Visible(id, batches.Detect(list, id, s.threshold))
	}
	s.metrics.SetBoardSize(len(list), s.recall.Len())
}
