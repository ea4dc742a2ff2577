package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/kds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
	unspecified      = "unspecified"
)

// Persister receives fire-and-forget journal writes. Implementations never block the caller
// and never report failures back.
type Persister interface {
	PersistItemStatus(ctx context.Context, orderID, itemID string, status enums.OrderStatus)
	PersistRefire(ctx context.Context, orderID, itemID, reason string)
}

// Noop discards every write. It is used when no database is configured.
type Noop struct{}

func (Noop) PersistItemStatus(context.Context, string, string, enums.OrderStatus) {}
func (Noop) PersistRefire(context.Context, string, string, string)                {}

type recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// AsyncParams configure an AsyncPersister.
type AsyncParams struct {
	Logger     *logger.Logger
	Repository recorder
	LocationID string
	QueueSize  int
	Metrics    *metrics.BoardMetrics
	Now        func() time.Time
}

type pending struct {
	ctx   context.Context
	entry Entry
}

// AsyncPersister enqueues writes on a bounded queue drained by a single goroutine. A full
// queue drops the write.
type AsyncPersister struct {
	logg       *logger.Logger
	repo       recorder
	locationID string
	metrics    *metrics.BoardMetrics
	now        func() time.Time
	newID      func() uuid.UUID

	mu     sync.RWMutex
	closed bool
	queue  chan pending
	done   chan struct{}
}

// NewAsyncPersister starts the drain goroutine. Close stops it after flushing queued writes.
func NewAsyncPersister(params AsyncParams) (*AsyncPersister, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("journal repository required")
	}
	size := params.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	p := &AsyncPersister{
		logg:       params.Logger,
		repo:       params.Repository,
		locationID: params.LocationID,
		metrics:    params.Metrics,
		now:        now,
		newID:      uuid.New,
		queue:      make(chan pending, size),
		done:       make(chan struct{}),
	}
	go p.drain()
	return p, nil
}

func (p *AsyncPersister) PersistItemStatus(ctx context.Context, orderID, itemID string, status enums.OrderStatus) {
	p.enqueue(ctx, Entry{
		EventType: enums.JournalEventItemStatus,
		OrderID:   orderID,
		ItemID:    itemID,
		Status:    &status,
	})
}

func (p *AsyncPersister) PersistRefire(ctx context.Context, orderID, itemID, reason string) {
	if reason == "" {
		reason = unspecified
	}
	p.enqueue(ctx, Entry{
		EventType: enums.JournalEventRefire,
		OrderID:   orderID,
		ItemID:    itemID,
		Reason:    &reason,
	})
}

func (p *AsyncPersister) enqueue(ctx context.Context, entry Entry) {
	if ctx == nil {
		ctx = context.Background()
	}
	entry.ID = p.newID()
	entry.LocationID = p.locationID
	entry.OccurredAt = p.now().UTC()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- pending{ctx: context.WithoutCancel(ctx), entry: entry}:
	default:
		p.metrics.IncJournalDropped()
		p.logg.Warn(p.entryContext(ctx, entry), "journal queue full; dropping entry")
	}
}

func (p *AsyncPersister) drain() {
	defer close(p.done)
	for item := range p.queue {
		p.write(item)
	}
}

func (p *AsyncPersister) write(item pending) {
	ctx, cancel := context.WithTimeout(item.ctx, writeTimeout)
	defer cancel()
	if err := p.repo.Record(ctx, &item.entry); err != nil {
		p.metrics.IncJournalFailed()
		logCtx := p.logg.WithFields(p.entryContext(item.ctx, item.entry), pkgerrors.Dump(err).Fields())
		p.logg.Error(logCtx, "journal write failed", err)
	}
}

func (p *AsyncPersister) entryContext(ctx context.Context, entry Entry) context.Context {
	ctx = p.logg.WithOrderID(ctx, entry.OrderID)
	return p.logg.WithFields(ctx, map[string]any{
		"journal_event": entry.EventType.String(),
		"item_id":       entry.ItemID,
	})
}

// Close stops accepting writes and waits for queued writes to finish.
func (p *AsyncPersister) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
	return nil
}
