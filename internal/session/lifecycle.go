package session

import (
	"context"
	"time"

	"github.com/angelmondragon/kds-backend/internal/cron"
	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/pkg/enums"
)

// Load fetches the intake feed and adds orders the board has never seen. Orders already live
// or waiting in recall are left alone. It returns the number of orders added.
func (s *Session) Load(ctx context.Context) int {
	if s.loader == nil {
		return 0
	}
	fetched := s.loader.Load(s.ctx(ctx))
	if len(fetched) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	ctx = s.ctx(ctx)
	added := 0
	for _, o := range fetched {
		if s.store.Has(o.ID) || s.recall.Has(o.ID) {
			continue
		}
		stored := s.store.Upsert(o)
		s.emitOrder(ctx, enums.BoardEventOrderUpserted, stored)
		added++
	}
	if added > 0 {
		s.ordersChanged()
		s.logg.Info(s.logg.WithField(ctx, "orders_added", added), "intake merged")
	}
	return added
}

// Sweep wakes every order whose snooze elapsed.
func (s *Session) Sweep(ctx context.Context) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	woken := s.snooze.Sweep()
	ctx = s.ctx(ctx)
	for _, o := range woken {
		s.emitOrder(ctx, enums.BoardEventOrderWoken, o)
	}
	if len(woken) > 0 {
		s.ordersChanged()
	}
	return woken
}

// ExpireModifications clears modification highlights older than the configured window.
func (s *Session) ExpireModifications(ctx context.Context) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	cleared := s.mods.Expire()
	ctx = s.ctx(ctx)
	for _, o := range cleared {
		s.emitOrder(ctx, enums.BoardEventModificationClear, o)
	}
	return cleared
}

// SimulateModification applies one random edit to an eligible order.
func (s *Session) SimulateModification(ctx context.Context) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orders.Order{}, false
	}
	o, ok := s.simulator.Step()
	if ok {
		s.emitOrder(s.logg.WithOrderID(s.ctx(ctx), o.ID), enums.BoardEventOrderModified, o)
		s.ordersChanged()
	}
	return o, ok
}

// Jobs returns the periodic work of this board for a cron.Service ticking at the board tick
// interval.
func (s *Session) Jobs() []cron.Job {
	jobs := []cron.Job{
		cron.NewFuncJob("snooze-sweep", func(ctx context.Context) error {
			s.Sweep(ctx)
			return nil
		}),
		cron.NewFuncJob("modification-expiry", func(ctx context.Context) error {
			s.ExpireModifications(ctx)
			return nil
		}),
	}
	if s.loader != nil {
		jobs = append(jobs, cron.Every(positive(s.board.RefreshInterval, 30*time.Second),
			cron.NewFuncJob("intake-refresh", func(ctx context.Context) error {
				s.Load(ctx)
				return nil
			}), s.now))
	}
	if s.simulate {
		jobs = append(jobs, cron.Every(positive(s.board.SimulationInterval, 45*time.Second),
			cron.NewFuncJob("modification-simulator", func(ctx context.Context) error {
				s.SimulateModification(ctx)
				return nil
			}), s.now))
	}
	return jobs
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
