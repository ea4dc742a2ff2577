package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/kds-backend/pkg/logger"
	"gorm.io/gorm"
)

// DefaultJournalRetention bounds how long ticket journal rows are kept when no retention is configured.
const DefaultJournalRetention = 30 * 24 * time.Hour

type journalPruner interface {
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// JournalRetention deletes journal entries older than MaxAge on every run.
type JournalRetention struct {
	logg   *logger.Logger
	pruner journalPruner
	maxAge time.Duration
	now    func() time.Time
}

// NewJournalRetention builds the retention job. A non-positive maxAge falls back to DefaultJournalRetention.
func NewJournalRetention(logg *logger.Logger, pruner journalPruner, maxAge time.Duration) (*JournalRetention, error) {
	if pruner == nil {
		return nil, fmt.Errorf("journal pruner required")
	}
	if maxAge <= 0 {
		maxAge = DefaultJournalRetention
	}
	return &JournalRetention{logg: logg, pruner: pruner, maxAge: maxAge, now: time.Now}, nil
}

// RetentionDays converts a day count from config into a retention window.
func RetentionDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func (j *JournalRetention) Name() string { return "journal-retention" }

func (j *JournalRetention) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	removed, err := j.pruner.DeleteBefore(ctx, nil, cutoff)
	if err != nil {
		return fmt.Errorf("prune journal before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if removed == 0 {
		j.logg.Debug(ctx, "journal.prune_noop")
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"removed": removed,
	}), "journal.pruned")
	return nil
}
