package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPruner struct {
	cutoffs []time.Time
	removed int64
	err     error
}

func (p *recordingPruner) DeleteBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.removed, p.err
}

func pinnedRetention(t *testing.T, pruner *recordingPruner, maxAge time.Duration, now time.Time) *JournalRetention {
	t.Helper()
	job, err := NewJournalRetention(nil, pruner, maxAge)
	require.NoError(t, err)
	job.now = func() time.Time { return now }
	return job
}

func TestJournalRetentionUsesDefaultWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	pruner := &recordingPruner{removed: 4}

	require.NoError(t, pinnedRetention(t, pruner, 0, now).Run(context.Background()))
	require.Len(t, pruner.cutoffs, 1)
	assert.Equal(t, now.Add(-DefaultJournalRetention), pruner.cutoffs[0])
}

func TestJournalRetentionHonorsConfiguredDays(t *testing.T) {
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	pruner := &recordingPruner{}

	require.NoError(t, pinnedRetention(t, pruner, RetentionDays(7), now).Run(context.Background()))
	assert.Equal(t, time.Date(2026, 2, 3, 6, 0, 0, 0, time.UTC), pruner.cutoffs[0])
}

func TestJournalRetentionWrapsPrunerError(t *testing.T) {
	boom := errors.New("boom")
	job := pinnedRetention(t, &recordingPruner{err: boom}, time.Hour, time.Now())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewJournalRetentionRequiresPruner(t *testing.T) {
	_, err := NewJournalRetention(nil, nil, time.Hour)
	assert.Error(t, err)
}

func TestJournalRetentionName(t *testing.T) {
	job, err := NewJournalRetention(nil, &recordingPruner{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "journal-retention", job.Name())
}
