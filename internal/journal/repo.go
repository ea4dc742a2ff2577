package journal

import (
	"context"
	"time"

	"github.com/angelmondragon/kds-backend/pkg/db"
	"github.com/angelmondragon/kds-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for the ticket journal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Record(ctx context.Context, entry *Entry) error
	ListByOrder(ctx context.Context, orderID string, limit int, cursor *pagination.Cursor) ([]Entry, *pagination.Cursor, error)
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a journal repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Record inserts entry. Replaying an entry with an id that already exists is a no-op.
func (r *repositoryImpl) Record(ctx context.Context, entry *Entry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && db.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}

// ListByOrder pages an order's journal newest first.
func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID string, limit int, cursor *pagination.Cursor) ([]Entry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&Entry{}).Where("order_id = ?", orderID)
	if cursor != nil {
		query = query.Where("occurred_at < ? OR (occurred_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID.String())
	}

	var entries []Entry
	if err := query.Order("occurred_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&entries).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(entries, limit, func(e Entry) pagination.Cursor {
		return pagination.Cursor{At: e.OccurredAt, ID: e.ID}
	})
	return page, next, nil
}

// DeleteBefore removes entries that occurred before cutoff. tx may be nil.
func (r *repositoryImpl) DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&Entry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
