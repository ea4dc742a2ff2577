package journal

import (
	"time"

	"github.com/angelmondragon/kds-backend/pkg/enums"
	"github.com/google/uuid"
)

// Entry is one row of the ticket journal.
type Entry struct {
	ID         uuid.UUID              `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	LocationID string                 `gorm:"column:location_id;not null" json:"locationId"`
	EventType  enums.JournalEventType `gorm:"column:event_type;type:varchar(32);not null" json:"eventType"`
	OrderID    string                 `gorm:"column:order_id;not null" json:"orderId"`
	ItemID     string                 `gorm:"column:item_id;not null" json:"itemId"`
	Status     *enums.OrderStatus     `gorm:"column:status;type:varchar(16)" json:"status,omitempty"`
	Reason     *string                `gorm:"column:reason" json:"reason,omitempty"`
	OccurredAt time.Time              `gorm:"column:occurred_at;not null" json:"occurredAt"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (Entry) TableName() string { return "ticket_journal" }
