// Package intake pulls tickets from the point-of-sale feed and maps them into board orders.
package intake

import (
	"context"

	"github.com/angelmondragon/kds-backend/internal/orders"
)

// Source supplies the initial or refreshed order list for a location.
type Source interface {
	FetchOrders(ctx context.Context, locationID string) ([]orders.Order, error)
}

// Empty is a Source with no orders, used when intake is disabled.
type Empty struct{}

func (Empty) FetchOrders(context.Context, string) ([]orders.Order, error) { return nil, nil }
