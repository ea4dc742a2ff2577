package orders

import "github.com/angelmondragon/kds-backend/pkg/enums"

// allReady reports whether every station has finished. An empty map counts as finished.
func allReady(stationStatuses map[string]enums.OrderStatus) bool {
	for _, status := range stationStatuses {
		if status != enums.OrderStatusReady {
			return false
		}
	}
	return true
}

// Aggregate derives the overall order status from the per-station map.
//
// All ready yields ready, any preparing yields preparing and all pending yields pending.
// A mix of pending and ready keeps current so a partially finished order never drops back
// to pending. An empty map yields ready.
func Aggregate(stationStatuses map[string]enums.OrderStatus, current enums.OrderStatus) enums.OrderStatus {
	if len(stationStatuses) == 0 {
		return enums.OrderStatusReady
	}
	allReady, allPending := true, true
	for _, status := range stationStatuses {
		switch status {
		case enums.OrderStatusPreparing:
			return enums.OrderStatusPreparing
		case enums.OrderStatusReady:
			allPending = false
		case enums.OrderStatusPending:
			allReady = false
		default:
			allReady, allPending = false, false
		}
	}
	switch {
	case allReady:
		return enums.OrderStatusReady
	case allPending:
		return enums.OrderStatusPending
	case current.IsValid():
		return current
	default:
		return enums.OrderStatusPending
	}
}
