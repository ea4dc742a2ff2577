package enums

// BoardEventType names the change notifications fanned out to screens and the bus.
type BoardEventType string

const (
	BoardEventOrderUpserted      BoardEventType = "order.upserted"
	BoardEventOrderStatusChanged BoardEventType = "order.status_changed"
	BoardEventOrderBumped        BoardEventType = "order.bumped"
	BoardEventOrderRecalled      BoardEventType = "order.recalled"
	BoardEventOrderRefired       BoardEventType = "order.refired"
	BoardEventOrderSnoozed       BoardEventType = "order.snoozed"
	BoardEventOrderWoken         BoardEventType = "order.woken"
	BoardEventOrderModified      BoardEventType = "order.modified"
	BoardEventModificationClear  BoardEventType = "order.modification_cleared"
	BoardEventBatchDismissed     BoardEventType = "batch.dismissed"
	BoardEventMessageSent        BoardEventType = "message.sent"
	BoardEventMessageRead        BoardEventType = "message.read"
)

var validBoardEventTypes = []BoardEventType{
	BoardEventOrderUpserted,
	BoardEventOrderStatusChanged,
	BoardEventOrderBumped,
	BoardEventOrderRecalled,
	BoardEventOrderRefired,
	BoardEventOrderSnoozed,
	BoardEventOrderWoken,
	BoardEventOrderModified,
	BoardEventModificationClear,
	BoardEventBatchDismissed,
	BoardEventMessageSent,
	BoardEventMessageRead,
}

func (t BoardEventType) String() string {
	return string(t)
}

func (t BoardEventType) IsValid() bool {
	for _, candidate := range validBoardEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
