package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateWorkOrder        OutboxAggregateType = "work_order"
	AggregateBOM              OutboxAggregateType = "bom"
	AggregateInventoryBalance OutboxAggregateType = "inventory_balance"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWorkOrder,
	AggregateBOM,
	AggregateInventoryBalance,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventWorkOrderCreated           OutboxEventType = "work_order_created"
	EventWorkOrderStarted           OutboxEventType = "work_order_started"
	EventWorkOrderCompleted         OutboxEventType = "work_order_completed"
	EventWorkOrderOnHold            OutboxEventType = "work_order_on_hold"
	EventWorkOrderResumed           OutboxEventType = "work_order_resumed"
	EventWorkOrderCancelled         OutboxEventType = "work_order_cancelled"
	EventWorkOrderMaterialsReserved OutboxEventType = "work_order_materials_reserved"
	EventWorkOrderMaterialsReleased OutboxEventType = "work_order_materials_released"
	EventComponentShortageDetected  OutboxEventType = "component_shortage_detected"
	EventStockReceived              OutboxEventType = "stock_received"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWorkOrderCreated,
	EventWorkOrderStarted,
	EventWorkOrderCompleted,
	EventWorkOrderOnHold,
	EventWorkOrderResumed,
	EventWorkOrderCancelled,
	EventWorkOrderMaterialsReserved,
	EventWorkOrderMaterialsReleased,
	EventComponentShortageDetected,
	EventStockReceived,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
