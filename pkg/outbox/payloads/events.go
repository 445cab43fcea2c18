package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/pkg/enums"
)

// WorkOrderCreatedEvent signals a new work order entering the schedule.
type WorkOrderCreatedEvent struct {
	WorkOrderID     uuid.UUID             `json:"work_order_id"`
	WorkOrderNumber string                `json:"work_order_number"`
	ItemID          uuid.UUID             `json:"item_id"`
	LocationID      uuid.UUID             `json:"location_id"`
	QuantityOrdered decimal.Decimal       `json:"quantity_ordered"`
	Status          enums.WorkOrderStatus `json:"status"`
}

// WorkOrderStartedEvent is emitted when production begins.
type WorkOrderStartedEvent struct {
	WorkOrderID uuid.UUID `json:"work_order_id"`
	ItemID      uuid.UUID `json:"item_id"`
	StartedAt   time.Time `json:"started_at"`
}

// WorkOrderCompletedEvent surfaces the completion quantities.
type WorkOrderCompletedEvent struct {
	WorkOrderID       uuid.UUID             `json:"work_order_id"`
	ItemID            uuid.UUID             `json:"item_id"`
	QuantityCompleted decimal.Decimal       `json:"quantity_completed"`
	QuantityOrdered   decimal.Decimal       `json:"quantity_ordered"`
	Status            enums.WorkOrderStatus `json:"status"`
	CompletedAt       time.Time             `json:"completed_at"`
}

// WorkOrderOnHoldEvent is emitted when an order is paused.
type WorkOrderOnHoldEvent struct {
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Reason      string    `json:"reason,omitempty"`
	HeldAt      time.Time `json:"held_at"`
}

// WorkOrderResumedEvent is emitted when a held order resumes.
type WorkOrderResumedEvent struct {
	WorkOrderID uuid.UUID             `json:"work_order_id"`
	Status      enums.WorkOrderStatus `json:"status"`
	ResumedAt   time.Time             `json:"resumed_at"`
}

// WorkOrderCancelledEvent is emitted when an unstarted order is cancelled.
type WorkOrderCancelledEvent struct {
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// ReservedComponent is one line of a successful reservation.
type ReservedComponent struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MaterialsReservedEvent reports the components pinned to a work order.
type MaterialsReservedEvent struct {
	WorkOrderID uuid.UUID           `json:"work_order_id"`
	Components  []ReservedComponent `json:"components"`
}

// MaterialsReleasedEvent reports reservations returned to the free pool.
type MaterialsReleasedEvent struct {
	WorkOrderID uuid.UUID `json:"work_order_id"`
	ReleasedAt  time.Time `json:"released_at"`
}

// ComponentShortageEvent is emitted per component that blocked a reservation.
type ComponentShortageEvent struct {
	WorkOrderID uuid.UUID       `json:"work_order_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
	Shortage    decimal.Decimal `json:"shortage"`
}

// StockReceivedEvent is emitted when a receipt lands in a location.
type StockReceivedEvent struct {
	ItemID     uuid.UUID       `json:"item_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	ReceivedAt time.Time       `json:"received_at"`
}
