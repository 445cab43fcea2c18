package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/pkg/enums"
)

// WorkOrder is a commitment to build QuantityOrdered units of an item.
type WorkOrder struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrgID             uuid.UUID             `gorm:"column:org_id;type:uuid;not null;index"`
	WorkOrderNumber   string                `gorm:"column:work_order_number;not null;uniqueIndex:idx_work_orders_number"`
	ItemID            uuid.UUID             `gorm:"column:item_id;type:uuid;not null;index"`
	LocationID        uuid.UUID             `gorm:"column:location_id;type:uuid;not null"`
	Status            enums.WorkOrderStatus `gorm:"column:status;type:work_order_status_enum;not null;default:'pending_materials'"`
	QuantityOrdered   decimal.Decimal       `gorm:"column:quantity_ordered;type:numeric(18,6);not null"`
	QuantityCompleted decimal.Decimal       `gorm:"column:quantity_completed;type:numeric(18,6);not null;default:0"`
	HoldReason        *string               `gorm:"column:hold_reason"`
	ScheduledStart    *time.Time            `gorm:"column:scheduled_start_date"`
	ScheduledEnd      *time.Time            `gorm:"column:scheduled_end_date"`
	ActualStart       *time.Time            `gorm:"column:actual_start_date"`
	ActualEnd         *time.Time            `gorm:"column:actual_end_date"`
	Notes             *string               `gorm:"column:notes"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (WorkOrder) TableName() string { return "work_orders" }

// QuantityRemaining is the quantity still owed against the order.
func (w WorkOrder) QuantityRemaining() decimal.Decimal {
	return w.QuantityOrdered.Sub(w.QuantityCompleted)
}
