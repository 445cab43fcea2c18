package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComponentReservation pins allocated stock to the work order that claimed it.
type ComponentReservation struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WorkOrderID uuid.UUID       `gorm:"column:work_order_id;type:uuid;not null;index"`
	ItemID      uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	LocationID  uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(18,6);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ComponentReservation) TableName() string { return "component_reservations" }
