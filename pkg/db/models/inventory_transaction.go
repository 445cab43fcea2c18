package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/pkg/enums"
)

// InventoryTransaction is the append-only audit trail behind every balance mutation.
type InventoryTransaction struct {
	ID              uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	ItemID          uuid.UUID                      `gorm:"column:item_id;type:uuid;not null;index"`
	LocationID      uuid.UUID                      `gorm:"column:location_id;type:uuid;not null"`
	TransactionType enums.InventoryTransactionType `gorm:"column:transaction_type;type:inventory_transaction_type_enum;not null"`
	Quantity        decimal.Decimal                `gorm:"column:quantity;type:numeric(18,6);not null"`
	ReferenceType   *string                        `gorm:"column:reference_type"`
	ReferenceID     *uuid.UUID                     `gorm:"column:reference_id;type:uuid"`
	Notes           *string                        `gorm:"column:notes"`
	CreatedAt       time.Time                      `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryTransaction) TableName() string { return "inventory_transactions" }
