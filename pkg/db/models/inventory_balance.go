package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryBalance tracks on-hand and allocated quantity per item and location.
// Writers bump Version on every mutation; stale updates touch zero rows.
type InventoryBalance struct {
	ItemID     uuid.UUID       `gorm:"column:item_id;type:uuid;primaryKey"`
	LocationID uuid.UUID       `gorm:"column:location_id;type:uuid;primaryKey"`
	OnHand     decimal.Decimal `gorm:"column:on_hand;type:numeric(18,6);not null;default:0"`
	Allocated  decimal.Decimal `gorm:"column:allocated;type:numeric(18,6);not null;default:0"`
	Version    int64           `gorm:"column:version;not null;default:0"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryBalance) TableName() string { return "inventory_balances" }

// Available is the quantity still free to promise.
func (b InventoryBalance) Available() decimal.Decimal {
	return b.OnHand.Sub(b.Allocated)
}
