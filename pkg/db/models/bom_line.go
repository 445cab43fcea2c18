package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMLine is a single component requirement within a BOM revision.
// QuantityPer is the amount of the component needed per unit of the parent.
type BOMLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BOMID           uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index"`
	ComponentItemID uuid.UUID       `gorm:"column:component_item_id;type:uuid;not null"`
	QuantityPer     decimal.Decimal `gorm:"column:quantity_per;type:numeric(18,6);not null"`
	UOMCode         string          `gorm:"column:uom_code;not null;default:'EA'"`
	ScrapFactor     decimal.Decimal `gorm:"column:scrap_factor;type:numeric(9,6);not null;default:0"`
	Position        int             `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (BOMLine) TableName() string { return "bom_lines" }
