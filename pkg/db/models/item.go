package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderaworks/mes-backend/pkg/enums"
)

// Item is the master record for anything that can be stocked or built.
type Item struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OrgID       uuid.UUID      `gorm:"column:org_id;type:uuid;not null;index"`
	SKU         string         `gorm:"column:sku;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	ItemType    enums.ItemType `gorm:"column:item_type;type:item_type_enum;not null;default:'purchased'"`
	UOMCode     string         `gorm:"column:uom_code;not null;default:'EA'"`
	Active      bool           `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }
