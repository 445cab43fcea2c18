package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderaworks/mes-backend/pkg/enums"
)

// BOMHeader is one revision of a bill of materials for a parent item.
// At most one revision per (org, item) holds active status.
type BOMHeader struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrgID     uuid.UUID       `gorm:"column:org_id;type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	Revision  int             `gorm:"column:revision;not null;default:1"`
	Status    enums.BOMStatus `gorm:"column:status;type:bom_status_enum;not null;default:'active'"`
	Notes     *string         `gorm:"column:notes"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (BOMHeader) TableName() string { return "bom_headers" }
