package bom

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/repo"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
)

// Repository manages BOM headers, their component lines, and the item lookups
// the service needs for referential checks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateHeader(ctx context.Context, header *models.BOMHeader) error
	FindHeaderByID(ctx context.Context, id uuid.UUID) (*models.BOMHeader, error)
	FindActiveByItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.BOMHeader, error)
	LatestRevision(ctx context.Context, orgID, itemID uuid.UUID) (int, error)
	SupersedeActive(ctx context.Context, orgID, itemID uuid.UUID) error
	CreateLine(ctx context.Context, line *models.BOMLine) error
	ListLines(ctx context.Context, bomID uuid.UUID) ([]models.BOMLine, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a BOM repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateHeader(ctx context.Context, header *models.BOMHeader) error {
	return r.DB(ctx).Create(header).Error
}

func (r *repository) FindHeaderByID(ctx context.Context, id uuid.UUID) (*models.BOMHeader, error) {
	var header models.BOMHeader
	err := r.DB(ctx).Where("id = ?", id).First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &header, nil
}

func (r *repository) FindActiveByItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.BOMHeader, error) {
	var header models.BOMHeader
	err := r.DB(ctx).
		Where("org_id = ? AND item_id = ? AND status = ?", orgID, itemID, enums.BOMStatusActive).
		First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &header, nil
}

func (r *repository) LatestRevision(ctx context.Context, orgID, itemID uuid.UUID) (int, error) {
	var revision *int
	err := r.DB(ctx).
		Model(&models.BOMHeader{}).
		Where("org_id = ? AND item_id = ?", orgID, itemID).
		Select("MAX(revision)").
		Scan(&revision).Error
	if err != nil {
		return 0, err
	}
	if revision == nil {
		return 0, nil
	}
	return *revision, nil
}

func (r *repository) SupersedeActive(ctx context.Context, orgID, itemID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.BOMHeader{}).
		Where("org_id = ? AND item_id = ? AND status = ?", orgID, itemID, enums.BOMStatusActive).
		Update("status", enums.BOMStatusSuperseded).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.BOMLine) error {
	return r.DB(ctx).Create(line).Error
}

func (r *repository) ListLines(ctx context.Context, bomID uuid.UUID) ([]models.BOMLine, error) {
	var lines []models.BOMLine
	err := r.DB(ctx).
		Where("bom_id = ?", bomID).
		Order("position ASC, created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.DB(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
