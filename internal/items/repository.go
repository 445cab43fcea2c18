package items

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/repo"
	"github.com/calderaworks/mes-backend/pkg/db/models"
)

// Repository manages persistence for the item master.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindBySKU(ctx context.Context, orgID uuid.UUID, sku string) (*models.Item, error)
	List(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Item, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an item repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.DB(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBySKU(ctx context.Context, orgID uuid.UUID, sku string) (*models.Item, error) {
	var item models.Item
	err := r.DB(ctx).Where("org_id = ? AND sku = ?", orgID, sku).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []models.Item
	err := r.DB(ctx).
		Where("org_id = ?", orgID).
		Order("sku ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
