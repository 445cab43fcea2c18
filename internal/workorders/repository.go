package workorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/repo"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
)

// Repository persists work orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.WorkOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*models.WorkOrder, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]models.WorkOrder, error)
	Update(ctx context.Context, order *models.WorkOrder) error
}

// ListFilter narrows work order listings.
type ListFilter struct {
	Status *enums.WorkOrderStatus
	ItemID *uuid.UUID
	Limit  int
}

type repository struct {
	repo.Base
}

// NewRepository returns a work order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.WorkOrder) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.DB(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.DB(ctx).
		Where("org_id = ? AND work_order_number = ?", orgID, number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]models.WorkOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := r.DB(ctx).Where("org_id = ?", orgID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	var orders []models.WorkOrder
	err := query.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}

func (r *repository) Update(ctx context.Context, order *models.WorkOrder) error {
	return r.DB(ctx).Save(order).Error
}
