package reservation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/repo"
	"github.com/calderaworks/mes-backend/pkg/db/models"
)

// Repository persists component reservation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.ComponentReservation) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.ComponentReservation, error)
	DeleteByWorkOrder(ctx context.Context, workOrderID uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, reservation *models.ComponentReservation) error {
	return r.DB(ctx).Create(reservation).Error
}

func (r *repository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]models.ComponentReservation, error) {
	var rows []models.ComponentReservation
	err := r.DB(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("item_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) DeleteByWorkOrder(ctx context.Context, workOrderID uuid.UUID) error {
	return r.DB(ctx).
		Where("work_order_id = ?", workOrderID).
		Delete(&models.ComponentReservation{}).Error
}
