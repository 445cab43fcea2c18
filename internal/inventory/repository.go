package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/repo"
	"github.com/calderaworks/mes-backend/pkg/db/models"
)

// Repository manages persistence for inventory balances and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalance(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryBalance, error)
	CreateBalance(ctx context.Context, balance *models.InventoryBalance) error
	UpdateBalanceCAS(ctx context.Context, itemID, locationID uuid.UUID, version int64, onHand, allocated decimal.Decimal) (bool, error)
	AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) error
	ListBalances(ctx context.Context, filter BalanceFilter) ([]models.InventoryBalance, error)
	ListTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error)
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Limit      int
}

type repository struct {
	repo.Base
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindBalance(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryBalance, error) {
	var balance models.InventoryBalance
	err := r.DB(ctx).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) CreateBalance(ctx context.Context, balance *models.InventoryBalance) error {
	return r.DB(ctx).Create(balance).Error
}

// UpdateBalanceCAS applies new quantities only when the stored version still matches.
// Returns false when another writer got there first.
func (r *repository) UpdateBalanceCAS(ctx context.Context, itemID, locationID uuid.UUID, version int64, onHand, allocated decimal.Decimal) (bool, error) {
	result := r.DB(ctx).
		Model(&models.InventoryBalance{}).
		Where("item_id = ? AND location_id = ? AND version = ?", itemID, locationID, version).
		Updates(map[string]any{
			"on_hand":   onHand,
			"allocated": allocated,
			"version":   version + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListBalances(ctx context.Context, filter BalanceFilter) ([]models.InventoryBalance, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := r.DB(ctx).Model(&models.InventoryBalance{})
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	var balances []models.InventoryBalance
	err := query.Order("item_id ASC").Limit(limit).Find(&balances).Error
	return balances, err
}

func (r *repository) ListTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.InventoryTransaction
	err := r.DB(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
