package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

// casRetries bounds how often a movement re-reads after losing a version race.
const casRetries = 3

// MovementInput describes a single quantity mutation against one balance.
type MovementInput struct {
	ItemID        uuid.UUID
	LocationID    uuid.UUID
	Quantity      decimal.Decimal
	Type          enums.InventoryTransactionType
	ReferenceType *string
	ReferenceID   *uuid.UUID
	Notes         *string
}

// Service exposes the quantity ledger. Movements run against the caller's
// transaction so multi-component flows stay atomic.
type Service interface {
	IncreaseOnHand(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error)
	DecreaseOnHand(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error)
	IncreaseAllocated(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error)
	DecreaseAllocated(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error)
	GetBalance(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryBalance, error)
	BalanceWithin(ctx context.Context, tx *gorm.DB, itemID, locationID uuid.UUID) (*models.InventoryBalance, error)
	ListBalances(ctx context.Context, filter BalanceFilter) ([]models.InventoryBalance, error)
	ListTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) IncreaseOnHand(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error) {
	return s.applyMovement(ctx, tx, input, true, true, func(balance *models.InventoryBalance, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
		return balance.OnHand.Add(qty), balance.Allocated, nil
	})
}

func (s *service) DecreaseOnHand(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error) {
	return s.applyMovement(ctx, tx, input, false, false, func(balance *models.InventoryBalance, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
		newOnHand := balance.OnHand.Sub(qty)
		if newOnHand.LessThan(balance.Allocated) {
			return decimal.Decimal{}, decimal.Decimal{}, insufficientStock(input.ItemID, qty, balance.Available())
		}
		return newOnHand, balance.Allocated, nil
	})
}

func (s *service) IncreaseAllocated(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error) {
	return s.applyMovement(ctx, tx, input, false, true, func(balance *models.InventoryBalance, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
		newAllocated := balance.Allocated.Add(qty)
		if newAllocated.GreaterThan(balance.OnHand) {
			return decimal.Decimal{}, decimal.Decimal{}, insufficientStock(input.ItemID, qty, balance.Available())
		}
		return balance.OnHand, newAllocated, nil
	})
}

func (s *service) DecreaseAllocated(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryBalance, error) {
	return s.applyMovement(ctx, tx, input, false, true, func(balance *models.InventoryBalance, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
		newAllocated := balance.Allocated.Sub(qty)
		if newAllocated.IsNegative() {
			return decimal.Decimal{}, decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeStateConflict, "allocation cannot drop below zero")
		}
		return balance.OnHand, newAllocated, nil
	})
}

type applyFunc func(balance *models.InventoryBalance, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)

// applyMovement runs the read-validate-CAS loop shared by all four movements.
// positiveDelta controls the sign recorded in the audit trail.
func (s *service) applyMovement(ctx context.Context, tx *gorm.DB, input MovementInput, createMissing, positiveDelta bool, apply applyFunc) (*models.InventoryBalance, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	if input.Quantity.IsZero() {
		balance, err := repo.FindBalance(ctx, input.ItemID, input.LocationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance")
		}
		if balance == nil {
			balance = emptyBalance(input.ItemID, input.LocationID)
		}
		return balance, nil
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		balance, err := repo.FindBalance(ctx, input.ItemID, input.LocationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance")
		}
		if balance == nil {
			if !createMissing {
				balance = emptyBalance(input.ItemID, input.LocationID)
				// validation runs against a zero balance; any decrease fails below
				if _, _, err := apply(balance, input.Quantity); err != nil {
					return nil, err
				}
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory balance not found")
			}
			balance = emptyBalance(input.ItemID, input.LocationID)
			if err := repo.CreateBalance(ctx, balance); err != nil {
				// lost a create race; re-read and retry
				continue
			}
		}

		newOnHand, newAllocated, err := apply(balance, input.Quantity)
		if err != nil {
			return nil, err
		}

		ok, err := repo.UpdateBalanceCAS(ctx, input.ItemID, input.LocationID, balance.Version, newOnHand, newAllocated)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !ok {
			continue
		}

		delta := input.Quantity
		if !positiveDelta {
			delta = delta.Neg()
		}
		entry := &models.InventoryTransaction{
			ID:              uuid.New(),
			ItemID:          input.ItemID,
			LocationID:      input.LocationID,
			TransactionType: input.Type,
			Quantity:        delta,
			ReferenceType:   input.ReferenceType,
			ReferenceID:     input.ReferenceID,
			Notes:           input.Notes,
		}
		if err := repo.AppendTransaction(ctx, entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory transaction")
		}

		balance.OnHand = newOnHand
		balance.Allocated = newAllocated
		balance.Version++
		return balance, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeDependency, "balance version conflict, retry the operation")
}

func (s *service) GetBalance(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryBalance, error) {
	if itemID == uuid.Nil || locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id and location id are required")
	}
	balance, err := s.repo.FindBalance(ctx, itemID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance")
	}
	if balance == nil {
		return emptyBalance(itemID, locationID), nil
	}
	return balance, nil
}

// BalanceWithin reads a balance inside the caller's transaction. A missing
// row comes back as a zero balance, same as GetBalance.
func (s *service) BalanceWithin(ctx context.Context, tx *gorm.DB, itemID, locationID uuid.UUID) (*models.InventoryBalance, error) {
	if itemID == uuid.Nil || locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id and location id are required")
	}
	balance, err := s.repo.WithTx(tx).FindBalance(ctx, itemID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance")
	}
	if balance == nil {
		return emptyBalance(itemID, locationID), nil
	}
	return balance, nil
}

func (s *service) ListBalances(ctx context.Context, filter BalanceFilter) ([]models.InventoryBalance, error) {
	balances, err := s.repo.ListBalances(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list balances")
	}
	return balances, nil
}

func (s *service) ListTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	entries, err := s.repo.ListTransactions(ctx, itemID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions")
	}
	return entries, nil
}

func validateMovement(input MovementInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if input.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.Quantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	return nil
}

func emptyBalance(itemID, locationID uuid.UUID) *models.InventoryBalance {
	return &models.InventoryBalance{
		ItemID:     itemID,
		LocationID: locationID,
		OnHand:     decimal.Zero,
		Allocated:  decimal.Zero,
	}
}

func insufficientStock(itemID uuid.UUID, requested, available decimal.Decimal) error {
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	return err.WithDetails(map[string]any{
		"item_id":   itemID.String(),
		"requested": requested.String(),
		"available": available.String(),
	})
}
