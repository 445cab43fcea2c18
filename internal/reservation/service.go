package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/bom"
	"github.com/calderaworks/mes-backend/internal/inventory"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

const workOrderReference = "work_order"

// ReserveInput pins component stock for one work order at one location.
type ReserveInput struct {
	BOMID       uuid.UUID
	WorkOrderID uuid.UUID
	LocationID  uuid.UUID
	Quantity    decimal.Decimal
}

// ComponentShortage reports one component that could not be covered.
type ComponentShortage struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Shortage  decimal.Decimal `json:"shortage"`
}

// Outcome is the result of a reservation attempt. Either every component was
// allocated (Reserved true) or none were and Shortages lists every gap.
type Outcome struct {
	Reserved   bool
	Components []models.ComponentReservation
	Shortages  []ComponentShortage
}

// Service allocates, releases, and consumes component stock for work orders.
// Every method runs against the caller's transaction so work-order flows
// commit or roll back as a unit.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*Outcome, error)
	Release(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) (bool, error)
	Consume(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) error
	AddFinishedGoods(ctx context.Context, tx *gorm.DB, itemID, locationID, workOrderID uuid.UUID, qty decimal.Decimal) error
}

type service struct {
	repo      Repository
	boms      bom.Service
	inventory inventory.Service
}

// NewService wires the reservation manager.
func NewService(repo Repository, boms bom.Service, inv inventory.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if boms == nil {
		return nil, fmt.Errorf("bom service required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{repo: repo, boms: boms, inventory: inv}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*Outcome, error) {
	if input.BOMID == uuid.Nil || input.WorkOrderID == uuid.Nil || input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id, work order id, and location id are required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	header, err := s.boms.FindHeader(ctx, input.BOMID)
	if err != nil {
		return nil, err
	}

	required, err := s.leafRequirements(ctx, header, input.Quantity)
	if err != nil {
		return nil, err
	}

	// deterministic per-item order keeps concurrent reservations from
	// deadlocking on each other's balance rows
	itemIDs := make([]uuid.UUID, 0, len(required))
	for itemID := range required {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i].String() < itemIDs[j].String() })

	// check every component before touching anything so the caller gets the
	// full shortage picture in one shot
	var shortages []ComponentShortage
	for _, itemID := range itemIDs {
		balance, err := s.inventory.BalanceWithin(ctx, tx, itemID, input.LocationID)
		if err != nil {
			return nil, err
		}
		available := balance.Available()
		if available.LessThan(required[itemID]) {
			shortages = append(shortages, ComponentShortage{
				ItemID:    itemID,
				Required:  required[itemID],
				Available: available,
				Shortage:  required[itemID].Sub(available),
			})
		}
	}
	if len(shortages) > 0 {
		return &Outcome{Reserved: false, Shortages: shortages}, nil
	}

	repo := s.repo.WithTx(tx)
	outcome := &Outcome{Reserved: true}
	for _, itemID := range itemIDs {
		refID := input.WorkOrderID
		refType := workOrderReference
		if _, err := s.inventory.IncreaseAllocated(ctx, tx, inventory.MovementInput{
			ItemID:        itemID,
			LocationID:    input.LocationID,
			Quantity:      required[itemID],
			Type:          enums.TransactionReservation,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientStock {
				return nil, err
			}
			// a concurrent writer drained the balance between the pre-check
			// and the allocation; unwind what this attempt already pinned and
			// report the gap the same way the pre-check does
			return s.shortageOutcome(ctx, tx, input, outcome.Components, itemID, required[itemID])
		}

		row := models.ComponentReservation{
			ID:          uuid.New(),
			WorkOrderID: input.WorkOrderID,
			ItemID:      itemID,
			LocationID:  input.LocationID,
			Quantity:    required[itemID],
		}
		if err := repo.Create(ctx, &row); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create component reservation")
		}
		outcome.Components = append(outcome.Components, row)
	}
	return outcome, nil
}

// shortageOutcome converts an allocation failure partway through Reserve into
// the shortage report the pre-check would have produced. Components pinned
// earlier in the loop are released first so the caller can commit the shortage
// outcome without holding any stock.
func (s *service) shortageOutcome(ctx context.Context, tx *gorm.DB, input ReserveInput, pinned []models.ComponentReservation, itemID uuid.UUID, requiredQty decimal.Decimal) (*Outcome, error) {
	for _, row := range pinned {
		refID := input.WorkOrderID
		refType := workOrderReference
		if _, err := s.inventory.DecreaseAllocated(ctx, tx, inventory.MovementInput{
			ItemID:        row.ItemID,
			LocationID:    row.LocationID,
			Quantity:      row.Quantity,
			Type:          enums.TransactionReleaseReservation,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			return nil, err
		}
	}
	if len(pinned) > 0 {
		if err := s.repo.WithTx(tx).DeleteByWorkOrder(ctx, input.WorkOrderID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete component reservations")
		}
	}

	balance, err := s.inventory.BalanceWithin(ctx, tx, itemID, input.LocationID)
	if err != nil {
		return nil, err
	}
	available := balance.Available()
	return &Outcome{Reserved: false, Shortages: []ComponentShortage{{
		ItemID:    itemID,
		Required:  requiredQty,
		Available: available,
		Shortage:  requiredQty.Sub(available),
	}}}, nil
}

// leafRequirements explodes the BOM and aggregates purchased-level demand per
// component. Sub-assembly rows are skipped; their own components carry the
// demand.
func (s *service) leafRequirements(ctx context.Context, header *models.BOMHeader, qty decimal.Decimal) (map[uuid.UUID]decimal.Decimal, error) {
	lines, err := s.boms.Explode(ctx, bom.ExplodeInput{
		OrgID:    header.OrgID,
		ItemID:   header.ItemID,
		Quantity: qty,
	})
	if err != nil {
		return nil, err
	}

	required := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, line := range lines {
		if line.HasBOM {
			continue
		}
		required[line.ItemID] = required[line.ItemID].Add(line.Quantity)
	}
	if len(required) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bom has no components to reserve")
	}
	return required, nil
}

// Release returns allocated stock and removes the reservation rows. Calling
// it for a work order with no reservations is a no-op; the bool reports
// whether anything was actually released.
func (s *service) Release(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) (bool, error) {
	if workOrderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "work order id is required")
	}

	repo := s.repo.WithTx(tx)
	rows, err := repo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list component reservations")
	}
	if len(rows) == 0 {
		return false, nil
	}

	for _, row := range rows {
		refID := workOrderID
		refType := workOrderReference
		if _, err := s.inventory.DecreaseAllocated(ctx, tx, inventory.MovementInput{
			ItemID:        row.ItemID,
			LocationID:    row.LocationID,
			Quantity:      row.Quantity,
			Type:          enums.TransactionReleaseReservation,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			return false, err
		}
	}
	if err := repo.DeleteByWorkOrder(ctx, workOrderID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete component reservations")
	}
	return true, nil
}

// Consume turns reservations into actual stock draw-down: allocation is
// unwound and on-hand drops by the reserved quantity per component.
func (s *service) Consume(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) error {
	if workOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "work order id is required")
	}

	repo := s.repo.WithTx(tx)
	rows, err := repo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list component reservations")
	}

	for _, row := range rows {
		refID := workOrderID
		refType := workOrderReference
		if _, err := s.inventory.DecreaseAllocated(ctx, tx, inventory.MovementInput{
			ItemID:        row.ItemID,
			LocationID:    row.LocationID,
			Quantity:      row.Quantity,
			Type:          enums.TransactionReleaseReservation,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			return err
		}
		if _, err := s.inventory.DecreaseOnHand(ctx, tx, inventory.MovementInput{
			ItemID:        row.ItemID,
			LocationID:    row.LocationID,
			Quantity:      row.Quantity,
			Type:          enums.TransactionMfgConsumption,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		if err := repo.DeleteByWorkOrder(ctx, workOrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete component reservations")
		}
	}
	return nil
}

// AddFinishedGoods books produced units into stock at the work order's
// location, creating the balance row on first production.
func (s *service) AddFinishedGoods(ctx context.Context, tx *gorm.DB, itemID, locationID, workOrderID uuid.UUID, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	refID := workOrderID
	refType := workOrderReference
	_, err := s.inventory.IncreaseOnHand(ctx, tx, inventory.MovementInput{
		ItemID:        itemID,
		LocationID:    locationID,
		Quantity:      qty,
		Type:          enums.TransactionMfgProduction,
		ReferenceType: &refType,
		ReferenceID:   &refID,
	})
	return err
}
