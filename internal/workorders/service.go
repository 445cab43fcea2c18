package workorders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/bom"
	"github.com/calderaworks/mes-backend/internal/reservation"
	"github.com/calderaworks/mes-backend/pkg/db"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/metrics"
	"github.com/calderaworks/mes-backend/pkg/outbox"
	"github.com/calderaworks/mes-backend/pkg/outbox/payloads"
)

// CreateInput describes a new work order.
type CreateInput struct {
	OrgID           uuid.UUID
	WorkOrderNumber string
	ItemID          uuid.UUID
	LocationID      uuid.UUID
	Quantity        decimal.Decimal
	ScheduledStart  *time.Time
	ScheduledEnd    *time.Time
	Notes           *string
	Actor           *outbox.ActorRef
}

// CreateOutcome carries the created order plus the shortage report when the
// reservation could not be covered.
type CreateOutcome struct {
	WorkOrder *models.WorkOrder
	Shortages []reservation.ComponentShortage
}

// Service drives the work order lifecycle. Every transition runs in one
// database transaction together with its ledger effects and outbox events.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateOutcome, error)
	Get(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]models.WorkOrder, error)
	Start(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.WorkOrder, error)
	Complete(ctx context.Context, id uuid.UUID, quantity decimal.Decimal, actor *outbox.ActorRef) (*models.WorkOrder, error)
	Hold(ctx context.Context, id uuid.UUID, reason string, actor *outbox.ActorRef) (*models.WorkOrder, error)
	Resume(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.WorkOrder, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, actor *outbox.ActorRef) (*models.WorkOrder, error)
}

type service struct {
	client       *db.Client
	repo         Repository
	boms         bom.Service
	reservations reservation.Service
	events       *outbox.Service
	metrics      *metrics.ManufacturingMetrics
}

// NewService wires the work order state machine.
func NewService(client *db.Client, repo Repository, boms bom.Service, reservations reservation.Service, events *outbox.Service, mfg *metrics.ManufacturingMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("work order repository required")
	}
	if boms == nil {
		return nil, fmt.Errorf("bom service required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		client:       client,
		repo:         repo,
		boms:         boms,
		reservations: reservations,
		events:       events,
		metrics:      mfg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateOutcome, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByNumber(ctx, input.OrgID, input.WorkOrderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read work order by number")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("work order number %q already exists", input.WorkOrderNumber))
	}

	header, err := s.boms.ActiveForItem(ctx, input.OrgID, input.ItemID)
	if err != nil {
		return nil, err
	}

	order := &models.WorkOrder{
		ID:              uuid.New(),
		OrgID:           input.OrgID,
		WorkOrderNumber: strings.TrimSpace(input.WorkOrderNumber),
		ItemID:          input.ItemID,
		LocationID:      input.LocationID,
		Status:          enums.WorkOrderStatusPendingMaterials,
		QuantityOrdered: input.Quantity,
		ScheduledStart:  input.ScheduledStart,
		ScheduledEnd:    input.ScheduledEnd,
		Notes:           input.Notes,
	}

	outcome := &CreateOutcome{WorkOrder: order}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "idx_work_orders_number") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("work order number %q already exists", input.WorkOrderNumber))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create work order")
		}

		reserved, err := s.reservations.Reserve(ctx, tx, reservation.ReserveInput{
			BOMID:       header.ID,
			WorkOrderID: order.ID,
			LocationID:  input.LocationID,
			Quantity:    input.Quantity,
		})
		if err != nil {
			return err
		}

		if reserved.Reserved {
			order.Status = enums.WorkOrderStatusReady
			if err := repo.Update(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order status")
			}

			components := make([]payloads.ReservedComponent, 0, len(reserved.Components))
			for _, row := range reserved.Components {
				components = append(components, payloads.ReservedComponent{
					ItemID:   row.ItemID,
					Quantity: row.Quantity,
				})
			}
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventWorkOrderMaterialsReserved,
				AggregateType: enums.AggregateWorkOrder,
				AggregateID:   order.ID,
				Actor:         input.Actor,
				Data:          payloads.MaterialsReservedEvent{WorkOrderID: order.ID, Components: components},
			}); err != nil {
				return err
			}
		} else {
			outcome.Shortages = reserved.Shortages
			for _, shortage := range reserved.Shortages {
				if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventComponentShortageDetected,
					AggregateType: enums.AggregateWorkOrder,
					AggregateID:   order.ID,
					Actor:         input.Actor,
					Data: payloads.ComponentShortageEvent{
						WorkOrderID: order.ID,
						ItemID:      shortage.ItemID,
						Required:    shortage.Required,
						Available:   shortage.Available,
						Shortage:    shortage.Shortage,
					},
				}); err != nil {
					return err
				}
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderCreated,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data: payloads.WorkOrderCreatedEvent{
				WorkOrderID:     order.ID,
				WorkOrderNumber: order.WorkOrderNumber,
				ItemID:          order.ItemID,
				LocationID:      order.LocationID,
				QuantityOrdered: order.QuantityOrdered,
				Status:          order.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if outcome.WorkOrder.Status == enums.WorkOrderStatusReady {
		s.metrics.IncReservation("reserved")
	} else {
		s.metrics.IncReservation("shortage")
		for _, shortage := range outcome.Shortages {
			s.metrics.IncShortage(shortage.ItemID.String())
		}
	}
	s.metrics.IncTransition(outcome.WorkOrder.Status.String())
	return outcome, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]models.WorkOrder, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	orders, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list work orders")
	}
	return orders, nil
}

func (s *service) Start(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.WorkOrder, error) {
	var order *models.WorkOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.WorkOrderStatusReady {
			return transitionError(loaded.Status, enums.WorkOrderStatusReady)
		}

		if err := s.reservations.Consume(ctx, tx, loaded.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		loaded.Status = enums.WorkOrderStatusInProgress
		loaded.ActualStart = &now
		if err := repo.Update(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order")
		}
		order = loaded

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderStarted,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   loaded.ID,
			Actor:         actor,
			Data: payloads.WorkOrderStartedEvent{
				WorkOrderID: loaded.ID,
				ItemID:      loaded.ItemID,
				StartedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(order.Status.String())
	return order, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID, quantity decimal.Decimal, actor *outbox.ActorRef) (*models.WorkOrder, error) {
	if !quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "completed quantity must be positive")
	}

	var order *models.WorkOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.WorkOrderStatusInProgress && loaded.Status != enums.WorkOrderStatusPartiallyCompleted {
			return transitionError(loaded.Status, enums.WorkOrderStatusInProgress)
		}
		if quantity.GreaterThan(loaded.QuantityRemaining()) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("completed quantity %s exceeds remaining quantity %s", quantity, loaded.QuantityRemaining())).
				WithDetails(map[string]any{
					"quantity_ordered":   loaded.QuantityOrdered.String(),
					"quantity_completed": loaded.QuantityCompleted.String(),
					"requested":          quantity.String(),
				})
		}

		if err := s.reservations.AddFinishedGoods(ctx, tx, loaded.ItemID, loaded.LocationID, loaded.ID, quantity); err != nil {
			return err
		}

		now := time.Now().UTC()
		loaded.QuantityCompleted = loaded.QuantityCompleted.Add(quantity)
		if loaded.QuantityCompleted.GreaterThanOrEqual(loaded.QuantityOrdered) {
			loaded.Status = enums.WorkOrderStatusCompleted
			loaded.ActualEnd = &now
		} else {
			loaded.Status = enums.WorkOrderStatusPartiallyCompleted
		}
		if err := repo.Update(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order")
		}
		order = loaded

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderCompleted,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   loaded.ID,
			Actor:         actor,
			Data: payloads.WorkOrderCompletedEvent{
				WorkOrderID:       loaded.ID,
				ItemID:            loaded.ItemID,
				QuantityCompleted: loaded.QuantityCompleted,
				QuantityOrdered:   loaded.QuantityOrdered,
				Status:            loaded.Status,
				CompletedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(order.Status.String())
	if order.Status == enums.WorkOrderStatusCompleted && order.ActualStart != nil && order.ActualEnd != nil {
		s.metrics.ObserveCycleTime(order.ItemID.String(), order.ActualEnd.Sub(*order.ActualStart))
	}
	return order, nil
}

func (s *service) Hold(ctx context.Context, id uuid.UUID, reason string, actor *outbox.ActorRef) (*models.WorkOrder, error) {
	var order *models.WorkOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.WorkOrderStatusReady && loaded.Status != enums.WorkOrderStatusInProgress {
			return transitionError(loaded.Status, enums.WorkOrderStatusReady)
		}

		now := time.Now().UTC()
		loaded.Status = enums.WorkOrderStatusOnHold
		if reason != "" {
			loaded.HoldReason = &reason
		}
		if err := repo.Update(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order")
		}
		order = loaded

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderOnHold,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   loaded.ID,
			Actor:         actor,
			Data: payloads.WorkOrderOnHoldEvent{
				WorkOrderID: loaded.ID,
				Reason:      reason,
				HeldAt:      now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(order.Status.String())
	return order, nil
}

func (s *service) Resume(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.WorkOrder, error) {
	var order *models.WorkOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status != enums.WorkOrderStatusOnHold {
			return transitionError(loaded.Status, enums.WorkOrderStatusOnHold)
		}

		// orders that never started go back to ready, started ones pick up
		// where they left off
		if loaded.ActualStart != nil {
			loaded.Status = enums.WorkOrderStatusInProgress
		} else {
			loaded.Status = enums.WorkOrderStatusReady
		}
		loaded.HoldReason = nil
		if err := repo.Update(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order")
		}
		order = loaded

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderResumed,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   loaded.ID,
			Actor:         actor,
			Data: payloads.WorkOrderResumedEvent{
				WorkOrderID: loaded.ID,
				Status:      loaded.Status,
				ResumedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(order.Status.String())
	return order, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor *outbox.ActorRef) (*models.WorkOrder, error) {
	var order *models.WorkOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if loaded.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("work order is %s and admits no further transitions", loaded.Status))
		}
		if loaded.ActualStart != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"cannot cancel a work order after production has started")
		}

		released, err := s.reservations.Release(ctx, tx, loaded.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		loaded.Status = enums.WorkOrderStatusCancelled
		if err := repo.Update(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update work order")
		}
		order = loaded

		if released {
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventWorkOrderMaterialsReleased,
				AggregateType: enums.AggregateWorkOrder,
				AggregateID:   loaded.ID,
				Actor:         actor,
				Data: payloads.MaterialsReleasedEvent{
					WorkOrderID: loaded.ID,
					ReleasedAt:  now,
				},
			}); err != nil {
				return err
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWorkOrderCancelled,
			AggregateType: enums.AggregateWorkOrder,
			AggregateID:   loaded.ID,
			Actor:         actor,
			Data: payloads.WorkOrderCancelledEvent{
				WorkOrderID: loaded.ID,
				Reason:      reason,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(order.Status.String())
	return order, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.WorkOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work order id is required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read work order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "work order not found")
	}
	return order, nil
}

func validateCreate(input CreateInput) error {
	if input.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if strings.TrimSpace(input.WorkOrderNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "work order number is required")
	}
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if input.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ScheduledStart != nil && input.ScheduledEnd != nil && input.ScheduledEnd.Before(*input.ScheduledStart) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled end date cannot precede the start date")
	}
	return nil
}

func transitionError(current, required enums.WorkOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("work order is %s, operation requires %s", current, required))
}
