package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/pkg/db"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/outbox"
	"github.com/calderaworks/mes-backend/pkg/outbox/payloads"
)

// ReceiptInput records incoming stock for one item at one location.
type ReceiptInput struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Quantity   decimal.Decimal
	Reference  *string
	Notes      *string
	Actor      *outbox.ActorRef
}

// ReceiptService lands incoming stock on the ledger. Unlike the raw ledger
// movements it owns its transaction and emits the stock_received event.
type ReceiptService interface {
	ReceiveStock(ctx context.Context, input ReceiptInput) (*models.InventoryBalance, error)
}

type receiptService struct {
	client *db.Client
	ledger Service
	events *outbox.Service
}

// NewReceiptService wires the stock receipt flow.
func NewReceiptService(client *db.Client, ledger Service, events *outbox.Service) (ReceiptService, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &receiptService{client: client, ledger: ledger, events: events}, nil
}

func (s *receiptService) ReceiveStock(ctx context.Context, input ReceiptInput) (*models.InventoryBalance, error) {
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt quantity must be positive")
	}

	var balance *models.InventoryBalance
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.ledger.IncreaseOnHand(ctx, tx, MovementInput{
			ItemID:        input.ItemID,
			LocationID:    input.LocationID,
			Quantity:      input.Quantity,
			Type:          enums.TransactionPurchaseReceipt,
			ReferenceType: input.Reference,
			Notes:         input.Notes,
		})
		if err != nil {
			return err
		}
		balance = updated

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateInventoryBalance,
			AggregateID:   input.ItemID,
			Actor:         input.Actor,
			Data: payloads.StockReceivedEvent{
				ItemID:     input.ItemID,
				LocationID: input.LocationID,
				Quantity:   input.Quantity,
				ReceivedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}
