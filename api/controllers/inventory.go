package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/api/responses"
	"github.com/calderaworks/mes-backend/api/validators"
	"github.com/calderaworks/mes-backend/internal/inventory"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/logger"
)

type stockReceiptRequest struct {
	ItemID     string          `json:"item_id" validate:"required,uuid"`
	LocationID string          `json:"location_id" validate:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  *string         `json:"reference"`
	Notes      *string         `json:"notes"`
}

type balanceResponse struct {
	ItemID     uuid.UUID       `json:"item_id"`
	LocationID uuid.UUID       `json:"location_id"`
	OnHand     decimal.Decimal `json:"on_hand"`
	Allocated  decimal.Decimal `json:"allocated"`
	Available  decimal.Decimal `json:"available"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type transactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	ItemID          uuid.UUID       `json:"item_id"`
	LocationID      uuid.UUID       `json:"location_id"`
	TransactionType string          `json:"transaction_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceType   *string         `json:"reference_type,omitempty"`
	ReferenceID     *uuid.UUID      `json:"reference_id,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newBalanceResponse(balance *models.InventoryBalance) balanceResponse {
	return balanceResponse{
		ItemID:     balance.ItemID,
		LocationID: balance.LocationID,
		OnHand:     balance.OnHand,
		Allocated:  balance.Allocated,
		Available:  balance.Available(),
		UpdatedAt:  balance.UpdatedAt,
	}
}

func newTransactionResponse(entry *models.InventoryTransaction) transactionResponse {
	return transactionResponse{
		ID:              entry.ID,
		ItemID:          entry.ItemID,
		LocationID:      entry.LocationID,
		TransactionType: entry.TransactionType.String(),
		Quantity:        entry.Quantity,
		ReferenceType:   entry.ReferenceType,
		ReferenceID:     entry.ReferenceID,
		Notes:           entry.Notes,
		CreatedAt:       entry.CreatedAt,
	}
}

func InventoryReceipt(svc inventory.ReceiptService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload stockReceiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(payload.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}
		locationID, err := uuid.Parse(payload.LocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location id"))
			return
		}

		balance, err := svc.ReceiveStock(r.Context(), inventory.ReceiptInput{
			ItemID:     itemID,
			LocationID: locationID,
			Quantity:   payload.Quantity,
			Reference:  payload.Reference,
			Notes:      payload.Notes,
			Actor:      actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newBalanceResponse(balance))
	}
}

func InventoryBalances(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		filter := inventory.BalanceFilter{}
		itemID, err := validators.ParseQueryUUID(r, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if itemID != uuid.Nil {
			filter.ItemID = &itemID
		}
		locationID, err := validators.ParseQueryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if locationID != uuid.Nil {
			filter.LocationID = &locationID
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		balances, err := svc.ListBalances(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]balanceResponse, 0, len(balances))
		for i := range balances {
			out = append(out, newBalanceResponse(&balances[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func InventoryTransactions(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListTransactions(r.Context(), itemID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]transactionResponse, 0, len(entries))
		for i := range entries {
			out = append(out, newTransactionResponse(&entries[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
