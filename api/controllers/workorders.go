package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/api/responses"
	"github.com/calderaworks/mes-backend/api/validators"
	"github.com/calderaworks/mes-backend/internal/reservation"
	"github.com/calderaworks/mes-backend/internal/workorders"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/logger"
)

type createWorkOrderRequest struct {
	OrgID           string          `json:"org_id" validate:"required,uuid"`
	WorkOrderNumber string          `json:"work_order_number" validate:"required"`
	ItemID          string          `json:"item_id" validate:"required,uuid"`
	LocationID      string          `json:"location_id" validate:"required,uuid"`
	Quantity        decimal.Decimal `json:"quantity"`
	ScheduledStart  *time.Time      `json:"scheduled_start"`
	ScheduledEnd    *time.Time      `json:"scheduled_end"`
	Notes           *string         `json:"notes"`
}

type completeWorkOrderRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type holdWorkOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type cancelWorkOrderRequest struct {
	Reason string `json:"reason"`
}

type workOrderResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrgID             uuid.UUID       `json:"org_id"`
	WorkOrderNumber   string          `json:"work_order_number"`
	ItemID            uuid.UUID       `json:"item_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	Status            string          `json:"status"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityCompleted decimal.Decimal `json:"quantity_completed"`
	HoldReason        *string         `json:"hold_reason,omitempty"`
	ScheduledStart    *time.Time      `json:"scheduled_start,omitempty"`
	ScheduledEnd      *time.Time      `json:"scheduled_end,omitempty"`
	ActualStart       *time.Time      `json:"actual_start,omitempty"`
	ActualEnd         *time.Time      `json:"actual_end,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type createWorkOrderResponse struct {
	workOrderResponse
	Shortages []reservation.ComponentShortage `json:"shortages,omitempty"`
}

func newWorkOrderResponse(order *models.WorkOrder) workOrderResponse {
	return workOrderResponse{
		ID:                order.ID,
		OrgID:             order.OrgID,
		WorkOrderNumber:   order.WorkOrderNumber,
		ItemID:            order.ItemID,
		LocationID:        order.LocationID,
		Status:            order.Status.String(),
		QuantityOrdered:   order.QuantityOrdered,
		QuantityCompleted: order.QuantityCompleted,
		HoldReason:        order.HoldReason,
		ScheduledStart:    order.ScheduledStart,
		ScheduledEnd:      order.ScheduledEnd,
		ActualStart:       order.ActualStart,
		ActualEnd:         order.ActualEnd,
		Notes:             order.Notes,
		CreatedAt:         order.CreatedAt,
	}
}

func WorkOrderCreate(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		var payload createWorkOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orgID, err := uuid.Parse(payload.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid org id"))
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

		outcome, err := svc.Create(r.Context(), workorders.CreateInput{
			OrgID:           orgID,
			WorkOrderNumber: payload.WorkOrderNumber,
			ItemID:          itemID,
			LocationID:      locationID,
			Quantity:        payload.Quantity,
			ScheduledStart:  payload.ScheduledStart,
			ScheduledEnd:    payload.ScheduledEnd,
			Notes:           payload.Notes,
			Actor:           actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createWorkOrderResponse{
			workOrderResponse: newWorkOrderResponse(outcome.WorkOrder),
			Shortages:         outcome.Shortages,
		})
	}
}

func WorkOrderDetail(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}

func WorkOrderList(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orgID, err := validators.ParseQueryUUID(r, "org_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if orgID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "org_id is required"))
			return
		}

		filter := workorders.ListFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseWorkOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		itemID, err := validators.ParseQueryUUID(r, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if itemID != uuid.Nil {
			filter.ItemID = &itemID
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		orders, err := svc.List(r.Context(), orgID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]workOrderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newWorkOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func WorkOrderStart(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Start(r.Context(), orderID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}

func WorkOrderComplete(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeWorkOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Complete(r.Context(), orderID, payload.Quantity, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}

func WorkOrderHold(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload holdWorkOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Hold(r.Context(), orderID, payload.Reason, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}

func WorkOrderResume(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Resume(r.Context(), orderID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}

func WorkOrderCancel(svc workorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "work order service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "workOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelWorkOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), orderID, payload.Reason, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkOrderResponse(order))
	}
}
