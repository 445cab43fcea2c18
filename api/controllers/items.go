package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/calderaworks/mes-backend/api/responses"
	"github.com/calderaworks/mes-backend/api/validators"
	"github.com/calderaworks/mes-backend/internal/items"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/logger"
)

type createItemRequest struct {
	OrgID       string  `json:"org_id" validate:"required,uuid"`
	SKU         string  `json:"sku" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	ItemType    string  `json:"item_type"`
	UOMCode     string  `json:"uom_code"`
}

type itemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ItemType    string    `json:"item_type"`
	UOMCode     string    `json:"uom_code"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newItemResponse(item *models.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		OrgID:       item.OrgID,
		SKU:         item.SKU,
		Name:        item.Name,
		Description: item.Description,
		ItemType:    item.ItemType.String(),
		UOMCode:     item.UOMCode,
		Active:      item.Active,
		CreatedAt:   item.CreatedAt,
	}
}

func ItemCreate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orgID, err := uuid.Parse(payload.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid org id"))
			return
		}

		item, err := svc.CreateItem(r.Context(), items.CreateItemInput{
			OrgID:       orgID,
			SKU:         payload.SKU,
			Name:        payload.Name,
			Description: payload.Description,
			ItemType:    enums.ItemType(payload.ItemType),
			UOMCode:     payload.UOMCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newItemResponse(item))
	}
}

func ItemDetail(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}

		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newItemResponse(item))
	}
}

func ItemList(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
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
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListItems(r.Context(), orgID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]itemResponse, 0, len(list))
		for i := range list {
			out = append(out, newItemResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
