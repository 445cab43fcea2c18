package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderaworks/mes-backend/api/responses"
	"github.com/calderaworks/mes-backend/api/validators"
	"github.com/calderaworks/mes-backend/internal/bom"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/logger"
)

type bomComponentRequest struct {
	ComponentItemID string          `json:"component_item_id" validate:"required,uuid"`
	QuantityPer     decimal.Decimal `json:"quantity_per"`
	UOMCode         string          `json:"uom_code"`
	ScrapFactor     decimal.Decimal `json:"scrap_factor"`
	Position        int             `json:"position"`
}

type createBOMRequest struct {
	OrgID      string                `json:"org_id" validate:"required,uuid"`
	ItemID     string                `json:"item_id" validate:"required,uuid"`
	Notes      *string               `json:"notes"`
	Components []bomComponentRequest `json:"components" validate:"dive"`
}

type bomHeaderResponse struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Revision  int       `json:"revision"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type bomLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	BOMID           uuid.UUID       `json:"bom_id"`
	ComponentItemID uuid.UUID       `json:"component_item_id"`
	QuantityPer     decimal.Decimal `json:"quantity_per"`
	UOMCode         string          `json:"uom_code"`
	ScrapFactor     decimal.Decimal `json:"scrap_factor"`
	Position        int             `json:"position"`
}

func newBOMHeaderResponse(header *models.BOMHeader) bomHeaderResponse {
	return bomHeaderResponse{
		ID:        header.ID,
		OrgID:     header.OrgID,
		ItemID:    header.ItemID,
		Revision:  header.Revision,
		Status:    string(header.Status),
		Notes:     header.Notes,
		CreatedAt: header.CreatedAt,
	}
}

func newBOMLineResponse(line *models.BOMLine) bomLineResponse {
	return bomLineResponse{
		ID:              line.ID,
		BOMID:           line.BOMID,
		ComponentItemID: line.ComponentItemID,
		QuantityPer:     line.QuantityPer,
		UOMCode:         line.UOMCode,
		ScrapFactor:     line.ScrapFactor,
		Position:        line.Position,
	}
}

func componentInputFromRequest(payload bomComponentRequest) (bom.ComponentInput, error) {
	componentID, err := uuid.Parse(payload.ComponentItemID)
	if err != nil {
		return bom.ComponentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid component item id")
	}
	return bom.ComponentInput{
		ComponentItemID: componentID,
		QuantityPer:     payload.QuantityPer,
		UOMCode:         payload.UOMCode,
		ScrapFactor:     payload.ScrapFactor,
		Position:        payload.Position,
	}, nil
}

func BOMCreate(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		var payload createBOMRequest
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

		lines := make([]bom.ComponentInput, 0, len(payload.Components))
		for _, component := range payload.Components {
			line, err := componentInputFromRequest(component)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			lines = append(lines, line)
		}

		header, err := svc.CreateBOM(r.Context(), bom.CreateBOMInput{
			OrgID:  orgID,
			ItemID: itemID,
			Notes:  payload.Notes,
			Lines:  lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newBOMHeaderResponse(header))
	}
}

func BOMAddComponent(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		bomID, err := parseUUIDParam(r, "bomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bomComponentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := componentInputFromRequest(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.AddComponent(r.Context(), bom.AddComponentInput{
			BOMID:          bomID,
			ComponentInput: line,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newBOMLineResponse(created))
	}
}

func BOMComponents(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		bomID, err := parseUUIDParam(r, "bomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.Components(r.Context(), bomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]bomLineResponse, 0, len(lines))
		for i := range lines {
			out = append(out, newBOMLineResponse(&lines[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ItemExplosion runs the multi-level requirement calculation for an item's
// active BOM. quantity is required; level sets the tag on the direct
// components and defaults to 1.
func ItemExplosion(svc bom.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bom service unavailable"))
			return
		}

		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

		rawQuantity := strings.TrimSpace(r.URL.Query().Get("quantity"))
		if rawQuantity == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity is required"))
			return
		}
		quantity, err := decimal.NewFromString(rawQuantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity"))
			return
		}

		level, err := validators.ParseQueryInt(r, "level", 1, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.Explode(r.Context(), bom.ExplodeInput{
			OrgID:      orgID,
			ItemID:     itemID,
			Quantity:   quantity,
			StartLevel: level,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lines)
	}
}
