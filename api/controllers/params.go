package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
	"github.com/calderaworks/mes-backend/pkg/outbox"
)

const actorIDHeader = "X-Actor-Id"

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return value, nil
}

// actorFromRequest picks up the optional caller identity forwarded by the
// gateway. Events tolerate a nil actor.
func actorFromRequest(r *http.Request) *outbox.ActorRef {
	raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
	if raw == "" {
		return nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID}
}
