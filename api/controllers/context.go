package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/api/middleware"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

// currentUserID pulls the authenticated user from the request context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// pathUUID parses a UUID path parameter, mapping bad input to a validation error.
func pathUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a valid uuid")
	}
	return id, nil
}
