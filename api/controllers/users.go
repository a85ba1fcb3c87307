package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/api/responses"
	"github.com/givefolio/givefolio-backend/api/validators"
	"github.com/givefolio/givefolio-backend/internal/users"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// CharityPreferenceRequest updates how realized profits are allocated.
// A nil uuid clears the explicit charity; an empty category clears the
// category preference.
type CharityPreferenceRequest struct {
	CharityPercentage        *float64   `json:"charity_percentage,omitempty"`
	PreferredCharityID       *uuid.UUID `json:"preferred_charity_id,omitempty"`
	PreferredCharityCategory *string    `json:"preferred_charity_category,omitempty"`
}

// UserProfile returns the authenticated user.
func UserProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// UpdateCharityPreference stores the caller's allocation preferences.
// Percentages below the platform floor are raised to it.
func UpdateCharityPreference(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body CharityPreferenceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateCharityPreference(r.Context(), userID, users.PreferenceParams{
			CharityPercentage:        body.CharityPercentage,
			PreferredCharityID:       body.PreferredCharityID,
			PreferredCharityCategory: body.PreferredCharityCategory,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}
