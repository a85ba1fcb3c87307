package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/givefolio/givefolio-backend/api/responses"
	"github.com/givefolio/givefolio-backend/api/validators"
	"github.com/givefolio/givefolio-backend/internal/charity"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// CreateCharityRequest is the admin request body for registering an organization.
type CreateCharityRequest struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Description *string `json:"description,omitempty"`
	Website     *string `json:"website,omitempty"`
	EIN         *string `json:"ein,omitempty"`
}

// CharityList returns active organizations, optionally filtered by category.
func CharityList(svc charity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charity service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := charity.ListParams{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Limit:    limit,
		}

		orgs, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orgs)
	}
}

// CharityDetail returns a single organization.
func CharityDetail(svc charity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charity service unavailable"))
			return
		}

		charityID, err := pathUUID(chi.URLParam(r, "charityId"), "charity id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.Get(r.Context(), charityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

// AdminCharityCreate registers a new organization in the catalog.
func AdminCharityCreate(svc charity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charity service unavailable"))
			return
		}

		var body CreateCharityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.Create(r.Context(), charity.CreateParams{
			Name:        body.Name,
			Category:    body.Category,
			Description: body.Description,
			Website:     body.Website,
			EIN:         body.EIN,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

// AdminCharityVerify marks an organization as verified, making it
// eligible for category and balanced selection.
func AdminCharityVerify(svc charity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charity service unavailable"))
			return
		}

		charityID, err := pathUUID(chi.URLParam(r, "charityId"), "charity id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Verify(r.Context(), charityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "verified"})
	}
}
