package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/givefolio/givefolio-backend/api/responses"
	"github.com/givefolio/givefolio-backend/api/validators"
	"github.com/givefolio/givefolio-backend/internal/allocation"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/pagination"
)

// AllocationList returns the caller's allocation ledger, newest first.
func AllocationList(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AllocationDetail returns a single allocation owned by the caller.
func AllocationDetail(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocationID, err := pathUUID(chi.URLParam(r, "allocationId"), "allocation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), userID, allocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// PlatformImpact returns platform-wide giving totals. Public; backs the
// transparency page.
func PlatformImpact(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		impact, err := svc.PlatformImpact(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, impact)
	}
}

// AllocationImpact aggregates the caller's giving history.
func AllocationImpact(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Impact(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AdminAllocationTransferred records that funds left the platform for the charity.
func AdminAllocationTransferred(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return allocationTransition(svc, logg, "transferred", func(r *http.Request, id string) error {
		allocationID, err := pathUUID(id, "allocation id")
		if err != nil {
			return err
		}
		return svc.MarkTransferred(r.Context(), allocationID)
	})
}

// AdminAllocationConfirmed records the charity's receipt confirmation.
func AdminAllocationConfirmed(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return allocationTransition(svc, logg, "confirmed", func(r *http.Request, id string) error {
		allocationID, err := pathUUID(id, "allocation id")
		if err != nil {
			return err
		}
		return svc.MarkConfirmed(r.Context(), allocationID)
	})
}

func allocationTransition(svc allocation.Service, logg *logger.Logger, status string, run func(*http.Request, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}
		if err := run(r, chi.URLParam(r, "allocationId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}
