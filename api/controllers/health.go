package controllers

import (
	"context"
	"net/http"

	"github.com/givefolio/givefolio-backend/api/responses"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// Pinger is the health probe surface shared by the database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every wired dependency answers.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				statuses[name] = "unreachable"
				healthy = false
				logg.Error(r.Context(), "readiness probe failed for "+name, err)
				continue
			}
			statuses[name] = "ok"
		}
		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(statuses)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
