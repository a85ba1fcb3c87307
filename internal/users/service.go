package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// Service defines profile and giving-preference operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateCharityPreference(ctx context.Context, id uuid.UUID, params PreferenceParams) (*models.User, error)
}

// PreferenceParams is the requested giving configuration. The percentage
// is clamped to the mandated floor before persisting so the stored value
// is always in range.
type PreferenceParams struct {
	CharityPercentage        *float64
	PreferredCharityID       *uuid.UUID
	PreferredCharityCategory *string
}

type service struct {
	repo   Repository
	engine *allocation.Engine
	logg   *logger.Logger
}

// NewService wires the user profile service.
func NewService(repo Repository, engine *allocation.Engine, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "allocation engine required")
	}
	return &service{repo: repo, engine: engine, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) UpdateCharityPreference(ctx context.Context, id uuid.UUID, params PreferenceParams) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	pct := current.CharityPercentage
	if params.CharityPercentage != nil {
		requested := decimal.NewFromFloat(*params.CharityPercentage)
		clamped, _ := s.engine.ClampPercentage(ctx, &requested)
		pct, _ = clamped.Float64()
	}

	update := CharityPreferenceUpdate{
		CharityPercentage:        pct,
		PreferredCharityID:       current.PreferredCharityID,
		PreferredCharityCategory: current.PreferredCharityCategory,
	}
	if params.PreferredCharityID != nil {
		if *params.PreferredCharityID == uuid.Nil {
			update.PreferredCharityID = nil
		} else {
			update.PreferredCharityID = params.PreferredCharityID
		}
	}
	if params.PreferredCharityCategory != nil {
		if *params.PreferredCharityCategory == "" {
			update.PreferredCharityCategory = nil
		} else {
			update.PreferredCharityCategory = params.PreferredCharityCategory
		}
	}

	affected, err := s.repo.UpdateCharityPreference(ctx, id, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update charity preference")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	return s.Get(ctx, id)
}
