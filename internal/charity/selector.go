package charity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// Preference carries a user's stored beneficiary hints into selection.
type Preference struct {
	CharityID *uuid.UUID
	Category  *string
}

// Selection is the chosen organization plus the strategy that produced it.
type Selection struct {
	Organization *models.BeneficiaryOrganization
	Method       enums.SelectionMethod
}

// Selector resolves the beneficiary for an allocation. Strategies cascade:
// an explicit preference wins if the organization is still active, then a
// random verified organization from the preferred category, then the
// least-funded verified organization overall.
type Selector struct {
	repo Repository
	logg *logger.Logger
}

// NewSelector wires the charity selector.
func NewSelector(repo Repository, logg *logger.Logger) (*Selector, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "charity repository required")
	}
	return &Selector{repo: repo, logg: logg}, nil
}

// WithTx returns a selector bound to the supplied transaction so selection
// can run inside the trade transaction.
func (s *Selector) WithTx(tx *gorm.DB) *Selector {
	if tx == nil {
		return s
	}
	return &Selector{repo: s.repo.WithTx(tx), logg: s.logg}
}

// Select picks the beneficiary for an allocation. A nil selection with a
// nil error means no eligible organization exists; the caller records the
// allocation unassigned rather than failing the trade.
func (s *Selector) Select(ctx context.Context, pref Preference) (*Selection, error) {
	if pref.CharityID != nil && *pref.CharityID != uuid.Nil {
		org, err := s.repo.GetByID(ctx, *pref.CharityID)
		switch {
		case err == nil && org.IsActive:
			return &Selection{Organization: org, Method: enums.SelectionMethodExplicit}, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferred charity")
		default:
			// Inactive or vanished preference falls through to the
			// category strategy.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "charity_id", pref.CharityID.String()),
					"preferred charity unavailable, falling back")
			}
		}
	}

	if pref.Category != nil && *pref.Category != "" {
		org, err := s.repo.RandomVerifiedByCategory(ctx, *pref.Category)
		if err == nil {
			return &Selection{Organization: org, Method: enums.SelectionMethodCategory}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select charity by category")
		}
	}

	org, err := s.repo.LeastFundedVerified(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logg != nil {
				s.logg.Warn(ctx, "no eligible charity, allocation will be recorded unassigned")
			}
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select least funded charity")
	}
	return &Selection{Organization: org, Method: enums.SelectionMethodBalanced}, nil
}
