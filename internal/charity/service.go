package charity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

// Service defines the organization catalog operations exposed over the API.
type Service interface {
	List(ctx context.Context, params ListParams) ([]models.BeneficiaryOrganization, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BeneficiaryOrganization, error)
	Create(ctx context.Context, params CreateParams) (*models.BeneficiaryOrganization, error)
	Verify(ctx context.Context, id uuid.UUID) error
}

// CreateParams describes a new organization registration.
type CreateParams struct {
	Name        string
	Category    string
	Description *string
	Website     *string
	EIN         *string
}

type service struct {
	repo Repository
}

// NewService wires the charity catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "charity repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.BeneficiaryOrganization, error) {
	params.OnlyActive = true
	orgs, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list charities")
	}
	return orgs, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BeneficiaryOrganization, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charity id required")
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "charity not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load charity")
	}
	return org, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.BeneficiaryOrganization, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charity name required")
	}
	category := strings.TrimSpace(params.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charity category required")
	}

	org := &models.BeneficiaryOrganization{
		Name:        name,
		Category:    category,
		Description: params.Description,
		Website:     params.Website,
		EIN:         params.EIN,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create charity")
	}
	return org, nil
}

func (s *service) Verify(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "charity id required")
	}
	affected, err := s.repo.SetVerified(ctx, id, true)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify charity")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "charity not found")
	}
	return nil
}
