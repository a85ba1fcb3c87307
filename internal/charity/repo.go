package charity

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
)

// Repository exposes persistence helpers for beneficiary organizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.BeneficiaryOrganization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BeneficiaryOrganization, error)
	List(ctx context.Context, params ListParams) ([]models.BeneficiaryOrganization, error)
	RandomVerifiedByCategory(ctx context.Context, category string) (*models.BeneficiaryOrganization, error)
	LeastFundedVerified(ctx context.Context) (*models.BeneficiaryOrganization, error)
	IncrementTotalReceived(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) (int64, error)
}

// ListParams filters the organization listing.
type ListParams struct {
	Category   string
	OnlyActive bool
	Limit      int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a charity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, org *models.BeneficiaryOrganization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.BeneficiaryOrganization, error) {
	var org models.BeneficiaryOrganization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.BeneficiaryOrganization, error) {
	query := r.db.WithContext(ctx).Model(&models.BeneficiaryOrganization{})
	if params.OnlyActive {
		query = query.Where("is_active = TRUE")
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var orgs []models.BeneficiaryOrganization
	if err := query.Order("name ASC").Limit(limit).Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repositoryImpl) RandomVerifiedByCategory(ctx context.Context, category string) (*models.BeneficiaryOrganization, error) {
	var org models.BeneficiaryOrganization
	err := r.db.WithContext(ctx).
		Where("category = ? AND is_active = TRUE AND is_verified = TRUE", category).
		Order("RANDOM()").
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repositoryImpl) LeastFundedVerified(ctx context.Context) (*models.BeneficiaryOrganization, error) {
	var org models.BeneficiaryOrganization
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE AND is_verified = TRUE").
		Order("total_received ASC, created_at ASC").
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repositoryImpl) IncrementTotalReceived(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.BeneficiaryOrganization{}).
		Where("id = ?", id).
		UpdateColumn("total_received", gorm.Expr("total_received + ?", amount)).Error
}

func (r *repositoryImpl) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BeneficiaryOrganization{}).
		Where("id = ?", id).
		UpdateColumn("is_verified", verified)
	return result.RowsAffected, result.Error
}
