package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
)

// Repository exposes persistence helpers for users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateCharityPreference(ctx context.Context, id uuid.UUID, params CharityPreferenceUpdate) (int64, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, now time.Time) error
}

// CharityPreferenceUpdate carries the giving settings a user can change.
type CharityPreferenceUpdate struct {
	CharityPercentage        float64
	PreferredCharityID       *uuid.UUID
	PreferredCharityCategory *string
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) UpdateCharityPreference(ctx context.Context, id uuid.UUID, params CharityPreferenceUpdate) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"charity_percentage":         params.CharityPercentage,
			"preferred_charity_id":       params.PreferredCharityID,
			"preferred_charity_category": params.PreferredCharityCategory,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) TouchLastLogin(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", now).Error
}
