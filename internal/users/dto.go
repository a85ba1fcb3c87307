package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                       uuid.UUID      `json:"id"`
	Email                    string         `json:"email"`
	FirstName                string         `json:"first_name"`
	LastName                 string         `json:"last_name"`
	Role                     enums.UserRole `json:"role"`
	CharityPercentage        float64        `json:"charity_percentage"`
	PreferredCharityID       *uuid.UUID     `json:"preferred_charity_id,omitempty"`
	PreferredCharityCategory *string        `json:"preferred_charity_category,omitempty"`
	IsActive                 bool           `json:"is_active"`
	LastLoginAt              *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                       u.ID,
		Email:                    u.Email,
		FirstName:                u.FirstName,
		LastName:                 u.LastName,
		Role:                     u.Role,
		CharityPercentage:        u.CharityPercentage,
		PreferredCharityID:       u.PreferredCharityID,
		PreferredCharityCategory: u.PreferredCharityCategory,
		IsActive:                 u.IsActive,
		LastLoginAt:              u.LastLoginAt,
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
}
