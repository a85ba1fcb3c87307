package auth

import (
	"github.com/givefolio/givefolio-backend/internal/users"
)

// RegisterRequest captures the payload for investor onboarding.
type RegisterRequest struct {
	FirstName                string   `json:"first_name" validate:"required"`
	LastName                 string   `json:"last_name" validate:"required"`
	Email                    string   `json:"email" validate:"required,email"`
	Password                 string   `json:"password" validate:"required,min=8"`
	CharityPercentage        *float64 `json:"charity_percentage,omitempty"`
	PreferredCharityCategory *string  `json:"preferred_charity_category,omitempty"`
	AcceptTOS                bool     `json:"accept_tos"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest carries the expired access token and the refresh token
// issued alongside it.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
