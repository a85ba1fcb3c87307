package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/audit"
	"github.com/givefolio/givefolio-backend/internal/users"
	pkgauth "github.com/givefolio/givefolio-backend/pkg/auth"
	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidRefreshMessage     = "invalid refresh token"

	refreshTokenBytes      = 32
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, now time.Time) error
}

type sessionStore interface {
	StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	RevokeRefreshToken(ctx context.Context, userID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userRepository
	Sessions       sessionStore
	Engine         *allocation.Engine
	Audit          *audit.Recorder
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	RefreshTTL     time.Duration
	Clock          func() time.Time
}

type service struct {
	users       userRepository
	sessions    sessionStore
	engine      *allocation.Engine
	audit       *audit.Recorder
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	refreshTTL  time.Duration
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case params.Sessions == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session store required")
	case params.Engine == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "allocation engine required")
	}
	refreshTTL := params.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	accessTTL := time.Duration(params.JWTConfig.ExpirationMinutes) * time.Minute
	if refreshTTL <= accessTTL {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh token ttl must exceed access token ttl")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:       params.Users,
		sessions:    params.Sessions,
		engine:      params.Engine,
		audit:       params.Audit,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		refreshTTL:  refreshTTL,
		now:         clock,
	}, nil
}

// Register onboards a new investor. A requested charity percentage below
// the platform floor is raised to it before the account is created, so
// the stored preference always satisfies the mandate.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if !req.AcceptTOS {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "accept_tos must be true")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var requested *decimal.Decimal
	if req.CharityPercentage != nil {
		value := decimal.NewFromFloat(*req.CharityPercentage)
		requested = &value
	}
	pct, _ := s.engine.ClampPercentage(ctx, requested)
	percentage, _ := pct.Float64()

	user := &models.User{
		Email:                    email,
		PasswordHash:             passwordHash,
		FirstName:                strings.TrimSpace(req.FirstName),
		LastName:                 strings.TrimSpace(req.LastName),
		Role:                     enums.UserRoleInvestor,
		CharityPercentage:        percentage,
		PreferredCharityCategory: req.PreferredCharityCategory,
		IsActive:                 true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:   &user.ID,
		Action:   "user.registered",
		Severity: enums.AuditSeverityInfo,
		EntityID: &user.ID,
		Detail:   map[string]any{"charity_percentage": percentage},
	})

	return s.issueTokens(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	s.audit.Record(ctx, audit.Entry{
		UserID:   &user.ID,
		Action:   "user.login",
		Severity: enums.AuditSeverityInfo,
		EntityID: &user.ID,
	})

	return s.issueTokens(ctx, user)
}

// Refresh rotates the token pair. The expired access token identifies
// the user; the refresh token proves the session is still live.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	if strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	stored, err := s.sessions.GetRefreshToken(ctx, claims.UserID.String())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refresh token")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.RefreshToken)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	accessToken, refreshToken, err := s.mintPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout revokes the stored refresh token. Outstanding access tokens
// expire on their own TTL.
func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.sessions.RevokeRefreshToken(ctx, userID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke refresh token")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.GetByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*LoginResponse, error) {
	accessToken, refreshToken, err := s.mintPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) mintPair(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate refresh token")
	}
	if err := s.sessions.StoreRefreshToken(ctx, user.ID.String(), refreshToken, s.refreshTTL); err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return accessToken, refreshToken, nil
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
