package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/enums"
)

func tokenConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "givefolio", ExpirationMinutes: 30}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := tokenConfig()
	userID := uuid.New()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleInvestor,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleInvestor {
		t.Fatalf("expected investor role, got %s", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %s", claims.ID)
	}
}

func TestMintGeneratesJTIWhenBlank(t *testing.T) {
	token, err := MintAccessToken(tokenConfig(), time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(tokenConfig(), token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(tokenConfig(), time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRole("superuser"),
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := MintAccessToken(tokenConfig(), time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleInvestor,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wrong := tokenConfig()
	wrong.Secret = "other"
	if _, err := ParseAccessToken(wrong, token); err == nil {
		t.Fatal("expected signature validation to fail")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, err := MintAccessToken(tokenConfig(), time.Now().UTC(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleInvestor,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := tokenConfig()
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer validation to fail")
	}
}

func TestExpiredTokenAllowedOnlyForRefreshPath(t *testing.T) {
	cfg := tokenConfig()
	issued := time.Now().UTC().Add(-2 * time.Hour)
	userID := uuid.New()

	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleInvestor,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("parse allow expired: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
}
