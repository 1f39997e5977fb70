package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/madgik/datacatalog/internal/config"
	"github.com/madgik/datacatalog/internal/domain"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token failed: %v", err)
	}
	return signed
}

func TestAuthenticateMapsClaims(t *testing.T) {
	auth := NewAuthService(config.Auth{Enabled: true, JWTSecret: testSecret})

	token := signedToken(t, testSecret, jwt.MapClaims{
		"preferred_username": "jdoe",
		"name":               "Jane Doe",
		"email":              "jdoe@example.org",
		"sub":                "subject-1",
		"roles":              []any{domain.CapabilityDomainExpert},
		"exp":                time.Now().Add(time.Hour).Unix(),
	})

	user, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.Username != "jdoe" || user.Email != "jdoe@example.org" {
		t.Fatalf("unexpected identity: %+v", user)
	}
	if !user.Can(domain.CapabilityDomainExpert) {
		t.Fatal("expected domain-expert capability")
	}
	if user.Can(domain.CapabilityAdmin) {
		t.Fatal("admin capability must not be granted")
	}
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	auth := NewAuthService(config.Auth{Enabled: true, JWTSecret: testSecret})

	token := signedToken(t, "other-secret", jwt.MapClaims{
		"sub": "subject-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := auth.Authenticate(context.Background(), token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	auth := NewAuthService(config.Auth{Enabled: true, JWTSecret: testSecret})

	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub": "subject-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := auth.Authenticate(context.Background(), token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthenticateFallsBackToSubject(t *testing.T) {
	auth := NewAuthService(config.Auth{Enabled: true, JWTSecret: testSecret})

	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub": "subject-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	user, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.Username != "subject-1" {
		t.Fatalf("expected username fallback to subject, got %q", user.Username)
	}
}
