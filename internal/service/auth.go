package service

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/madgik/datacatalog/internal/config"
	"github.com/madgik/datacatalog/internal/domain"
)

var tracer = otel.Tracer("service")

type AuthService struct {
	config config.Auth
}

func NewAuthService(conf config.Auth) *AuthService {
	return &AuthService{config: conf}
}

// Enabled reports whether requests must carry a token. When disabled, every
// request runs as the anonymous user.
func (s *AuthService) Enabled() bool {
	return s.config.Enabled
}

// Authenticate validates the bearer token and maps its claims onto the
// catalog identity. Roles come from the "roles" claim as granted by the
// identity provider.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	_, span := tracer.Start(ctx, "Auth.Service.Authenticate")
	defer span.End()

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return domain.User{}, domain.UnauthorizedError{}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return domain.User{}, domain.UnauthorizedError{}
	}

	user := domain.User{
		Username: stringClaim(claims, "preferred_username"),
		FullName: stringClaim(claims, "name"),
		Email:    stringClaim(claims, "email"),
		Subject:  stringClaim(claims, "sub"),
		Roles:    rolesClaim(claims),
	}
	if user.Username == "" {
		user.Username = user.Subject
	}
	return user, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func rolesClaim(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
