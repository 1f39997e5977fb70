package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/madgik/datacatalog/internal/domain"
	"github.com/madgik/datacatalog/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyUser resolves the request's identity and stores it in the context.
// With authentication disabled every request runs as the anonymous user;
// with it enabled, a missing or invalid token leaves no user in the context
// and the capability checks downstream reject the mutation.
func (s *AuthMiddleware) IdentifyUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyUser")
		defer span.End()

		if !s.auth.Enabled() {
			ctx = context.WithValue(ctx, domain.UserCtxKey, domain.Anonymous())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}

		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}

			authType, token := split[0], split[1]
			if authType != "Bearer" {
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
				goto skipCheckAuthorization
			}

			user, err := s.auth.Authenticate(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyUser: authentication failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.UserCtxKey, user)
			span.SetAttributes(attribute.String("Username", user.Username))
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
