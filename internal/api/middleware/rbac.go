package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// RBAC admits the request only when the caller's live role grants capability.
// It must be chained after Auth.
func RBAC(authz ports.Authorizer, capability domain.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := authz.RequireRole(Caller(c), capability); err != nil {
				recordDenial(err)
				return err
			}
			return next(c)
		}
	}
}
