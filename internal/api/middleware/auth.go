package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// CallerKey is the echo context key holding the authenticated *domain.User.
const CallerKey = "caller"

// Auth resolves the Authorization header into the live caller identity and
// stores it under CallerKey. Rejections are returned as domain errors so the
// HTTP error handler renders them.
func Auth(authz ports.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)

			user, err := authz.ResolveCaller(c.Request().Context(), header)
			if err != nil {
				recordDenial(err)
				return err
			}

			c.Set(CallerKey, user)
			return next(c)
		}
	}
}

// Caller returns the identity stored by Auth, or nil when Auth did not run.
func Caller(c echo.Context) *domain.User {
	user, _ := c.Get(CallerKey).(*domain.User)
	return user
}

func recordDenial(err error) {
	reason := "unauthorized"
	if errors.Is(err, domain.ErrForbidden) {
		reason = "forbidden"
	} else if !errors.Is(err, domain.ErrUnauthorized) {
		return
	}
	metrics.AuthorizationDenialsTotal.WithLabelValues(reason).Inc()
}
