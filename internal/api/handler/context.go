package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// ctxCaller returns the identity injected by the Auth middleware. A missing
// caller means the route was wired without Auth; it is rejected as 401.
func ctxCaller(c echo.Context) (*domain.User, error) {
	user := middleware.Caller(c)
	if user == nil {
		return nil, domain.Unauthorized("missing authentication")
	}
	return user, nil
}

// pathUserID reads and validates the :id path parameter.
func pathUserID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", domain.Validation("invalid user id")
	}
	return id.String(), nil
}
