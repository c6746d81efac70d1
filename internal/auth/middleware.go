package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/procura/internal/presentation/http/response"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Middleware(issuer *Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return response.New(c).WithError(errorbank.Unauthenticated("missing bearer token")).Build()
			}

			id, err := issuer.Parse(strings.TrimSpace(raw))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				return response.New(c).WithError(errorbank.Unauthenticated(msg, errorbank.WithCause(err))).Build()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}
