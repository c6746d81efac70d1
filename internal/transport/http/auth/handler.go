package auth

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	"github.com/Additional-Code/procura/internal/service/session"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/auth")

// SessionService exchanges credentials for tokens.
type SessionService interface {
	Login(ctx context.Context, name, password string) (*session.Result, error)
}

// Handler exposes login endpoints.
type Handler struct {
	sessions SessionService
}

// NewHandler constructs an auth Handler.
func NewHandler(svc *session.Service) *Handler {
	return &Handler{sessions: svc}
}

// Register mounts /auth routes. /auth/me requires a valid token.
func Register(e *echo.Echo, h *Handler, authn echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/login", h.login)
	g.GET("/me", h.me, authn)
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload dto.LoginRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := c.Validate(&payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.login")
	defer span.End()

	res, err := h.sessions.Login(ctx, payload.Name, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(res).Build()
}

func (h *Handler) me(c echo.Context) error {
	b := response.New(c)
	id, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return b.WithError(errorbank.Unauthenticated("no session")).Build()
	}
	return b.WithData(id).Build()
}
