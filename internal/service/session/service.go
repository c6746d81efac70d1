package session

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/entity"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/procura/service/session")

// Service exchanges user credentials for access tokens.
type Service struct {
	users  *catalogrepo.Repository
	issuer *auth.Issuer
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Users  *catalogrepo.Repository
	Issuer *auth.Issuer
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: p.Users, issuer: p.Issuer, logger: logger}
}

// Result is a successful login.
type Result struct {
	auth.Token
	User auth.Identity `json:"user"`
}

// Login verifies name and password and issues a token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, name, password string) (*Result, error) {
	ctx, span := serviceTracer.Start(ctx, "SessionService.Login")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, errorbank.BadRequest("missing credentials")
	}

	user, err := s.users.UserByName(ctx, name)
	switch {
	case errors.Is(err, catalogrepo.ErrUserNotFound):
		return nil, errorbank.Unauthenticated("invalid credentials")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		s.logger.Error("user lookup failed", zap.Error(err))
		return nil, errorbank.Internal("failed to verify credentials", errorbank.WithCause(err))
	}

	if user.Status != entity.UserStatusActive {
		return nil, errorbank.Forbidden("account disabled")
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info("login rejected", zap.Int64("user_id", user.ID))
		return nil, errorbank.Unauthenticated("invalid credentials")
	}

	identity := auth.Identity{UserID: user.ID, Name: user.Name, Role: user.Role}
	token, err := s.issuer.Issue(identity)
	if err != nil {
		span.RecordError(err)
		return nil, errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}
	s.logger.Info("login succeeded", zap.Int64("user_id", user.ID))
	return &Result{Token: token, User: identity}, nil
}
