package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/presentation/http/validation"
	"github.com/Additional-Code/procura/internal/service/session"
	"github.com/Additional-Code/procura/internal/testutil"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

type fakeSessions struct {
	issuer *auth.Issuer
}

func (f *fakeSessions) Login(_ context.Context, name, password string) (*session.Result, error) {
	if name != "admin" || password != "admin123" {
		return nil, errorbank.Unauthenticated("invalid credentials")
	}
	id := auth.Identity{UserID: 1, Name: name, Role: "admin"}
	token, err := f.issuer.Issue(id)
	if err != nil {
		return nil, err
	}
	return &session.Result{Token: token, User: id}, nil
}

func setup(t *testing.T) *echo.Echo {
	t.Helper()
	issuer := auth.NewIssuer(testutil.Config())
	e := echo.New()
	e.Validator = validation.New()
	Register(e, &Handler{sessions: &fakeSessions{issuer: issuer}}, auth.Middleware(issuer))
	return e
}

func serve(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginThenMe(t *testing.T) {
	e := setup(t)

	rec := serve(e, http.MethodPost, "/auth/login", `{"name":"admin","password":"admin123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Token string        `json:"token"`
			User  auth.Identity `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	assert.Equal(t, "admin", body.Data.User.Role)

	rec = serve(e, http.MethodGet, "/auth/me", "", body.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"admin"`)
}

func TestLogin_Failures(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/auth/login", `{"name":"admin"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/auth/login", `{"name":"admin","password":"x"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/auth/me", "", "").Code)
}
