package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/entity"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
	"github.com/Additional-Code/procura/internal/testutil"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

func TestLogin(t *testing.T) {
	conns := testutil.NewSQLite(t)
	fx := testutil.NewFixtures(t, conns)
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	active := fx.User("admin", hash)
	disabled := fx.User("buyer", hash)
	_, err = conns.Writer.NewUpdate().Model((*entity.User)(nil)).
		Set("status = ?", "inactive").
		Where("id = ?", disabled.ID).
		Exec(context.Background())
	require.NoError(t, err)

	issuer := auth.NewIssuer(testutil.Config())
	svc := NewService(Params{Users: catalogrepo.NewRepository(conns), Issuer: issuer, Logger: zaptest.NewLogger(t)})

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(t.Context(), active.Name, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, active.ID, res.User.UserID)

		id, err := issuer.Parse(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", id.Role)
	})

	tests := []struct {
		name     string
		user     string
		password string
		kind     errorbank.Kind
	}{
		{name: "missing password", user: active.Name, kind: errorbank.KindBadRequest},
		{name: "missing name", user: "  ", password: "s3cret", kind: errorbank.KindBadRequest},
		{name: "unknown user", user: "ghost", password: "s3cret", kind: errorbank.KindUnauthenticated},
		{name: "wrong password", user: active.Name, password: "nope", kind: errorbank.KindUnauthenticated},
		{name: "disabled account", user: disabled.Name, password: "s3cret", kind: errorbank.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(t.Context(), tt.user, tt.password)
			require.Error(t, err)
			assert.True(t, errorbank.IsKind(err, tt.kind), err.Error())
		})
	}
}
