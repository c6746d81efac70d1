// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

// Models lists every table in creation order.
var Models = []any{
	(*entity.Supplier)(nil),
	(*entity.Product)(nil),
	(*entity.User)(nil),
	(*entity.SystemConfig)(nil),
	(*entity.Order)(nil),
	(*entity.OrderLine)(nil),
}

// NewSQLite opens a private in-memory database with the full schema.
func NewSQLite(t testing.TB) *database.Connections {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range Models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return &database.Connections{Writer: db, Reader: db}
}

// Config returns a configuration suitable for tests: noop cache and messaging,
// NIO/USD pair with a 36.6 default rate.
func Config() config.Config {
	var cfg config.Config
	cfg.Cache.Driver = "noop"
	cfg.Cache.DefaultTTL = time.Minute
	cfg.Messaging.Driver = "noop"
	cfg.Database.Driver = "sqlite"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.Issuer = "procura-test"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Currency = config.Currency{
		Base:          "NIO",
		BaseSymbol:    "C$",
		Foreign:       "USD",
		ForeignSymbol: "$",
		DefaultRate:   decimal.RequireFromString("36.6"),
	}
	cfg.Invoice.UploadsDir = "testdata"
	return cfg
}

// Fixtures inserts catalog rows with random but valid values.
type Fixtures struct {
	t  testing.TB
	db bun.IDB
}

// NewFixtures returns a fixture builder writing through conns.
func NewFixtures(t testing.TB, conns *database.Connections) *Fixtures {
	return &Fixtures{t: t, db: conns.Writer}
}

func (f *Fixtures) insert(model any) {
	f.t.Helper()
	_, err := f.db.NewInsert().Model(model).Exec(context.Background())
	require.NoError(f.t, err)
}

// Supplier inserts a supplier.
func (f *Fixtures) Supplier() *entity.Supplier {
	s := &entity.Supplier{Name: gofakeit.Company()}
	f.insert(s)
	return s
}

// Product inserts an active product of supplierID priced at price in currency tag.
func (f *Fixtures) Product(supplierID int64, price, tag string) *entity.Product {
	p := &entity.Product{
		Name:        gofakeit.ProductName(),
		Code:        gofakeit.Numerify("SKU-#####"),
		UnitPrice:   currency.NewAmount(decimal.RequireFromString(price)),
		CurrencyTag: tag,
		SupplierID:  supplierID,
		Active:      true,
	}
	f.insert(p)
	return p
}

// User inserts an active user with role and the given bcrypt hash.
func (f *Fixtures) User(role, passwordHash string) *entity.User {
	u := &entity.User{
		Name:         gofakeit.Username() + gofakeit.Numerify("###"),
		Email:        gofakeit.Email(),
		Role:         role,
		Status:       entity.UserStatusActive,
		PasswordHash: passwordHash,
	}
	f.insert(u)
	return u
}

// SystemConfig inserts the configuration row. An empty rate leaves it NULL.
func (f *Fixtures) SystemConfig(rate string) *entity.SystemConfig {
	c := &entity.SystemConfig{
		CompanyName: gofakeit.Company(),
		TaxID:       gofakeit.Numerify("J##########"),
		Address:     gofakeit.Street(),
		Phone:       gofakeit.Phone(),
		Email:       gofakeit.Email(),
	}
	if rate != "" {
		c.ExchangeRate = decimal.NewNullDecimal(decimal.RequireFromString(rate))
	}
	f.insert(c)
	return c
}
