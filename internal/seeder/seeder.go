package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

// Module provides the seeder to CLI commands.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	cfg    config.Config
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, cfg: cfg, logger: logger}
}

type sampleProduct struct {
	code  string
	name  string
	price string
	tag   string
}

var samples = map[string][]sampleProduct{
	"Distribuidora Central": {
		{code: "PAP-001", name: "Resma papel carta", price: "185.00", tag: "base"},
		{code: "TON-014", name: "Toner laser negro", price: "62.50", tag: "foreign"},
	},
	"Ferreteria El Progreso": {
		{code: "CEM-042", name: "Cemento gris 42.5kg", price: "390.00", tag: "base"},
		{code: "TAL-003", name: "Taladro percutor", price: "89.99", tag: "foreign"},
	},
}

// All runs every seed step in one transaction. Each step skips rows that already exist.
func (s *Seeder) All(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.settings(ctx, tx); err != nil {
			return err
		}
		if err := s.admin(ctx, tx); err != nil {
			return err
		}
		return s.catalog(ctx, tx)
	})
}

func (s *Seeder) settings(ctx context.Context, tx bun.Tx) error {
	exists, err := tx.NewSelect().Model((*entity.SystemConfig)(nil)).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check system config: %w", err)
	}
	if exists {
		return nil
	}

	row := &entity.SystemConfig{
		CompanyName:  "Procura S.A.",
		TaxID:        "J0310000000001",
		Address:      "Managua, Nicaragua",
		Phone:        "+505 2222 0000",
		Email:        "compras@procura.local",
		ExchangeRate: decimal.NewNullDecimal(s.cfg.Currency.DefaultRate),
	}
	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert system config: %w", err)
	}
	s.logger.Info("seeded system config", zap.String("rate", s.cfg.Currency.DefaultRate.String()))
	return nil
}

func (s *Seeder) admin(ctx context.Context, tx bun.Tx) error {
	name := s.cfg.Seed.AdminName
	exists, err := tx.NewSelect().Model((*entity.User)(nil)).Where("name = ?", name).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(s.cfg.Seed.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := &entity.User{
		Name:         name,
		Email:        name + "@procura.local",
		Role:         "admin",
		Status:       entity.UserStatusActive,
		PasswordHash: hash,
	}
	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	s.logger.Info("seeded admin user", zap.String("name", name))
	return nil
}

func (s *Seeder) catalog(ctx context.Context, tx bun.Tx) error {
	created := 0
	for supplierName, products := range samples {
		supplier := new(entity.Supplier)
		err := tx.NewSelect().Model(supplier).Where("name = ?", supplierName).Limit(1).Scan(ctx)
		if err != nil {
			supplier = &entity.Supplier{Name: supplierName}
			if _, err := tx.NewInsert().Model(supplier).Exec(ctx); err != nil {
				return fmt.Errorf("insert supplier %s: %w", supplierName, err)
			}
		}

		for _, sample := range products {
			exists, err := tx.NewSelect().Model((*entity.Product)(nil)).
				Where("code = ?", sample.code).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("check product %s: %w", sample.code, err)
			}
			if exists {
				continue
			}

			product := &entity.Product{
				Name:        sample.name,
				Code:        sample.code,
				UnitPrice:   currency.NewAmount(decimal.RequireFromString(sample.price)),
				CurrencyTag: s.tag(sample.tag),
				SupplierID:  supplier.ID,
				Active:      true,
			}
			if _, err := tx.NewInsert().Model(product).Exec(ctx); err != nil {
				return fmt.Errorf("insert product %s: %w", sample.code, err)
			}
			created++
		}
	}

	s.logger.Info("seeded catalog", zap.Int("products", created))
	return nil
}

func (s *Seeder) tag(side string) string {
	if side == "foreign" {
		return s.cfg.Currency.ForeignSymbol
	}
	return s.cfg.Currency.BaseSymbol
}
