package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/entity"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
)

// Module provides the settings Provider to Fx.
var Module = fx.Provide(NewProvider)

// Snapshot is the company configuration and exchange rate in force for one request.
type Snapshot struct {
	Company   entity.SystemConfig
	Converter currency.Converter
}

// Provider loads Snapshots from the system configuration table.
type Provider struct {
	pair        currency.Pair
	defaultRate decimal.Decimal
}

// NewProvider builds a Provider from the currency configuration.
func NewProvider(cfg config.Config) (*Provider, error) {
	pair, err := currency.NewPair(cfg.Currency.Base, cfg.Currency.BaseSymbol, cfg.Currency.Foreign, cfg.Currency.ForeignSymbol)
	if err != nil {
		return nil, err
	}
	return &Provider{pair: pair, defaultRate: cfg.Currency.DefaultRate}, nil
}

// Pair returns the configured currency pair.
func (p *Provider) Pair() currency.Pair {
	return p.pair
}

// Load reads the configuration through cat, which may be bound to a transaction.
// A missing row or a missing/zero rate falls back to the configured default rate;
// a negative stored rate is an error.
func (p *Provider) Load(ctx context.Context, cat *catalogrepo.Repository) (Snapshot, error) {
	var company entity.SystemConfig
	row, err := cat.SystemConfig(ctx)
	switch {
	case errors.Is(err, catalogrepo.ErrConfigNotFound):
	case err != nil:
		return Snapshot{}, err
	default:
		company = *row
	}

	rate := p.defaultRate
	if company.ExchangeRate.Valid && !company.ExchangeRate.Decimal.IsZero() {
		rate = company.ExchangeRate.Decimal
	}
	conv, err := currency.NewConverter(rate, p.pair)
	if err != nil {
		return Snapshot{}, fmt.Errorf("system config exchange rate: %w", err)
	}
	return Snapshot{Company: company, Converter: conv}, nil
}
