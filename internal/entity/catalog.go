package entity

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/procura/internal/currency"
)

// Product is a catalog entry offered by a supplier.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64           `bun:",pk,autoincrement" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Code        string          `bun:"code" json:"code"`
	UnitPrice   currency.Amount `bun:"unit_price,type:decimal(14,2),notnull" json:"unitPrice"`
	CurrencyTag string          `bun:"currency_tag,notnull" json:"currencyTag"`
	SupplierID  int64           `bun:"supplier_id,notnull" json:"supplierId"`
	Active      bool            `bun:"active,notnull" json:"active"`
}

// Supplier is an entry of the supplier directory.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:s"`

	ID   int64  `bun:",pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// User is an operator able to create and approve orders.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64  `bun:",pk,autoincrement" json:"id"`
	Name         string `bun:"name,notnull,unique" json:"name"`
	Email        string `bun:"email" json:"email"`
	Role         string `bun:"role,notnull" json:"role"`
	Status       string `bun:"status,notnull" json:"status"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`
}

// UserStatusActive marks users allowed to sign in.
const UserStatusActive = "active"

// SystemConfig holds company branding and the exchange rate used on invoices.
// ExchangeRate is expressed in base currency units per one foreign unit.
type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config,alias:sc"`

	ID           int64               `bun:",pk,autoincrement" json:"id"`
	CompanyName  string              `bun:"company_name" json:"companyName"`
	TaxID        string              `bun:"tax_id" json:"taxId"`
	Address      string              `bun:"address" json:"address"`
	Phone        string              `bun:"phone" json:"phone"`
	Email        string              `bun:"email" json:"email"`
	LogoPath     string              `bun:"logo_path" json:"logoPath"`
	ExchangeRate decimal.NullDecimal `bun:"exchange_rate,type:decimal(10,4)" json:"exchangeRate"`
}
