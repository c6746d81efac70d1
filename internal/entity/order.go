package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/procura/internal/currency"
)

// Order represents a purchase order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64           `bun:",pk,autoincrement" json:"id"`
	OrderDate  time.Time       `bun:"order_date,notnull" json:"orderDate"`
	SupplierID int64           `bun:"supplier_id,notnull" json:"supplierId"`
	Status     OrderStatus     `bun:"status,notnull" json:"status"`
	CreatorID  int64           `bun:"creator_id,notnull" json:"creatorId"`
	ApproverID *int64          `bun:"approver_id" json:"approverId,omitempty"`
	ApprovedAt *time.Time      `bun:"approved_at" json:"approvedAt,omitempty"`
	Total      decimal.Decimal `bun:"total,type:decimal(14,2),notnull" json:"total"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Supplier *Supplier    `bun:"rel:belongs-to,join:supplier_id=id" json:"supplier,omitempty"`
	Lines    []*OrderLine `bun:"rel:has-many,join:id=order_id" json:"lines,omitempty"`
}

// IsApproved reports whether the order carries the approved status.
func (o *Order) IsApproved() bool {
	return o != nil && o.Status == StatusApproved
}

// OrderLine is one product entry of an order. UnitPrice and CurrencyTag are
// snapshots taken when the line was created.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	ID          int64           `bun:",pk,autoincrement" json:"id"`
	OrderID     int64           `bun:"order_id,notnull" json:"orderId"`
	ProductID   int64           `bun:"product_id,notnull" json:"productId"`
	Quantity    int64           `bun:"quantity,notnull" json:"quantity"`
	UnitPrice   currency.Amount `bun:"unit_price,type:decimal(14,2),notnull" json:"unitPrice"`
	CurrencyTag string          `bun:"currency_tag,notnull" json:"currencyTag"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
}

// StatusCount is one row of the per-status order breakdown.
type StatusCount struct {
	Status OrderStatus `bun:"status"`
	Count  int64       `bun:"count"`
}
