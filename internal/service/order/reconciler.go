package order

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/entity"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
	orderrepo "github.com/Additional-Code/procura/internal/repository/order"
)

// LineChange is one entry of the desired line set on update. A positive
// LineID targets an existing line; otherwise a new line is added for ProductID.
type LineChange struct {
	LineID    int64
	ProductID int64
	Quantity  int64
}

// ReconcileResult summarises a reconciliation.
type ReconcileResult struct {
	Deleted   int64           `json:"deleted"`
	Updated   int             `json:"updated"`
	Inserted  int             `json:"inserted"`
	Skipped   int             `json:"skipped"`
	LineCount int             `json:"lineCount"`
	Total     decimal.Decimal `json:"total"`
}

// reconciler applies a desired line set to one order. Both repositories must
// be bound to the same transaction.
type reconciler struct {
	orders  *orderrepo.Repository
	catalog *catalogrepo.Repository
	conv    currency.Converter
	now     time.Time
}

func (r *reconciler) Reconcile(ctx context.Context, orderID int64, changes []LineChange, deleteIDs []int64) (ReconcileResult, error) {
	var res ReconcileResult

	ids := lo.Uniq(lo.Filter(deleteIDs, func(id int64, _ int) bool { return id > 0 }))
	deleted, err := r.orders.DeleteLines(ctx, orderID, ids)
	if err != nil {
		return res, err
	}
	res.Deleted = deleted

	var inserts []*entity.OrderLine
	for _, change := range changes {
		if change.LineID > 0 {
			ok, err := r.updateInPlace(ctx, orderID, change)
			if err != nil {
				return res, err
			}
			if ok {
				res.Updated++
			} else {
				res.Skipped++
			}
			continue
		}

		line, err := r.lookupNew(ctx, orderID, change)
		if err != nil {
			return res, err
		}
		if line == nil {
			res.Skipped++
			continue
		}
		inserts = append(inserts, line)
	}
	if err := r.orders.InsertLines(ctx, inserts); err != nil {
		return res, err
	}
	res.Inserted = len(inserts)

	total, count, err := r.recompute(ctx, orderID)
	if err != nil {
		return res, err
	}
	res.Total = total
	res.LineCount = count
	return res, nil
}

// updateInPlace changes quantity and optionally product of an existing line.
// The price and currency snapshot stay as they were.
func (r *reconciler) updateInPlace(ctx context.Context, orderID int64, change LineChange) (bool, error) {
	if change.Quantity <= 0 {
		return false, nil
	}
	var productID *int64
	if change.ProductID > 0 {
		if _, err := r.catalog.Product(ctx, change.ProductID); err != nil {
			if errors.Is(err, catalogrepo.ErrProductNotFound) {
				return false, nil
			}
			return false, err
		}
		productID = &change.ProductID
	}
	n, err := r.orders.UpdateLine(ctx, orderID, change.LineID, change.Quantity, productID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// lookupNew builds a line priced from the current catalog. It returns nil
// when the product cannot be resolved.
func (r *reconciler) lookupNew(ctx context.Context, orderID int64, change LineChange) (*entity.OrderLine, error) {
	if change.ProductID <= 0 || change.Quantity <= 0 {
		return nil, nil
	}
	product, err := r.catalog.Product(ctx, change.ProductID)
	if errors.Is(err, catalogrepo.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity.OrderLine{
		OrderID:     orderID,
		ProductID:   product.ID,
		Quantity:    change.Quantity,
		UnitPrice:   product.UnitPrice,
		CurrencyTag: product.CurrencyTag,
	}, nil
}

func (r *reconciler) recompute(ctx context.Context, orderID int64) (decimal.Decimal, int, error) {
	lines, err := r.orders.Lines(ctx, orderID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	total := TotalOf(lines, r.conv)
	if err := r.orders.SetTotal(ctx, orderID, total, r.now); err != nil {
		return decimal.Zero, 0, err
	}
	return total, len(lines), nil
}

// TotalOf sums quantity x base-currency unit price over lines, rounded to cents.
func TotalOf(lines []*entity.OrderLine, conv currency.Converter) decimal.Decimal {
	total := lo.Reduce(lines, func(acc decimal.Decimal, l *entity.OrderLine, _ int) decimal.Decimal {
		return acc.Add(conv.LineTotal(l.Quantity, l.UnitPrice.Decimal, l.CurrencyTag))
	}, decimal.Zero)
	return total.Round(2)
}
