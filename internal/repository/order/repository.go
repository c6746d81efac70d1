package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrLineNotFound is returned when an order line is missing.
	ErrLineNotFound = errors.New("order line not found")
)

// Repository encapsulates read/write access for orders and their lines.
type Repository struct {
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// WithTx returns a copy whose reads and writes run inside tx.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{writer: tx, reader: tx}
}

// Create persists a new order header.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.Int64("order.supplier_id", order.SupplierID)))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(order).Exec(ctx); err != nil {
		fail(span, err, "insert failed")
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// InsertLines bulk inserts lines. An empty slice is a no-op.
func (r *Repository) InsertLines(ctx context.Context, lines []*entity.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertLines", trace.WithAttributes(attribute.Int("lines.count", len(lines))))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(&lines).Exec(ctx); err != nil {
		fail(span, err, "insert lines failed")
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

// GetByID fetches an order header by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}
	return order, nil
}

// GetResolved fetches an order together with its supplier and lines (with products).
func (r *Repository) GetResolved(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetResolved", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().
		Model(order).
		Relation("Supplier").
		Relation("Lines", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ol.id ASC")
		}).
		Relation("Lines.Product").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, fmt.Errorf("select resolved order %d: %w", id, err)
	}
	return order, nil
}

// List returns every order with its supplier, newest first.
func (r *Repository) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().
		Model(&orders).
		Relation("Supplier").
		Order("o.id DESC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateHeader writes the given columns of order, stamping updated_at.
func (r *Repository) UpdateHeader(ctx context.Context, order *entity.Order, columns ...string) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateHeader", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	columns = append(columns, "updated_at")
	res, err := r.writer.NewUpdate().Model(order).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		fail(span, err, "update failed")
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTotal stores a recomputed total on the order header.
func (r *Repository) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal, now time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetTotal", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("total = ?", total).
		Set("updated_at = ?", now).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		fail(span, err, "update total failed")
		return fmt.Errorf("update total of order %d: %w", orderID, err)
	}
	return nil
}

// Delete removes an order's lines and then its header, returning the number of headers removed.
// Callers run it inside a transaction.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("order_id = ?", id).Exec(ctx); err != nil {
		fail(span, err, "delete lines failed")
		return 0, fmt.Errorf("delete lines of order %d: %w", id, err)
	}
	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		fail(span, err, "delete header failed")
		return 0, fmt.Errorf("delete order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Lines returns the persisted lines of an order, with products resolved.
func (r *Repository) Lines(ctx context.Context, orderID int64) ([]*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Lines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var lines []*entity.OrderLine
	err := r.reader.NewSelect().
		Model(&lines).
		Relation("Product").
		Where("ol.order_id = ?", orderID).
		Order("ol.id ASC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select lines failed")
		return nil, fmt.Errorf("select lines of order %d: %w", orderID, err)
	}
	return lines, nil
}

// GetLine fetches a single line by id.
func (r *Repository) GetLine(ctx context.Context, lineID int64) (*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	line := new(entity.OrderLine)
	err := r.reader.NewSelect().Model(line).Where("ol.id = ?", lineID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		fail(span, err, "select line failed")
		return nil, fmt.Errorf("select line %d: %w", lineID, err)
	}
	return line, nil
}

// DeleteLines removes the listed lines that belong to orderID. Ids owned by
// other orders are left untouched.
func (r *Repository) DeleteLines(ctx context.Context, orderID int64, lineIDs []int64) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteLines", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int("lines.count", len(lineIDs)),
	))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.OrderLine)(nil)).
		Where("id IN (?)", bun.In(lineIDs)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		fail(span, err, "delete lines failed")
		return 0, fmt.Errorf("delete lines of order %d: %w", orderID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteLine removes one line by id regardless of its order.
func (r *Repository) DeleteLine(ctx context.Context, lineID int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("id = ?", lineID).Exec(ctx)
	if err != nil {
		fail(span, err, "delete line failed")
		return 0, fmt.Errorf("delete line %d: %w", lineID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpdateLine changes quantity (and product when productID is set) of a line
// owned by orderID. Price and currency snapshots are never touched.
func (r *Repository) UpdateLine(ctx context.Context, orderID, lineID, quantity int64, productID *int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateLine", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("line.id", lineID),
	))
	defer span.End()

	q := r.writer.NewUpdate().
		Model((*entity.OrderLine)(nil)).
		Set("quantity = ?", quantity)
	if productID != nil {
		q = q.Set("product_id = ?", *productID)
	}
	res, err := q.Where("id = ?", lineID).Where("order_id = ?", orderID).Exec(ctx)
	if err != nil {
		fail(span, err, "update line failed")
		return 0, fmt.Errorf("update line %d: %w", lineID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StatusCounts returns the number of orders per status.
func (r *Repository) StatusCounts(ctx context.Context) ([]entity.StatusCount, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.StatusCounts")
	defer span.End()

	var rows []entity.StatusCount
	err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr("o.status AS status").
		ColumnExpr("COUNT(*) AS count").
		Group("o.status").
		Scan(ctx, &rows)
	if err != nil {
		fail(span, err, "count failed")
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	return rows, nil
}

// LastUpdated returns the most recent update time across all orders, or the zero time.
func (r *Repository) LastUpdated(ctx context.Context) (time.Time, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.LastUpdated")
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Column("updated_at").Order("o.updated_at DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		fail(span, err, "select failed")
		return time.Time{}, fmt.Errorf("select last update: %w", err)
	}
	return order.UpdatedAt, nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
