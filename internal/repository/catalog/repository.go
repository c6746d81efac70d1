package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/catalog")

var (
	// ErrProductNotFound is returned when a product id does not resolve.
	ErrProductNotFound = errors.New("product not found")
	// ErrSupplierNotFound is returned when a supplier id does not resolve.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")
	// ErrConfigNotFound is returned when no system configuration row exists.
	ErrConfigNotFound = errors.New("system configuration not found")
)

// Repository gives read access to products, suppliers, users and system configuration.
type Repository struct {
	db bun.IDB
}

// NewRepository wires a catalog repository on the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{db: conns.Reader}
}

// WithTx returns a copy that reads through tx.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx}
}

// Product resolves a product by id.
func (r *Repository) Product(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Product", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.db.NewSelect().Model(product).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("select product %d: %w", id, err)
	}
	return product, nil
}

// Products resolves the given ids, keyed by id. Unknown ids are absent from the result.
func (r *Repository) Products(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Products", trace.WithAttributes(attribute.Int("product.count", len(ids))))
	defer span.End()

	var products []*entity.Product
	if err := r.db.NewSelect().Model(&products).Where("p.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		fail(span, err)
		return nil, fmt.Errorf("select products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ProductsBySupplier lists active products of a supplier, optionally filtered by
// a case-insensitive match on name or code.
func (r *Repository) ProductsBySupplier(ctx context.Context, supplierID int64, search string) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ProductsBySupplier", trace.WithAttributes(attribute.Int64("supplier.id", supplierID)))
	defer span.End()

	var products []*entity.Product
	q := r.db.NewSelect().
		Model(&products).
		Where("p.supplier_id = ?", supplierID).
		Where("p.active = ?", true)
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		like := "%" + term + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(p.name) LIKE ?", like).WhereOr("LOWER(p.code) LIKE ?", like)
		})
	}
	if err := q.Order("p.name ASC").Limit(50).Scan(ctx); err != nil {
		fail(span, err)
		return nil, fmt.Errorf("search products of supplier %d: %w", supplierID, err)
	}
	return products, nil
}

// Supplier resolves a supplier by id.
func (r *Repository) Supplier(ctx context.Context, id int64) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Supplier", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier := new(entity.Supplier)
	err := r.db.NewSelect().Model(supplier).Where("s.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSupplierNotFound
	}
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("select supplier %d: %w", id, err)
	}
	return supplier, nil
}

// User resolves a user by id.
func (r *Repository) User(ctx context.Context, id int64) (*entity.User, error) {
	return r.user(ctx, "u.id = ?", id)
}

// UserByName resolves a user by login name.
func (r *Repository) UserByName(ctx context.Context, name string) (*entity.User, error) {
	return r.user(ctx, "u.name = ?", name)
}

func (r *Repository) user(ctx context.Context, where string, arg any) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.User")
	defer span.End()

	user := new(entity.User)
	err := r.db.NewSelect().Model(user).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// SystemConfig returns the single system configuration row.
func (r *Repository) SystemConfig(ctx context.Context) (*entity.SystemConfig, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.SystemConfig")
	defer span.End()

	cfg := new(entity.SystemConfig)
	err := r.db.NewSelect().Model(cfg).Order("sc.id ASC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("select system config: %w", err)
	}
	return cfg, nil
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "select failed")
}
