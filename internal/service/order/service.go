package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/messaging"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
	orderrepo "github.com/Additional-Code/procura/internal/repository/order"
	"github.com/Additional-Code/procura/internal/service/settings"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

const instrumentation = "github.com/Additional-Code/procura/service/order"

var serviceTracer = otel.Tracer(instrumentation)

// Service owns creation, update and deletion of orders as atomic units.
type Service struct {
	db            *database.Connections
	orders        *orderrepo.Repository
	catalog       *catalogrepo.Repository
	settings      *settings.Provider
	cache         cache.Store
	cacheTTL      time.Duration
	logger        *zap.Logger
	publisher     messaging.Client
	messaging     messagingConfig
	approverRoles []string
	counters      counters
	now           func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

type counters struct {
	created  metric.Int64Counter
	approved metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	DB        *database.Connections
	Orders    *orderrepo.Repository
	Catalog   *catalogrepo.Repository
	Settings  *settings.Provider
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	meter := otel.Meter(instrumentation)
	created, err := meter.Int64Counter("orders.created", metric.WithDescription("Orders created"))
	if err != nil {
		return nil, fmt.Errorf("orders.created counter: %w", err)
	}
	approved, err := meter.Int64Counter("orders.approved", metric.WithDescription("Orders moved into approved"))
	if err != nil {
		return nil, fmt.Errorf("orders.approved counter: %w", err)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		db:            p.DB,
		orders:        p.Orders,
		catalog:       p.Catalog,
		settings:      p.Settings,
		cache:         p.Cache,
		cacheTTL:      p.Config.Cache.DefaultTTL,
		logger:        logger,
		publisher:     p.Publisher,
		approverRoles: p.Config.Auth.ApproverRoles,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		counters: counters{created: created, approved: approved},
		now:      time.Now,
	}, nil
}

// CreateInput is the payload of Create.
type CreateInput struct {
	OrderDate  time.Time
	SupplierID int64
	Lines      []DraftLine
}

// UpdateInput is the payload of Update. Lines must be non-nil but may be empty.
type UpdateInput struct {
	Status         string
	Lines          []LineChange
	DeletedLineIDs []int64
}

// UpdateResult reports what an update changed.
type UpdateResult struct {
	Status   entity.OrderStatus `json:"status"`
	Approved bool               `json:"approved"`
	ReconcileResult
}

// Stats is the per-status order breakdown.
type Stats struct {
	Pending     int64      `json:"pending"`
	Approved    int64      `json:"approved"`
	Voided      int64      `json:"voided"`
	Total       int64      `json:"total"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// Create validates in and persists a pending order with its lines and total.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int64("order.supplier_id", in.SupplierID)))
	defer span.End()

	if !actor.Valid() {
		return 0, errorbank.BadRequest("creator could not be resolved from the session")
	}
	var missing []string
	if in.OrderDate.IsZero() {
		missing = append(missing, "orderDate")
	}
	if in.SupplierID <= 0 {
		missing = append(missing, "supplierId")
	}
	if len(in.Lines) == 0 {
		missing = append(missing, "lines")
	}
	if len(missing) > 0 {
		return 0, errorbank.Validation("order date, supplier and at least one line are required", missing...)
	}

	lines := NormalizeLines(in.Lines)
	if len(lines) == 0 {
		return 0, errorbank.BadRequest("no valid lines", errorbank.WithDetails(map[string]any{
			"field":     "lines",
			"submitted": len(in.Lines),
		}))
	}

	now := s.now().UTC()
	order := &entity.Order{
		OrderDate:  in.OrderDate.UTC(),
		SupplierID: in.SupplierID,
		Status:     entity.StatusPending,
		CreatorID:  actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.orders.WithTx(tx)
		cat := s.catalog.WithTx(tx)

		snap, err := s.settings.Load(ctx, cat)
		if err != nil {
			return err
		}

		products, err := cat.Products(ctx, lo.Uniq(lo.Map(lines, func(l LineInput, _ int) int64 { return l.ProductID })))
		if err != nil {
			return err
		}
		known := lo.Filter(lines, func(l LineInput, _ int) bool {
			_, ok := products[l.ProductID]
			return ok
		})
		if len(known) == 0 {
			return errorbank.BadRequest("no line references a known product", errorbank.WithDetail("field", "lines"))
		}

		if _, err := cat.Supplier(ctx, in.SupplierID); err != nil {
			if errors.Is(err, catalogrepo.ErrSupplierNotFound) {
				return errorbank.BadRequest("supplier not found", errorbank.WithDetail("supplierId", in.SupplierID))
			}
			return err
		}

		if err := orders.Create(ctx, order); err != nil {
			return err
		}

		rows := lo.Map(known, func(l LineInput, _ int) *entity.OrderLine {
			return &entity.OrderLine{
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				UnitPrice:   currency.NewAmount(l.UnitPrice),
				CurrencyTag: products[l.ProductID].CurrencyTag,
			}
		})
		if err := orders.InsertLines(ctx, rows); err != nil {
			return err
		}

		rec := &reconciler{orders: orders, catalog: cat, conv: snap.Converter, now: now}
		total, _, err := rec.recompute(ctx, order.ID)
		if err != nil {
			return err
		}
		order.Total = total
		return nil
	})
	if err != nil {
		return 0, s.fail(span, err, "failed to create order")
	}

	s.counters.created.Add(ctx, 1)
	s.publish(ctx, EventCreated, order, actor)
	s.logger.Info("order created",
		zap.Int64("id", order.ID),
		zap.Int64("creator_id", actor.UserID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order.ID, nil
}

// Update reconciles the lines of order id and applies a status change in one transaction.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id int64, in UpdateInput) (*UpdateResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if !actor.Valid() {
		return nil, errorbank.BadRequest("actor could not be resolved from the session")
	}
	if in.Status == "" {
		return nil, errorbank.BadRequest("status is required", errorbank.WithDetail("field", "status"))
	}
	status, err := entity.ParseStatus(in.Status)
	if err != nil {
		return nil, errorbank.BadRequest("unknown status", errorbank.WithDetail("status", in.Status), errorbank.WithCause(err))
	}
	if in.Lines == nil {
		return nil, errorbank.BadRequest("lines are required", errorbank.WithDetail("field", "lines"))
	}

	now := s.now().UTC()
	var (
		order  *entity.Order
		result UpdateResult
	)
	err = s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.orders.WithTx(tx)
		cat := s.catalog.WithTx(tx)

		current, err := orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		order = current

		if status == entity.StatusApproved && !order.IsApproved() && !actor.HasRole(s.approverRoles) {
			return errorbank.Forbidden("role may not approve orders", errorbank.WithDetail("role", actor.Role))
		}

		snap, err := s.settings.Load(ctx, cat)
		if err != nil {
			return err
		}

		rec := &reconciler{orders: orders, catalog: cat, conv: snap.Converter, now: now}
		res, err := rec.Reconcile(ctx, id, in.Lines, in.DeletedLineIDs)
		if err != nil {
			return err
		}

		stamped, err := Apply(order, status, actor, now)
		if err != nil {
			return errorbank.BadRequest(err.Error(), errorbank.WithCause(err))
		}
		order.Total = res.Total
		order.UpdatedAt = now
		if err := orders.UpdateHeader(ctx, order, "status", "approver_id", "approved_at", "total"); err != nil {
			return err
		}

		result = UpdateResult{Status: order.Status, Approved: stamped, ReconcileResult: res}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err, "failed to update order")
	}

	s.invalidate(ctx, id)
	s.publish(ctx, EventUpdated, order, actor)
	if result.Approved {
		s.counters.approved.Add(ctx, 1)
		s.publish(ctx, EventApproved, order, actor)
	}
	return &result, nil
}

// Delete removes order id and all its lines.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var order *entity.Order
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.orders.WithTx(tx)

		current, err := orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		order = current

		n, err := orders.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return orderrepo.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return s.fail(span, err, "failed to delete order")
	}

	s.invalidate(ctx, id)
	s.publish(ctx, EventDeleted, order, actor)
	return nil
}

// DeleteLine removes a single line and recomputes the owning order's total.
func (s *Service) DeleteLine(ctx context.Context, actor auth.Identity, lineID int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.DeleteLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	var orderID int64
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.orders.WithTx(tx)
		cat := s.catalog.WithTx(tx)

		line, err := orders.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		orderID = line.OrderID

		if _, err := orders.DeleteLine(ctx, lineID); err != nil {
			return err
		}

		snap, err := s.settings.Load(ctx, cat)
		if err != nil {
			return err
		}
		rec := &reconciler{orders: orders, catalog: cat, conv: snap.Converter, now: s.now().UTC()}
		_, _, err = rec.recompute(ctx, orderID)
		return err
	})
	if err != nil {
		return s.fail(span, err, "failed to delete order line")
	}

	s.invalidate(ctx, orderID)
	s.logger.Info("order line deleted",
		zap.Int64("line_id", lineID),
		zap.Int64("order_id", orderID),
		zap.Int64("actor_id", actor.UserID),
	)
	return nil
}

// Get returns order id with supplier and resolved lines, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.orders.GetResolved(ctx, id)
	if err != nil {
		return nil, s.fail(span, err, "failed to load order")
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return order, nil
}

// List returns every order with its supplier.
func (s *Service) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, s.fail(span, err, "failed to list orders")
	}
	return orders, nil
}

// Lines returns the lines of order id. An order without lines is reported as not found.
func (s *Service) Lines(ctx context.Context, id int64) ([]*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Lines", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	lines, err := s.orders.Lines(ctx, id)
	if err != nil {
		return nil, s.fail(span, err, "failed to load order lines")
	}
	if len(lines) == 0 {
		return nil, errorbank.NotFound("order has no lines", errorbank.WithDetail("id", id))
	}
	return lines, nil
}

// Stats counts orders per status.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	rows, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return Stats{}, s.fail(span, err, "failed to count orders")
	}

	var stats Stats
	for _, row := range rows {
		stats.Total += row.Count
		status, err := entity.ParseStatus(string(row.Status))
		if err != nil {
			s.logger.Warn("order with unknown status", zap.String("status", string(row.Status)), zap.Int64("count", row.Count))
			continue
		}
		switch status {
		case entity.StatusPending:
			stats.Pending += row.Count
		case entity.StatusApproved:
			stats.Approved += row.Count
		case entity.StatusVoided:
			stats.Voided += row.Count
		}
	}

	last, err := s.orders.LastUpdated(ctx)
	if err != nil {
		return Stats{}, s.fail(span, err, "failed to count orders")
	}
	if !last.IsZero() {
		stats.LastUpdated = &last
	}
	return stats, nil
}

// ProductsBySupplier lists products a supplier offers, filtered by search.
func (s *Service) ProductsBySupplier(ctx context.Context, supplierID int64, search string) ([]*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ProductsBySupplier", trace.WithAttributes(attribute.Int64("supplier.id", supplierID)))
	defer span.End()

	if supplierID <= 0 {
		return nil, errorbank.BadRequest("invalid supplier id")
	}
	products, err := s.catalog.ProductsBySupplier(ctx, supplierID, search)
	if err != nil {
		return nil, s.fail(span, err, "failed to search products")
	}
	return products, nil
}

// fail classifies err into an AppError and records it on span.
func (s *Service) fail(span trace.Span, err error, msg string) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, orderrepo.ErrNotFound):
		appErr = errorbank.NotFound("order not found")
	case errors.Is(err, orderrepo.ErrLineNotFound):
		appErr = errorbank.NotFound("order line not found")
	default:
		appErr = errorbank.Persistence(msg, err)
		s.logger.Error(msg, zap.Error(err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, appErr.Message())
	return appErr
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}
