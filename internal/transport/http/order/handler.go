package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/invoice"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	invoicesvc "github.com/Additional-Code/procura/internal/service/invoice"
	service "github.com/Additional-Code/procura/internal/service/order"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/order")

// OrderService is the order behaviour the handler depends on.
type OrderService interface {
	Create(ctx context.Context, actor auth.Identity, in service.CreateInput) (int64, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in service.UpdateInput) (*service.UpdateResult, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
	DeleteLine(ctx context.Context, actor auth.Identity, lineID int64) error
	Get(ctx context.Context, id int64) (*entity.Order, error)
	List(ctx context.Context) ([]*entity.Order, error)
	Lines(ctx context.Context, id int64) ([]*entity.OrderLine, error)
	Stats(ctx context.Context) (service.Stats, error)
	ProductsBySupplier(ctx context.Context, supplierID int64, search string) ([]*entity.Product, error)
}

// InvoiceService renders order documents.
type InvoiceService interface {
	Prepare(ctx context.Context, id int64) (*invoice.Document, error)
	Render(ctx context.Context, doc *invoice.Document, sink *invoice.Sink) (invoice.Summary, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	orders   OrderService
	invoices InvoiceService
	logger   *zap.Logger
}

// Params defines dependencies for constructing Handler.
type Params struct {
	fx.In

	Orders   *service.Service
	Invoices *invoicesvc.Service
	Logger   *zap.Logger
}

// NewHandler constructs an order Handler.
func NewHandler(p Params) *Handler {
	return newHandler(p.Orders, p.Invoices, p.Logger)
}

func newHandler(orders OrderService, invoices InvoiceService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orders: orders, invoices: invoices, logger: logger}
}

// Register routes on e behind the authentication middleware.
func Register(e *echo.Echo, h *Handler, authn echo.MiddlewareFunc) {
	g := e.Group("/orders", authn)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/stats", h.stats)
	g.GET("/products/supplier/:id", h.productsBySupplier)
	g.DELETE("/lines/:lineId", h.deleteLine)
	g.GET("/:id", h.getByID)
	g.GET("/:id/lines", h.lines)
	g.GET("/:id/pdf", h.pdf)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.orders.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponses(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) lines(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.lines", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	lines, err := h.orders.Lines(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderLineResponses(lines)).Build()
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.stats")
	defer span.End()

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(stats).Build()
}

func (h *Handler) productsBySupplier(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.productsBySupplier", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	products, err := h.orders.ProductsBySupplier(ctx, id, c.QueryParam("search"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewProductResponses(products)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := bindAndValidate(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	orderDate, err := time.Parse(time.DateOnly, payload.OrderDate)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid orderDate", errorbank.WithCause(err))).Build()
	}
	supplierID := payload.SupplierID.Int64()
	if supplierID <= 0 {
		return b.WithError(errorbank.BadRequest("invalid supplierId", errorbank.WithDetail("supplierId", payload.SupplierID.String()))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.Int64("order.supplier_id", supplierID),
		attribute.Int("order.lines", len(payload.Lines)),
	))
	defer span.End()

	id, err := h.orders.Create(ctx, actor(ctx), service.CreateInput{
		OrderDate:  orderDate,
		SupplierID: supplierID,
		Lines: lo.Map(payload.Lines, func(l dto.DraftLineRequest, _ int) service.DraftLine {
			return service.DraftLine{ProductID: l.ProductID.String(), Quantity: l.Quantity.String(), UnitPrice: l.UnitPrice.String()}
		}),
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.CreatedResponse{ID: id}).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.UpdateOrderRequest
	if err := bindAndValidate(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	changes, err := lineChanges(payload.Lines)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	result, err := h.orders.Update(ctx, actor(ctx), id, service.UpdateInput{
		Status:         payload.Status,
		Lines:          changes,
		DeletedLineIDs: payload.DeletedLineIDs,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(result).Build()
}

// lineChanges maps submitted lines. A blank or zero lineId adds a line; any
// other lineId must name an existing line by a positive whole number.
func lineChanges(lines []dto.LineChangeRequest) ([]service.LineChange, error) {
	var invalid []string
	changes := make([]service.LineChange, 0, len(lines))
	for i, l := range lines {
		var lineID int64
		if !l.LineID.IsBlank() {
			id, ok := l.LineID.Whole()
			if !ok || id < 0 {
				invalid = append(invalid, fmt.Sprintf("lines[%d].lineId", i))
				continue
			}
			lineID = id
		}
		changes = append(changes, service.LineChange{LineID: lineID, ProductID: l.ProductID.Int64(), Quantity: l.Quantity.Int64()})
	}
	if len(invalid) > 0 {
		return nil, errorbank.Validation("invalid lineId", invalid...)
	}
	return changes, nil
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.orders.Delete(ctx, actor(ctx), id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"id": id}).Build()
}

func (h *Handler) deleteLine(c echo.Context) error {
	b := response.New(c)

	lineID, err := pathID(c, "lineId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.deleteLine", trace.WithAttributes(attribute.Int64("order_line.id", lineID)))
	defer span.End()

	if err := h.orders.DeleteLine(ctx, actor(ctx), lineID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"id": lineID}).Build()
}

// pdf streams the invoice. Errors before the first byte produce a JSON
// error; once bytes are out the response is committed and failures are only logged.
func (h *Handler) pdf(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.pdf", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	doc, err := h.invoices.Prepare(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	res := c.Response()
	sink := invoice.NewSink(res, func() {
		res.Header().Set(echo.HeaderContentType, "application/pdf")
		res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.Filename()+`"`)
		res.WriteHeader(http.StatusOK)
	})
	if _, err := h.invoices.Render(ctx, doc, sink); err != nil {
		if sink.Started() || errors.Is(err, invoicesvc.ErrOutputStarted) {
			h.logger.Error("invoice response truncated", zap.Int64("order_id", id), zap.Error(err))
			return nil
		}
		return b.WithError(err).Build()
	}
	return nil
}

func bindAndValidate(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	return c.Validate(payload)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithDetail(name, c.Param(name)))
	}
	return id, nil
}

func actor(ctx context.Context) auth.Identity {
	id, _ := auth.FromContext(ctx)
	return id
}
