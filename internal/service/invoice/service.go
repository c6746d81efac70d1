package invoice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/invoice"
	catalogrepo "github.com/Additional-Code/procura/internal/repository/catalog"
	orderrepo "github.com/Additional-Code/procura/internal/repository/order"
	"github.com/Additional-Code/procura/internal/service/settings"
	"github.com/Additional-Code/procura/internal/storage"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

const instrumentation = "github.com/Additional-Code/procura/service/invoice"

var serviceTracer = otel.Tracer(instrumentation)

// ErrOutputStarted marks failures that happened after document bytes reached the client.
var ErrOutputStarted = errors.New("invoice output already started")

// AssetLoader resolves stored asset references.
type AssetLoader interface {
	Load(ctx context.Context, ref string) (*storage.Asset, error)
}

// Service resolves orders into invoice documents and renders them.
type Service struct {
	orders   *orderrepo.Repository
	catalog  *catalogrepo.Repository
	settings *settings.Provider
	assets   AssetLoader
	renderer *invoice.Renderer
	logger   *zap.Logger
	rendered metric.Int64Counter
	title    cases.Caser
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders   *orderrepo.Repository
	Catalog  *catalogrepo.Repository
	Settings *settings.Provider
	Assets   *storage.Loader
	Logger   *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	rendered, err := otel.Meter(instrumentation).Int64Counter("invoices.rendered", metric.WithDescription("Invoice documents rendered"))
	if err != nil {
		return nil, fmt.Errorf("invoices.rendered counter: %w", err)
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var assets AssetLoader
	if p.Assets != nil {
		assets = p.Assets
	}
	return &Service{
		orders:   p.Orders,
		catalog:  p.Catalog,
		settings: p.Settings,
		assets:   assets,
		renderer: invoice.NewRenderer(invoice.DefaultLayout()),
		logger:   logger,
		rendered: rendered,
		title:    cases.Title(language.English),
	}, nil
}

// Prepare loads order id with everything printed on its invoice.
func (s *Service) Prepare(ctx context.Context, id int64) (*invoice.Document, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Prepare", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.orders.GetResolved(ctx, id)
	if err != nil {
		return nil, s.fail(span, err, "failed to load order")
	}
	snapshot, err := s.settings.Load(ctx, s.catalog)
	if err != nil {
		return nil, s.fail(span, err, "failed to load system configuration")
	}

	doc := &invoice.Document{
		OrderID:     order.ID,
		OrderDate:   order.OrderDate,
		Status:      s.title.String(string(order.Status)),
		Responsible: s.responsible(ctx, order),
		Company: invoice.Company{
			Name:    snapshot.Company.CompanyName,
			TaxID:   snapshot.Company.TaxID,
			Address: snapshot.Company.Address,
			Phone:   snapshot.Company.Phone,
			Email:   snapshot.Company.Email,
		},
		Logo:      s.logo(ctx, snapshot.Company.LogoPath),
		Converter: snapshot.Converter,
		Lines:     make([]invoice.Line, 0, len(order.Lines)),
	}
	if order.Supplier != nil {
		doc.Supplier = order.Supplier.Name
	}
	for _, line := range order.Lines {
		printed := invoice.Line{
			Description: "Product #" + strconv.FormatInt(line.ProductID, 10),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Decimal,
			CurrencyTag: line.CurrencyTag,
		}
		if line.Product != nil {
			printed.Code = line.Product.Code
			printed.Description = line.Product.Name
		}
		doc.Lines = append(doc.Lines, printed)
	}
	return doc, nil
}

// Render lays doc out and streams it into sink. Layout failures surface
// before any byte is written; write failures after that wrap ErrOutputStarted.
func (s *Service) Render(ctx context.Context, doc *invoice.Document, sink *invoice.Sink) (invoice.Summary, error) {
	ctx, span := serviceTracer.Start(ctx, "InvoiceService.Render", trace.WithAttributes(attribute.Int64("order.id", doc.OrderID)))
	defer span.End()

	canvas := invoice.NewPDFCanvas()
	summary, err := s.renderer.Render(*doc, canvas)
	if err != nil {
		return invoice.Summary{}, s.fail(span, err, "failed to lay out invoice")
	}
	for _, warning := range summary.Warnings {
		s.logger.Warn("invoice rendered with warning", zap.Int64("order_id", doc.OrderID), zap.String("warning", warning))
	}

	if err := canvas.Output(sink); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice output failed")
		if sink.Started() {
			s.logger.Error("invoice stream interrupted",
				zap.Int64("order_id", doc.OrderID),
				zap.Int64("bytes_written", sink.Written()),
				zap.Error(err),
			)
			return summary, fmt.Errorf("%w: %w", ErrOutputStarted, err)
		}
		return invoice.Summary{}, s.fail(span, err, "failed to write invoice")
	}

	s.rendered.Add(ctx, 1)
	span.SetAttributes(attribute.Int("invoice.pages", summary.Pages), attribute.Int("invoice.rows", summary.Rows))
	s.logger.Info("invoice rendered",
		zap.Int64("order_id", doc.OrderID),
		zap.Int("pages", summary.Pages),
		zap.String("total", summary.TotalBase.StringFixed(2)),
	)
	return summary, nil
}

// responsible names the approver of an approved order, otherwise its creator.
// An approval stamp left on a pending or voided order is history only.
func (s *Service) responsible(ctx context.Context, order *entity.Order) string {
	userID := order.CreatorID
	if order.IsApproved() && order.ApproverID != nil {
		userID = *order.ApproverID
	}
	if userID == 0 {
		return ""
	}
	user, err := s.catalog.User(ctx, userID)
	if err != nil {
		s.logger.Warn("invoice responsible user unresolved", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}
	return user.Name
}

func (s *Service) logo(ctx context.Context, ref string) *invoice.Logo {
	if ref == "" || s.assets == nil {
		return nil
	}
	asset, err := s.assets.Load(ctx, ref)
	if err != nil {
		s.logger.Warn("company logo unavailable", zap.String("ref", ref), zap.Error(err))
		return nil
	}
	return &invoice.Logo{Data: asset.Data, MIME: asset.MIME}
}

func (s *Service) fail(span trace.Span, err error, msg string) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, orderrepo.ErrNotFound):
		appErr = errorbank.NotFound("order not found")
	default:
		appErr = errorbank.Persistence(msg, err)
		s.logger.Error(msg, zap.Error(err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, appErr.Message())
	return appErr
}
