package order

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/invoice"
	"github.com/Additional-Code/procura/internal/messaging"
	invoicesvc "github.com/Additional-Code/procura/internal/service/invoice"
	ordersvc "github.com/Additional-Code/procura/internal/service/order"
	"github.com/Additional-Code/procura/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/procura/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		func(svc *invoicesvc.Service) InvoiceRenderer { return svc },
		NewEventHandler,
		fx.Annotate(
			NewRegistration,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// InvoiceRenderer is the subset of the invoice service used for archiving.
type InvoiceRenderer interface {
	Prepare(ctx context.Context, id int64) (*invoice.Document, error)
	Render(ctx context.Context, doc *invoice.Document, sink *invoice.Sink) (invoice.Summary, error)
}

// EventHandler logs order events and archives the invoice of approved orders.
type EventHandler struct {
	logger     *zap.Logger
	invoices   InvoiceRenderer
	archiveDir string
}

// NewEventHandler builds an EventHandler.
func NewEventHandler(logger *zap.Logger, cfg config.Config, invoices InvoiceRenderer) *EventHandler {
	return &EventHandler{logger: logger, invoices: invoices, archiveDir: cfg.Invoice.ArchiveDir}
}

// NewRegistration binds the handler to the orders topic.
func NewRegistration(cfg config.Config, h *EventHandler) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: h.Handle,
	}
}

// Handle processes one order event. Malformed payloads are rejected so the
// engine does not commit them.
func (h *EventHandler) Handle(ctx context.Context, msg messaging.Message) error {
	ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
		attribute.String("messaging.topic", msg.Topic),
	))
	defer span.End()

	var event ordersvc.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to decode order event", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode error")
		return err
	}
	span.SetAttributes(attribute.String("order.event", event.Type), attribute.Int64("order.id", event.OrderID))

	h.logger.Info("order event processed",
		zap.String("type", event.Type),
		zap.Int64("id", event.OrderID),
		zap.String("status", event.Status.String()),
		zap.String("total", event.Total),
		zap.Int64("actor_id", event.ActorID),
	)

	if event.Type != ordersvc.EventApproved || h.archiveDir == "" {
		return nil
	}
	if err := h.archive(ctx, event.OrderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive failed")
		h.logger.Error("invoice archive failed", zap.Int64("id", event.OrderID), zap.Error(err))
		return err
	}
	return nil
}

func (h *EventHandler) archive(ctx context.Context, orderID int64) error {
	doc, err := h.invoices.Prepare(ctx, orderID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(h.archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(h.archiveDir, doc.Filename())
	tmp, err := os.CreateTemp(h.archiveDir, doc.Filename()+".*.tmp")
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	summary, err := h.invoices.Render(ctx, doc, invoice.NewSink(tmp, nil))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish archive file: %w", err)
	}

	h.logger.Info("invoice archived", zap.Int64("id", orderID), zap.String("path", path), zap.Int("pages", summary.Pages))
	return nil
}
