package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/invoice"
	"github.com/Additional-Code/procura/internal/messaging"
	ordersvc "github.com/Additional-Code/procura/internal/service/order"
)

type fakeInvoices struct {
	prepared []int64
	err      error
}

func (f *fakeInvoices) Prepare(_ context.Context, id int64) (*invoice.Document, error) {
	f.prepared = append(f.prepared, id)
	if f.err != nil {
		return nil, f.err
	}
	return &invoice.Document{OrderID: id}, nil
}

func (f *fakeInvoices) Render(_ context.Context, _ *invoice.Document, sink *invoice.Sink) (invoice.Summary, error) {
	_, err := io.WriteString(sink, "%PDF-fake")
	return invoice.Summary{Pages: 1}, err
}

func message(t *testing.T, eventType string, id int64) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(ordersvc.Event{
		Type:       eventType,
		OrderID:    id,
		Status:     entity.StatusApproved,
		Total:      "203.00",
		ActorID:    1,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	return messaging.Message{Topic: "orders.events", Key: ordersvc.EventKey(id), Value: payload}
}

func newHandler(t *testing.T, archiveDir string, invoices InvoiceRenderer) *EventHandler {
	var cfg config.Config
	cfg.Invoice.ArchiveDir = archiveDir
	cfg.Messaging.Kafka.Topic = "orders.events"
	return NewEventHandler(zaptest.NewLogger(t), cfg, invoices)
}

func TestHandle_ArchivesApprovedInvoice(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	invoices := &fakeInvoices{}
	h := newHandler(t, dir, invoices)

	require.NoError(t, h.Handle(t.Context(), message(t, ordersvc.EventApproved, 7)))

	data, err := os.ReadFile(filepath.Join(dir, "order_7.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	invoices := &fakeInvoices{}
	h := newHandler(t, t.TempDir(), invoices)

	require.NoError(t, h.Handle(t.Context(), message(t, ordersvc.EventCreated, 7)))
	require.NoError(t, h.Handle(t.Context(), message(t, ordersvc.EventUpdated, 7)))
	assert.Empty(t, invoices.prepared)
}

func TestHandle_ArchiveDisabled(t *testing.T) {
	invoices := &fakeInvoices{}
	h := newHandler(t, "", invoices)

	require.NoError(t, h.Handle(t.Context(), message(t, ordersvc.EventApproved, 7)))
	assert.Empty(t, invoices.prepared)
}

func TestHandle_Failures(t *testing.T) {
	invoices := &fakeInvoices{err: errors.New("order not found")}
	h := newHandler(t, t.TempDir(), invoices)

	assert.Error(t, h.Handle(t.Context(), messaging.Message{Value: []byte("{")}))
	assert.Error(t, h.Handle(t.Context(), message(t, ordersvc.EventApproved, 7)))
}

func TestNewRegistration(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Kafka.Topic = "orders.events"
	reg := NewRegistration(cfg, newHandler(t, "", &fakeInvoices{}))
	assert.Equal(t, "orders.events", reg.Topic)
	assert.NotNil(t, reg.Handler)
}
