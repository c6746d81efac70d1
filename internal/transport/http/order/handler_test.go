package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/invoice"
	"github.com/Additional-Code/procura/internal/presentation/http/validation"
	invoicesvc "github.com/Additional-Code/procura/internal/service/invoice"
	service "github.com/Additional-Code/procura/internal/service/order"
	"github.com/Additional-Code/procura/internal/testutil"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

type fakeOrders struct {
	created   *service.CreateInput
	updated   *service.UpdateInput
	actor     auth.Identity
	deleted   int64
	deleteErr error
	orders    map[int64]*entity.Order
}

func (f *fakeOrders) Create(_ context.Context, actor auth.Identity, in service.CreateInput) (int64, error) {
	f.actor = actor
	f.created = &in
	return 11, nil
}

func (f *fakeOrders) Update(_ context.Context, actor auth.Identity, id int64, in service.UpdateInput) (*service.UpdateResult, error) {
	f.actor = actor
	f.updated = &in
	if _, ok := f.orders[id]; !ok {
		return nil, errorbank.NotFound("order not found")
	}
	return &service.UpdateResult{Status: entity.StatusApproved, Approved: true}, nil
}

func (f *fakeOrders) Delete(_ context.Context, _ auth.Identity, id int64) error {
	f.deleted = id
	return f.deleteErr
}

func (f *fakeOrders) DeleteLine(_ context.Context, _ auth.Identity, lineID int64) error {
	f.deleted = lineID
	return f.deleteErr
}

func (f *fakeOrders) Get(_ context.Context, id int64) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, errorbank.NotFound("order not found")
	}
	return o, nil
}

func (f *fakeOrders) List(context.Context) ([]*entity.Order, error) {
	out := make([]*entity.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) Lines(_ context.Context, id int64) ([]*entity.OrderLine, error) {
	o, ok := f.orders[id]
	if !ok || len(o.Lines) == 0 {
		return nil, errorbank.NotFound("order has no lines")
	}
	return o.Lines, nil
}

func (f *fakeOrders) Stats(context.Context) (service.Stats, error) {
	return service.Stats{Pending: 2, Approved: 1, Total: 3}, nil
}

func (f *fakeOrders) ProductsBySupplier(_ context.Context, supplierID int64, search string) ([]*entity.Product, error) {
	return []*entity.Product{{ID: 1, Name: search, Code: "X", UnitPrice: currency.NewAmount(decimal.NewFromInt(3)), CurrencyTag: "$", SupplierID: supplierID}}, nil
}

type fakeInvoices struct {
	prepareErr error
	renderErr  error
	body       string
}

func (f *fakeInvoices) Prepare(_ context.Context, id int64) (*invoice.Document, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	return &invoice.Document{OrderID: id}, nil
}

func (f *fakeInvoices) Render(_ context.Context, _ *invoice.Document, sink *invoice.Sink) (invoice.Summary, error) {
	if f.body != "" {
		if _, err := io.WriteString(sink, f.body); err != nil {
			return invoice.Summary{}, err
		}
	}
	return invoice.Summary{Pages: 1}, f.renderErr
}

type harness struct {
	e        *echo.Echo
	orders   *fakeOrders
	invoices *fakeInvoices
	token    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	issuer := auth.NewIssuer(testutil.Config())
	token, err := issuer.Issue(auth.Identity{UserID: 5, Name: "ana", Role: "admin"})
	require.NoError(t, err)

	orders := &fakeOrders{orders: map[int64]*entity.Order{
		3: {
			ID:        3,
			OrderDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Status:    entity.StatusPending,
			Total:     decimal.RequireFromString("203"),
			Supplier:  &entity.Supplier{ID: 1, Name: "ACME"},
			Lines: []*entity.OrderLine{
				{ID: 1, OrderID: 3, ProductID: 1, Quantity: 2, UnitPrice: currency.NewAmount(decimal.NewFromInt(10)), CurrencyTag: "C$"},
			},
		},
	}}
	h := &harness{
		e:        echo.New(),
		orders:   orders,
		invoices: &fakeInvoices{body: "%PDF-1.3 fake"},
		token:    token.AccessToken,
	}
	h.e.Validator = validation.New()
	Register(h.e, newHandler(h.orders, h.invoices, zaptest.NewLogger(t)), auth.Middleware(issuer))
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errBody["kind"].(string)
}

func TestRoutes_RequireToken(t *testing.T) {
	h := newHarness(t)
	h.token = "garbage"

	rec := h.do(http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorKind(t, rec))
}

func TestCreate(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/orders", `{"orderDate":"2026-03-14","supplierId":"1","lines":[{"productId":"4","quantity":2,"unitPrice":"10"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"id": float64(11)}, decode(t, rec)["data"])

	require.NotNil(t, h.orders.created)
	assert.Equal(t, int64(5), h.orders.actor.UserID)
	assert.Equal(t, int64(1), h.orders.created.SupplierID)
	assert.Equal(t, []service.DraftLine{{ProductID: "4", Quantity: "2", UnitPrice: "10"}}, h.orders.created.Lines)
}

func TestCreate_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	tests := map[string]string{
		"missing lines":    `{"orderDate":"2026-03-14","supplierId":1}`,
		"empty lines":      `{"orderDate":"2026-03-14","supplierId":1,"lines":[]}`,
		"bad date":         `{"orderDate":"14/03/2026","supplierId":1,"lines":[{"productId":1}]}`,
		"bad supplier":     `{"orderDate":"2026-03-14","supplierId":"abc","lines":[{"productId":1}]}`,
		"malformed json":   `{"orderDate":`,
		"missing supplier": `{"orderDate":"2026-03-14","lines":[{"productId":1}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/orders", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "bad_request", errorKind(t, rec))
		})
	}
	assert.Nil(t, h.orders.created)
}

func TestUpdate(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPut, "/orders/3", `{"status":"approved","lines":[{"lineId":1,"quantity":"4"},{"productId":9,"quantity":1}],"deletedLineIds":[7]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	in := h.orders.updated
	require.NotNil(t, in)
	assert.Equal(t, "approved", in.Status)
	assert.Equal(t, []service.LineChange{{LineID: 1, Quantity: 4}, {ProductID: 9, Quantity: 1}}, in.Lines)
	assert.Equal(t, []int64{7}, in.DeletedLineIDs)
}

func TestUpdate_MissingLinesIsBadRequest(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPut, "/orders/3", `{"status":"approved"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, h.orders.updated)
}

func TestUpdate_MalformedLineIDIsRejected(t *testing.T) {
	tests := map[string]string{
		"fraction":      `{"status":"approved","lines":[{"lineId":5.5,"quantity":2}]}`,
		"text":          `{"status":"approved","lines":[{"lineId":"abc","quantity":2}]}`,
		"trailing junk": `{"status":"approved","lines":[{"lineId":"7x","productId":1,"quantity":2}]}`,
		"negative":      `{"status":"approved","lines":[{"lineId":-1,"quantity":2}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)

			rec := h.do(http.MethodPut, "/orders/3", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "bad_request", errorKind(t, rec))
			assert.Nil(t, h.orders.updated)
		})
	}
}

func TestUpdate_IntegralLineIDEditsInPlace(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPut, "/orders/3", `{"status":"pending","lines":[{"lineId":5.0,"quantity":2},{"lineId":"","productId":"9","quantity":1},{"lineId":0,"productId":4,"quantity":3}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	in := h.orders.updated
	require.NotNil(t, in)
	assert.Equal(t, []service.LineChange{
		{LineID: 5, Quantity: 2},
		{ProductID: 9, Quantity: 1},
		{ProductID: 4, Quantity: 3},
	}, in.Lines)
}

func TestUpdate_UnknownOrder(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPut, "/orders/99", `{"status":"approved","lines":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAndLines(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/orders/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "203.00", data["total"])
	assert.Equal(t, "ACME", data["supplierName"])
	assert.Equal(t, "2026-03-14", data["orderDate"])

	rec = h.do(http.MethodGet, "/orders/3/lines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/orders/4", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/orders/abc", "").Code)
}

func TestStatsAndProducts(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/orders/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(3), stats["total"])

	rec = h.do(http.MethodGet, "/orders/products/supplier/2?search=toner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode(t, rec)["data"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "toner", products[0].(map[string]any)["name"])
}

func TestDeleteRoutes(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/orders/lines/8", "").Code)
	assert.Equal(t, int64(8), h.orders.deleted)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/orders/3", "").Code)
	assert.Equal(t, int64(3), h.orders.deleted)

	h.orders.deleteErr = errorbank.NotFound("order not found")
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/orders/9", "").Code)
}

func TestPDF_Streams(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/orders/3/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="order_3.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "%PDF-1.3 fake", rec.Body.String())
}

func TestPDF_ErrorBeforeOutputIsJSON(t *testing.T) {
	h := newHarness(t)
	h.invoices.prepareErr = errorbank.NotFound("order not found")

	rec := h.do(http.MethodGet, "/orders/3/pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))

	h.invoices.prepareErr = nil
	h.invoices.body = ""
	h.invoices.renderErr = errorbank.Internal("failed to lay out invoice")
	rec = h.do(http.MethodGet, "/orders/3/pdf", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", errorKind(t, rec))
}

func TestPDF_ErrorAfterOutputKeepsBinaryResponse(t *testing.T) {
	h := newHarness(t)
	h.invoices.renderErr = errors.Join(invoicesvc.ErrOutputStarted, io.ErrClosedPipe)

	rec := h.do(http.MethodGet, "/orders/3/pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "%PDF-1.3 fake", rec.Body.String())
}
