package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/Additional-Code/procura/internal/entity"
)

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	OrderDate  string             `json:"orderDate" validate:"required,datetime=2006-01-02"`
	SupplierID Number             `json:"supplierId" validate:"required"`
	Lines      []DraftLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// DraftLineRequest is one submitted creation line.
type DraftLineRequest struct {
	ProductID Number `json:"productId"`
	Quantity  Number `json:"quantity"`
	UnitPrice Number `json:"unitPrice"`
}

// UpdateOrderRequest is the body of PUT /orders/:id. Lines must be present but may be empty.
type UpdateOrderRequest struct {
	Status         string              `json:"status" validate:"required"`
	Lines          []LineChangeRequest `json:"lines" validate:"required"`
	DeletedLineIDs []int64             `json:"deletedLineIds"`
}

// LineChangeRequest edits an existing line when LineID is set, otherwise adds one.
type LineChangeRequest struct {
	LineID    Number `json:"lineId"`
	ProductID Number `json:"productId"`
	Quantity  Number `json:"quantity"`
}

// CreatedResponse reports the id of a new resource.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID           int64                `json:"id"`
	OrderDate    string               `json:"orderDate"`
	SupplierID   int64                `json:"supplierId"`
	SupplierName string               `json:"supplierName,omitempty"`
	Status       string               `json:"status"`
	CreatorID    int64                `json:"creatorId"`
	ApproverID   *int64               `json:"approverId"`
	ApprovedAt   *time.Time           `json:"approvedAt"`
	Total        string               `json:"total"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Lines        []*OrderLineResponse `json:"lines,omitempty"`
}

// OrderLineResponse is one order line with its product resolved.
type OrderLineResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	ProductCode string `json:"productCode,omitempty"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	CurrencyTag string `json:"currencyTag"`
}

// ProductResponse is a catalog product offered by a supplier.
type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	UnitPrice   string `json:"unitPrice"`
	CurrencyTag string `json:"currencyTag"`
}

// NewOrderResponse maps an order entity.
func NewOrderResponse(o *entity.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:         o.ID,
		OrderDate:  o.OrderDate.Format(time.DateOnly),
		SupplierID: o.SupplierID,
		Status:     o.Status.String(),
		CreatorID:  o.CreatorID,
		ApproverID: o.ApproverID,
		ApprovedAt: o.ApprovedAt,
		Total:      o.Total.StringFixed(2),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.Supplier != nil {
		resp.SupplierName = o.Supplier.Name
	}
	if len(o.Lines) > 0 {
		resp.Lines = NewOrderLineResponses(o.Lines)
	}
	return resp
}

// NewOrderResponses maps a list of orders.
func NewOrderResponses(orders []*entity.Order) []*OrderResponse {
	return lo.Map(orders, func(o *entity.Order, _ int) *OrderResponse { return NewOrderResponse(o) })
}

// NewOrderLineResponses maps order lines.
func NewOrderLineResponses(lines []*entity.OrderLine) []*OrderLineResponse {
	return lo.Map(lines, func(l *entity.OrderLine, _ int) *OrderLineResponse {
		resp := &OrderLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			CurrencyTag: l.CurrencyTag,
		}
		if l.Product != nil {
			resp.ProductName = l.Product.Name
			resp.ProductCode = l.Product.Code
		}
		return resp
	})
}

// NewProductResponses maps catalog products.
func NewProductResponses(products []*entity.Product) []*ProductResponse {
	return lo.Map(products, func(p *entity.Product, _ int) *ProductResponse {
		return &ProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Code:        p.Code,
			UnitPrice:   p.UnitPrice.StringFixed(2),
			CurrencyTag: p.CurrencyTag,
		}
	})
}
