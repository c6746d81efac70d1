package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/procura/internal/currency"
)

// Company is the branding block printed at the top of every page.
type Company struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
	Email   string
}

// Logo is an encoded image with its MIME type.
type Logo struct {
	Data []byte
	MIME string
}

// Line is one printed order line.
type Line struct {
	Code        string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	CurrencyTag string
}

// Document is a fully resolved order ready for rendering.
type Document struct {
	OrderID     int64
	OrderDate   time.Time
	Supplier    string
	Status      string
	Responsible string
	Company     Company
	Logo        *Logo
	Lines       []Line
	Converter   currency.Converter
}

// Filename is the attachment name offered to clients.
func (d Document) Filename() string {
	return fmt.Sprintf("order_%d.pdf", d.OrderID)
}

// Summary reports what was drawn.
type Summary struct {
	Pages        int
	Rows         int
	TotalBase    decimal.Decimal
	TotalForeign decimal.Decimal
	Warnings     []string
}
