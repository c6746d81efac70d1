package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/procura/internal/currency"
)

const ellipsis = "..."

// Renderer lays out documents on a Canvas.
type Renderer struct {
	layout Layout
}

// NewRenderer returns a Renderer for layout.
func NewRenderer(layout Layout) *Renderer {
	return &Renderer{layout: layout}
}

// Render paints doc on c. Rows never cross the bottom margin; the page
// header and table header are repeated on every page, and the totals
// block moves to a fresh page when it does not fit.
func (r *Renderer) Render(doc Document, c Canvas) (Summary, error) {
	if len(r.layout.Columns) != 6 {
		return Summary{}, fmt.Errorf("invoice layout needs 6 columns, got %d", len(r.layout.Columns))
	}
	width, height := c.PageSize()
	p := &pager{
		layout: r.layout,
		canvas: c,
		doc:    doc,
		width:  width,
		bottom: r.layout.Bottom(height),
		logo:   doc.Logo,
	}

	p.newPage()
	pair := doc.Converter.Pair()
	total := decimal.Zero
	for i, line := range doc.Lines {
		p.ensure(r.layout.RowHeight)
		subtotal := doc.Converter.LineTotal(line.Quantity, line.UnitPrice, line.CurrencyTag)
		total = total.Add(subtotal)
		p.row(i, line, currency.Format(doc.Converter.ToBase(line.UnitPrice, line.CurrencyTag), pair.Base.Symbol), currency.Format(subtotal, pair.Base.Symbol))
		p.rows++
	}

	total = total.Round(2)
	foreign := doc.Converter.ToForeign(total).Round(2)
	p.ensure(r.layout.TotalsHeight)
	p.totals(
		"TOTAL "+pair.Base.Symbol+":", currency.Format(total, pair.Base.Symbol),
		"TOTAL "+pair.Foreign.Symbol+":", currency.Format(foreign, pair.Foreign.Symbol),
	)

	return Summary{
		Pages:        p.pages,
		Rows:         p.rows,
		TotalBase:    total,
		TotalForeign: foreign,
		Warnings:     p.warnings,
	}, nil
}

type pager struct {
	layout   Layout
	canvas   Canvas
	doc      Document
	width    float64
	bottom   float64
	logo     *Logo
	y        float64
	pages    int
	rows     int
	warnings []string
}

func (p *pager) tableWidth() float64 {
	return p.width - 2*p.layout.Margin
}

func (p *pager) ensure(need float64) {
	if p.y+need > p.bottom {
		p.newPage()
	}
}

func (p *pager) newPage() {
	p.canvas.AddPage()
	p.pages++
	p.header()
	p.tableHeader()
	p.y = p.layout.FirstRowY()
}

func (p *pager) header() {
	l := p.layout
	textX := l.Margin
	if p.logo != nil {
		box := l.LogoBox
		if err := p.canvas.Image("logo", p.logo.Data, p.logo.MIME, box[0], box[1], box[2], box[3]); err != nil {
			p.warnings = append(p.warnings, fmt.Sprintf("logo skipped: %v", err))
			p.logo = nil
		} else {
			textX = box[0] + box[2] + 10
		}
	}

	company := p.doc.Company
	if company.Name != "" {
		p.canvas.Text(textX, l.CompanyY, p.width-textX-l.Margin, 16, AlignCenter, Style{Bold: true, Size: 14}, company.Name)
	}
	contact := joinNonEmpty(" | ", company.TaxID, company.Address, company.Phone, company.Email)
	if contact != "" {
		p.canvas.Text(textX, l.CompanyY+18, p.width-textX-l.Margin, 10, AlignCenter, Style{Size: 8}, contact)
	}

	fields := []string{
		"ORDER No. " + strconv.FormatInt(p.doc.OrderID, 10),
		"Date: " + p.doc.OrderDate.Format("02/01/2006"),
		"Supplier: " + orDefault(p.doc.Supplier, "N/A"),
		"Status: " + orDefault(p.doc.Status, "N/A"),
		"Responsible: " + orDefault(p.doc.Responsible, "N/A"),
	}
	for i, f := range fields {
		style := Style{Size: 10}
		if i == 0 {
			style.Bold = true
		}
		p.canvas.Text(l.Margin, l.FieldsY+float64(i)*l.FieldStep, p.tableWidth(), 12, AlignLeft, style, f)
	}
	p.canvas.Line(l.Margin, l.SeparatorY, p.width-l.Margin, l.SeparatorY, l.Rule)
}

func (p *pager) tableHeader() {
	l := p.layout
	y := l.TableHeaderY
	p.canvas.FillRect(l.Margin, y, p.tableWidth(), l.RowHeight, l.HeaderFill)
	style := Style{Bold: true, Size: 10, Color: l.HeaderText}
	for i, col := range l.Columns {
		p.canvas.Text(l.columnX(l.Margin, i)+5, y, col.Width-10, l.RowHeight, col.Align, style, col.Title)
	}
}

func (p *pager) row(i int, line Line, price, subtotal string) {
	l := p.layout
	if i%2 == 0 {
		p.canvas.FillRect(l.Margin, p.y, p.tableWidth(), l.RowHeight, l.ZebraFill)
	}
	style := Style{Size: 9}
	cells := []string{
		strconv.Itoa(i + 1),
		orDefault(line.Code, "N/A"),
		line.Description,
		strconv.FormatInt(line.Quantity, 10),
		price,
		subtotal,
	}
	for c, col := range l.Columns {
		w := col.Width - 10
		p.canvas.Text(l.columnX(l.Margin, c)+5, p.y, w, l.RowHeight, col.Align, style, p.fit(style, cells[c], w))
	}
	p.y += l.RowHeight
}

func (p *pager) totals(baseLabel, baseValue, foreignLabel, foreignValue string) {
	l := p.layout
	p.canvas.Line(l.Margin, p.y, p.width-l.Margin, p.y, l.Rule)
	p.y += 10

	labelX := l.columnX(l.Margin, 4)
	valueX := l.columnX(l.Margin, 5)
	labelW, valueW := l.Columns[4].Width-5, l.Columns[5].Width-5

	strong := Style{Bold: true, Size: 12}
	p.canvas.Text(labelX, p.y, labelW, 12, AlignRight, strong, baseLabel)
	p.canvas.Text(valueX, p.y, valueW, 12, AlignRight, strong, baseValue)
	p.y += 15

	accent := Style{Bold: true, Size: 10, Color: l.Accent}
	p.canvas.Text(labelX, p.y, labelW, 12, AlignRight, accent, foreignLabel)
	p.canvas.Text(valueX, p.y, valueW, 12, AlignRight, accent, foreignValue)
	p.y += 12
}

// fit truncates s with an ellipsis so it renders within width.
func (p *pager) fit(style Style, s string, width float64) string {
	if p.canvas.TextWidth(style, s) <= width {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if p.canvas.TextWidth(style, candidate) <= width {
			return candidate
		}
	}
	return ellipsis
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(lo.Filter(parts, func(part string, _ int) bool {
		return strings.TrimSpace(part) != ""
	}), sep)
}
