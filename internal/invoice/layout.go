package invoice

import "math"

// Column is one table column.
type Column struct {
	Title string
	Width float64
	Align Align
}

// Layout holds the fixed geometry of an invoice page.
type Layout struct {
	Margin       float64
	RowHeight    float64
	TotalsHeight float64

	LogoBox      [4]float64
	CompanyY     float64
	FieldsY      float64
	FieldStep    float64
	SeparatorY   float64
	TableHeaderY float64

	Columns    []Column
	HeaderFill RGB
	HeaderText RGB
	ZebraFill  RGB
	Rule       RGB
	Accent     RGB
}

// DefaultLayout is the A4 portrait purchase order layout.
func DefaultLayout() Layout {
	return Layout{
		Margin:       40,
		RowHeight:    27,
		TotalsHeight: 50,

		LogoBox:      [4]float64{40, 40, 80, 50},
		CompanyY:     55,
		FieldsY:      100,
		FieldStep:    14,
		SeparatorY:   172,
		TableHeaderY: 177,

		Columns: []Column{
			{Title: "#", Width: 30, Align: AlignCenter},
			{Title: "CODE", Width: 85, Align: AlignLeft},
			{Title: "DESCRIPTION", Width: 180, Align: AlignLeft},
			{Title: "QTY", Width: 45, Align: AlignCenter},
			{Title: "PRICE", Width: 80, Align: AlignRight},
			{Title: "SUBTOTAL", Width: 80, Align: AlignRight},
		},
		HeaderFill: HexRGB("#1a4693"),
		HeaderText: HexRGB("#ffffff"),
		ZebraFill:  HexRGB("#f8f9fa"),
		Rule:       HexRGB("#333333"),
		Accent:     HexRGB("#28a745"),
	}
}

// FirstRowY is the cursor position of the first table row on every page.
func (l Layout) FirstRowY() float64 {
	return l.TableHeaderY + l.RowHeight
}

// Bottom is the lowest y a row may reach on a page of the given height.
func (l Layout) Bottom(pageHeight float64) float64 {
	return pageHeight - l.Margin
}

// RowsPerPage is the number of table rows that fit on one page.
func (l Layout) RowsPerPage(pageHeight float64) int {
	return int(math.Floor((l.Bottom(pageHeight) - l.FirstRowY()) / l.RowHeight))
}

// columnX returns the left edge of column i for a table starting at left.
func (l Layout) columnX(left float64, i int) float64 {
	x := left
	for _, c := range l.Columns[:i] {
		x += c.Width
	}
	return x
}
