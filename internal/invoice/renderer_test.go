package invoice_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/currency"
	"github.com/Additional-Code/procura/internal/invoice"
)

const (
	a4Width  = 595.28
	a4Height = 841.89
)

type textOp struct {
	page       int
	x, y, w, h float64
	style      invoice.Style
	s          string
}

type rectOp struct {
	page       int
	x, y, w, h float64
	fill       invoice.RGB
}

type recordingCanvas struct {
	pages    int
	texts    []textOp
	rects    []rectOp
	lines    int
	images   int
	imageErr error
}

func (c *recordingCanvas) AddPage() { c.pages++ }

func (c *recordingCanvas) PageSize() (float64, float64) { return a4Width, a4Height }

func (c *recordingCanvas) Text(x, y, w, h float64, _ invoice.Align, style invoice.Style, s string) {
	c.texts = append(c.texts, textOp{page: c.pages, x: x, y: y, w: w, h: h, style: style, s: s})
}

func (c *recordingCanvas) FillRect(x, y, w, h float64, fill invoice.RGB) {
	c.rects = append(c.rects, rectOp{page: c.pages, x: x, y: y, w: w, h: h, fill: fill})
}

func (c *recordingCanvas) Line(_, _, _, _ float64, _ invoice.RGB) { c.lines++ }

func (c *recordingCanvas) Image(string, []byte, string, float64, float64, float64, float64) error {
	if c.imageErr != nil {
		return c.imageErr
	}
	c.images++
	return nil
}

func (c *recordingCanvas) TextWidth(style invoice.Style, s string) float64 {
	return float64(len([]rune(s))) * style.Size * 0.5
}

func (c *recordingCanvas) headerCount() int {
	header := invoice.DefaultLayout().HeaderFill
	n := 0
	for _, r := range c.rects {
		if r.fill == header {
			n++
		}
	}
	return n
}

func (c *recordingCanvas) textsMatching(prefix string) []textOp {
	var out []textOp
	for _, t := range c.texts {
		if strings.HasPrefix(t.s, prefix) {
			out = append(out, t)
		}
	}
	return out
}

func converter(t *testing.T) currency.Converter {
	t.Helper()
	pair, err := currency.NewPair("NIO", "C$", "USD", "$")
	require.NoError(t, err)
	conv, err := currency.NewConverter(decimal.RequireFromString("36.6"), pair)
	require.NoError(t, err)
	return conv
}

func document(t *testing.T, rows int) invoice.Document {
	t.Helper()
	lines := make([]invoice.Line, rows)
	for i := range lines {
		lines[i] = invoice.Line{
			Code:        fmt.Sprintf("P-%03d", i),
			Description: "Widget",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(10),
			CurrencyTag: "C$",
		}
	}
	return invoice.Document{
		OrderID:     42,
		OrderDate:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Supplier:    "ACME",
		Status:      "Approved",
		Responsible: "admin",
		Company:     invoice.Company{Name: "Procura S.A."},
		Lines:       lines,
		Converter:   converter(t),
	}
}

func TestLayout_RowsPerPage(t *testing.T) {
	assert.Equal(t, 22, invoice.DefaultLayout().RowsPerPage(a4Height))
}

func TestRender_Pagination(t *testing.T) {
	tests := []struct {
		rows  int
		pages int
	}{
		{rows: 0, pages: 1},
		{rows: 1, pages: 1},
		{rows: 20, pages: 1},
		{rows: 21, pages: 2},
		{rows: 22, pages: 2},
		{rows: 23, pages: 2},
		{rows: 44, pages: 3},
		{rows: 45, pages: 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			canvas := &recordingCanvas{}
			summary, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(document(t, tt.rows), canvas)
			require.NoError(t, err)

			assert.Equal(t, tt.pages, summary.Pages)
			assert.Equal(t, tt.pages, canvas.pages)
			assert.Equal(t, tt.pages, canvas.headerCount())
			assert.Len(t, canvas.textsMatching("ORDER No. 42"), tt.pages)
			assert.Equal(t, tt.rows, summary.Rows)
			assert.True(t, decimal.NewFromInt(int64(10*tt.rows)).Equal(summary.TotalBase))
		})
	}
}

func TestRender_NothingCrossesBottomMargin(t *testing.T) {
	canvas := &recordingCanvas{}
	_, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(document(t, 67), canvas)
	require.NoError(t, err)

	bottom := a4Height - invoice.DefaultLayout().Margin
	for _, op := range canvas.texts {
		assert.LessOrEqual(t, op.y+op.h, bottom, "text %q on page %d", op.s, op.page)
	}
	for _, op := range canvas.rects {
		assert.LessOrEqual(t, op.y+op.h, bottom, "rect on page %d", op.page)
	}
}

func TestRender_TotalsMoveToFreshPage(t *testing.T) {
	canvas := &recordingCanvas{}
	_, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(document(t, 21), canvas)
	require.NoError(t, err)

	totals := canvas.textsMatching("TOTAL C$:")
	require.Len(t, totals, 1)
	assert.Equal(t, 2, totals[0].page)

	rowsOnSecondPage := 0
	for _, op := range canvas.textsMatching("P-") {
		if op.page == 2 {
			rowsOnSecondPage++
		}
	}
	assert.Zero(t, rowsOnSecondPage)
}

func TestRender_MixedCurrencyTotals(t *testing.T) {
	doc := document(t, 0)
	doc.Lines = []invoice.Line{
		{Code: "A", Description: "Paper", Quantity: 2, UnitPrice: decimal.NewFromInt(10), CurrencyTag: "C$"},
		{Code: "B", Description: "Toner", Quantity: 1, UnitPrice: decimal.NewFromInt(5), CurrencyTag: "$"},
	}
	canvas := &recordingCanvas{}
	summary, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(doc, canvas)
	require.NoError(t, err)

	assert.Equal(t, "203.00", summary.TotalBase.StringFixed(2))
	assert.Equal(t, "5.55", summary.TotalForeign.StringFixed(2))
	assert.NotEmpty(t, canvas.textsMatching("C$203.00"))
	assert.NotEmpty(t, canvas.textsMatching("$5.55"))
	// foreign prices are printed converted to base
	assert.NotEmpty(t, canvas.textsMatching("C$183.00"))
}

func TestRender_TruncatesLongDescriptions(t *testing.T) {
	doc := document(t, 1)
	doc.Lines[0].Description = strings.Repeat("Extra long product description ", 4)
	doc.Lines[0].Code = ""
	canvas := &recordingCanvas{}
	_, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(doc, canvas)
	require.NoError(t, err)

	desc := canvas.textsMatching("Extra long")
	require.Len(t, desc, 1)
	assert.True(t, strings.HasSuffix(desc[0].s, "..."))
	assert.LessOrEqual(t, canvas.TextWidth(desc[0].style, desc[0].s), desc[0].w)
	assert.NotEmpty(t, canvas.textsMatching("N/A"))
}

func TestRender_LogoFailureFallsBackToTextHeader(t *testing.T) {
	doc := document(t, 1)
	doc.Logo = &invoice.Logo{Data: []byte("not an image"), MIME: "image/png"}
	canvas := &recordingCanvas{imageErr: errors.New("bad image")}

	summary, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(doc, canvas)
	require.NoError(t, err)
	require.Len(t, summary.Warnings, 1)

	name := canvas.textsMatching("Procura S.A.")
	require.Len(t, name, 1)
	assert.Equal(t, invoice.DefaultLayout().Margin, name[0].x)
}

func TestRender_LogoShiftsCompanyName(t *testing.T) {
	doc := document(t, 30)
	doc.Logo = &invoice.Logo{Data: []byte{1}, MIME: "image/png"}
	canvas := &recordingCanvas{}

	summary, err := invoice.NewRenderer(invoice.DefaultLayout()).Render(doc, canvas)
	require.NoError(t, err)
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, summary.Pages, canvas.images)
	for _, name := range canvas.textsMatching("Procura S.A.") {
		assert.Equal(t, 130.0, name.x)
	}
}

func TestHexRGB(t *testing.T) {
	assert.Equal(t, invoice.RGB{R: 0x1a, G: 0x46, B: 0x93}, invoice.HexRGB("#1a4693"))
	assert.Equal(t, invoice.RGB{}, invoice.HexRGB("1a4693"))
	assert.Equal(t, invoice.RGB{}, invoice.HexRGB("#zzzzzz"))
}
