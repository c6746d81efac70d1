package invoice

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// PDFCanvas is a Canvas backed by an in-memory A4 PDF document.
type PDFCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDFCanvas returns an empty A4 portrait document measured in points.
func NewPDFCanvas() *PDFCanvas {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(fontFamily, "", 10)
	return &PDFCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *PDFCanvas) AddPage() { c.pdf.AddPage() }

func (c *PDFCanvas) PageSize() (float64, float64) { return c.pdf.GetPageSize() }

func (c *PDFCanvas) Text(x, y, w, h float64, align Align, style Style, s string) {
	c.useStyle(style)
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, h, c.tr(s), "", 0, alignString(align), false, 0, "")
}

func (c *PDFCanvas) FillRect(x, y, w, h float64, fill RGB) {
	c.pdf.SetFillColor(fill.R, fill.G, fill.B)
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *PDFCanvas) Line(x1, y1, x2, y2 float64, stroke RGB) {
	c.pdf.SetDrawColor(stroke.R, stroke.G, stroke.B)
	c.pdf.SetLineWidth(0.5)
	c.pdf.Line(x1, y1, x2, y2)
}

// Image registers data under name and draws it scaled to fit the box while
// keeping its aspect ratio. A failed decode leaves the document usable.
func (c *PDFCanvas) Image(name string, data []byte, mime string, x, y, w, h float64) error {
	imageType, err := imageType(mime)
	if err != nil {
		return err
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	info := c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if c.pdf.Err() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return fmt.Errorf("decode %s image: %w", imageType, err)
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return fmt.Errorf("decode %s image: empty image", imageType)
	}
	scale := math.Min(w/info.Width(), h/info.Height())
	c.pdf.ImageOptions(name, x, y, info.Width()*scale, info.Height()*scale, false, opts, 0, "")
	return nil
}

func (c *PDFCanvas) TextWidth(style Style, s string) float64 {
	c.useStyle(style)
	return c.pdf.GetStringWidth(c.tr(s))
}

// Output writes the finished document to w.
func (c *PDFCanvas) Output(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (c *PDFCanvas) useStyle(style Style) {
	fontStyle := ""
	if style.Bold {
		fontStyle = "B"
	}
	size := style.Size
	if size <= 0 {
		size = 10
	}
	c.pdf.SetFont(fontFamily, fontStyle, size)
	c.pdf.SetTextColor(style.Color.R, style.Color.G, style.Color.B)
}

func alignString(a Align) string {
	switch a {
	case AlignCenter:
		return "CM"
	case AlignRight:
		return "RM"
	default:
		return "LM"
	}
}

func imageType(mime string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported logo type %q", mime)
	}
}
