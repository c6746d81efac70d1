package invoice

import "strconv"

// Align is the horizontal alignment of a text cell.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// RGB is a fill, stroke or text color.
type RGB struct {
	R, G, B int
}

// HexRGB parses a #rrggbb color. Malformed input yields black.
func HexRGB(hex string) RGB {
	if len(hex) != 7 || hex[0] != '#' {
		return RGB{}
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return RGB{}
	}
	return RGB{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}
}

// Style describes the font used for a text cell.
type Style struct {
	Bold  bool
	Size  float64
	Color RGB
}

// Canvas is the drawing surface the renderer paints on. Coordinates are in
// points with the origin at the top-left corner of the current page.
type Canvas interface {
	AddPage()
	PageSize() (width, height float64)
	// Text draws s inside the w x h cell at (x, y), vertically centered.
	Text(x, y, w, h float64, align Align, style Style, s string)
	FillRect(x, y, w, h float64, fill RGB)
	Line(x1, y1, x2, y2 float64, stroke RGB)
	// Image draws an encoded image scaled to fit the w x h box.
	Image(name string, data []byte, mime string, x, y, w, h float64) error
	TextWidth(style Style, s string) float64
}
