// Package export writes documents out for printing.
package export

import (
	"fmt"
	"io"

	"fyne.io/fyne/v2"
	"github.com/jung-kurt/gofpdf"

	"CurveBoard/internal/state"
)

// Options controls page layout.
type Options struct {
	PageSize string  // gofpdf size name, "A4" when empty
	Margin   float64 // millimetres
}

var strokeColors = map[string][3]int{
	"black": {0, 0, 0},
	"red":   {255, 0, 0},
	"green": {0, 255, 0},
	"blue":  {0, 0, 255},
}

func outline(s *state.Stroke) []fyne.Position {
	if g := s.Geometry(); len(g) > 0 {
		return g
	}
	pts := make([]fyne.Position, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Pos
	}
	return pts
}

// PDF draws every stroke of doc onto one page, scaled to fit inside the
// margins. Strokes with built render geometry are drawn from it, so edit
// curves print at their resolution; the rest print their raw samples.
func PDF(w io.Writer, doc *state.Document, opts Options) error {
	if opts.PageSize == "" {
		opts.PageSize = "A4"
	}
	p := gofpdf.New("P", "mm", opts.PageSize, "")
	p.SetTitle(doc.Name, true)
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")
	p.AddPage()

	pageW, pageH := p.GetPageSize()
	bounds := doc.Bounds()
	size := bounds.Size()
	scale := 1.0
	if size.Width > 0 || size.Height > 0 {
		availW, availH := pageW-2*opts.Margin, pageH-2*opts.Margin
		scale = availW / float64(max(size.Width, 1))
		scale = min(scale, availH/float64(max(size.Height, 1)))
	}
	place := func(pos fyne.Position) (float64, float64) {
		return opts.Margin + float64(pos.X-bounds.Min.X)*scale,
			opts.Margin + float64(pos.Y-bounds.Min.Y)*scale
	}

	for s := range doc.Strokes() {
		pts := outline(s)
		if len(pts) < 2 {
			continue
		}
		rgb, ok := strokeColors[s.Color]
		if !ok {
			rgb = strokeColors["black"]
		}
		p.SetDrawColor(rgb[0], rgb[1], rgb[2])
		p.SetLineWidth(max(float64(s.Width)*scale, 0.1))
		for i := 1; i < len(pts); i++ {
			x1, y1 := place(pts[i-1])
			x2, y2 := place(pts[i])
			p.Line(x1, y1, x2, y2)
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
