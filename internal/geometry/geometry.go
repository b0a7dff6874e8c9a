// Package geometry rebuilds the render buffer of a stroke from whichever
// representation it currently has.
package geometry

import (
	"fyne.io/fyne/v2"
	"honnef.co/go/curve"

	"CurveBoard/internal/state"
)

// Tessellator samples edit curves into polylines.
type Tessellator struct{}

// Update rebuilds s's render buffer. A stroke with an edit curve is sampled
// at the curve's resolution per segment and its recalc flag is cleared; a
// stroke without one renders its raw samples.
func (Tessellator) Update(s *state.Stroke) {
	if s.RebuildGeometry(Sample) {
		return
	}
	pts := make([]fyne.Position, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Pos
	}
	s.SetGeometry(pts)
}

func pt(p fyne.Position) curve.Point {
	return curve.Point{X: float64(p.X), Y: float64(p.Y)}
}

// Sample evaluates every segment of c at max(resolution, 1) steps. The
// result starts at the first anchor and ends at the last one.
func Sample(c *state.EditCurve) []fyne.Position {
	if len(c.Points) == 0 {
		return nil
	}
	res := max(c.Resolution, 1)
	out := make([]fyne.Position, 0, c.Segments()*res+1)
	out = append(out, c.Points[0].Anchor)
	for i := 0; i < c.Segments(); i++ {
		a, b := c.Points[i], c.Points[i+1]
		cb := curve.CubicBez{P0: pt(a.Anchor), P1: pt(a.Handle2), P2: pt(b.Handle1), P3: pt(b.Anchor)}
		for step := 1; step < res; step++ {
			p := cb.Eval(float64(step) / float64(res))
			out = append(out, fyne.NewPos(float32(p.X), float32(p.Y)))
		}
		out = append(out, b.Anchor)
	}
	return out
}
