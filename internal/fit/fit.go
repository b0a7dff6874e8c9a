// Package fit turns sampled stroke points into cubic Bézier edit curves.
//
// The samples are interpolated with a uniform Catmull-Rom spline, which is
// handed to honnef.co/go/curve as the source curve for its optimizing fitter.
// The spline passes through every sample, so the fit error is measured
// against the drawn line rather than a smoothed copy of it.
package fit

import (
	"math"

	"fyne.io/fyne/v2"
	"honnef.co/go/curve"

	"CurveBoard/internal/state"
)

// cornerCos is the cosine of the turn angle above which an interior sample
// is treated as a corner and the fit is split there. Turns sharper than 120
// degrees qualify.
const cornerCos = -0.5

// Fitter fits edit curves with honnef.co/go/curve. The zero value is ready.
type Fitter struct{}

// Fit returns a new edit curve within threshold of points, or false when no
// curve can be produced. The returned curve has no id, resolution or flags;
// those belong to the caller. points is not retained.
func (Fitter) Fit(points []state.Point, threshold float64) (*state.EditCurve, bool) {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, false
	}
	src := newSpline(points)
	if src == nil {
		return nil, false
	}

	path := curve.FitToBezPathOpt(src, threshold)
	cps, ok := curvePoints(path)
	if !ok {
		return nil, false
	}
	for i := range cps {
		cps[i].Pressure, cps[i].Strength = nearestAttrs(points, cps[i].Anchor)
	}
	return &state.EditCurve{Points: cps}, true
}

func toPos(p curve.Point) fyne.Position {
	return fyne.NewPos(float32(p.X), float32(p.Y))
}

func lerp(a, b curve.Point, t float64) curve.Point {
	return curve.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func bad(p curve.Point) bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0)
}

// curvePoints converts a fitted path into anchors with handles. Paths
// without at least one segment, or with non-finite coordinates, are
// rejected.
func curvePoints(path curve.BezPath) ([]state.CurvePoint, bool) {
	var (
		out  []state.CurvePoint
		last curve.Point
	)
	push := func(c1, c2, end curve.Point) bool {
		if bad(c1) || bad(c2) || bad(end) {
			return false
		}
		out[len(out)-1].Handle2 = toPos(c1)
		out = append(out, state.CurvePoint{Handle1: toPos(c2), Anchor: toPos(end), Handle2: toPos(end)})
		last = end
		return true
	}

	for _, el := range path {
		switch el.Kind {
		case curve.MoveToKind:
			if bad(el.P0) {
				return nil, false
			}
			if len(out) == 0 {
				a := toPos(el.P0)
				out = append(out, state.CurvePoint{Handle1: a, Anchor: a, Handle2: a})
				last = el.P0
				continue
			}
			// a later subpath continues from the previous end
			if el.P0 != last && !push(lerp(last, el.P0, 1.0/3), lerp(el.P0, last, 1.0/3), el.P0) {
				return nil, false
			}
		case curve.LineToKind:
			if len(out) == 0 || !push(lerp(last, el.P0, 1.0/3), lerp(el.P0, last, 1.0/3), el.P0) {
				return nil, false
			}
		case curve.QuadToKind:
			if len(out) == 0 || !push(lerp(last, el.P0, 2.0/3), lerp(el.P1, el.P0, 2.0/3), el.P1) {
				return nil, false
			}
		case curve.CubicToKind:
			if len(out) == 0 || !push(el.P0, el.P1, el.P2) {
				return nil, false
			}
		case curve.ClosePathKind:
		}
	}
	if len(out) < 2 {
		return nil, false
	}
	return out, true
}

func nearestAttrs(points []state.Point, at fyne.Position) (pressure, strength float32) {
	best := float32(math.MaxFloat32)
	for _, p := range points {
		dx, dy := p.Pos.X-at.X, p.Pos.Y-at.Y
		if d := dx*dx + dy*dy; d < best {
			best = d
			pressure, strength = p.Pressure, p.Strength
		}
	}
	return pressure, strength
}
