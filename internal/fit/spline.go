package fit

import (
	"math"

	"honnef.co/go/curve"

	"CurveBoard/internal/state"
)

// spline is a uniform Catmull-Rom spline through a run of samples,
// parameterized over [0, 1] with each sample at t = i/(n-1).
type spline struct {
	pts []curve.Point
}

var _ curve.FittableCurve = (*spline)(nil)

// newSpline copies the sample positions, dropping consecutive duplicates.
// It returns nil when fewer than two distinct positions remain.
func newSpline(points []state.Point) *spline {
	pts := make([]curve.Point, 0, len(points))
	for _, p := range points {
		cp := curve.Point{X: float64(p.Pos.X), Y: float64(p.Pos.Y)}
		if bad(cp) {
			return nil
		}
		if n := len(pts); n > 0 && pts[n-1] == cp {
			continue
		}
		pts = append(pts, cp)
	}
	if len(pts) < 2 {
		return nil
	}
	return &spline{pts: pts}
}

func (s *spline) segments() int {
	return len(s.pts) - 1
}

func (s *spline) at(i int) curve.Point {
	return s.pts[max(0, min(i, len(s.pts)-1))]
}

// locate maps t to a segment index and local parameter. With preferLeft an
// interior knot resolves to the end of the previous segment.
func (s *spline) locate(t float64, preferLeft bool) (int, float64) {
	n := s.segments()
	x := max(0, min(t, 1)) * float64(n)
	i := int(math.Floor(x))
	if preferLeft && i > 0 && float64(i) == x {
		return i - 1, 1
	}
	if i >= n {
		return n - 1, 1
	}
	return i, x - float64(i)
}

func (s *spline) eval(i int, u float64) (curve.Point, curve.Vec2) {
	p0, p1, p2, p3 := s.at(i-1), s.at(i), s.at(i+1), s.at(i+2)
	u2, u3 := u*u, u*u*u

	coord := func(a, b, c, d float64) (float64, float64) {
		pos := 0.5 * (2*b + (c-a)*u + (2*a-5*b+4*c-d)*u2 + (-a+3*b-3*c+d)*u3)
		der := 0.5 * ((c - a) + 2*(2*a-5*b+4*c-d)*u + 3*(-a+3*b-3*c+d)*u2)
		return pos, der * float64(s.segments())
	}
	x, dx := coord(p0.X, p1.X, p2.X, p3.X)
	y, dy := coord(p0.Y, p1.Y, p2.Y, p3.Y)
	return curve.Point{X: x, Y: y}, curve.Vec2{X: dx, Y: dy}
}

func (s *spline) SamplePtDeriv(t float64) (curve.Point, curve.Vec2) {
	i, u := s.locate(t, false)
	return s.eval(i, u)
}

func (s *spline) SamplePtTangent(t float64, sign float64) curve.CurveFitSample {
	i, u := s.locate(t, sign < 0)
	p, d := s.eval(i, u)
	if d.X*d.X+d.Y*d.Y < 1e-18 {
		// the spline stalls where a stroke doubles back; use the chord
		a, b := s.at(i), s.at(i+1)
		d = curve.Vec2{X: b.X - a.X, Y: b.Y - a.Y}
	}
	return curve.CurveFitSample{Point: p, Tangent: d}
}

// BreakCusp reports the first sharp corner strictly inside (start, end).
func (s *spline) BreakCusp(start, end float64) (float64, bool) {
	n := s.segments()
	for k := 1; k < n; k++ {
		t := float64(k) / float64(n)
		if t <= start {
			continue
		}
		if t >= end {
			break
		}
		if s.corner(k) {
			return t, true
		}
	}
	return 0, false
}

func (s *spline) corner(k int) bool {
	a, b, c := s.pts[k-1], s.pts[k], s.pts[k+1]
	ix, iy := b.X-a.X, b.Y-a.Y
	ox, oy := c.X-b.X, c.Y-b.Y
	li := math.Hypot(ix, iy)
	lo := math.Hypot(ox, oy)
	if li == 0 || lo == 0 {
		return false
	}
	return (ix*ox+iy*oy)/(li*lo) < cornerCos
}
