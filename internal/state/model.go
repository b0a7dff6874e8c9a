package state

import (
	"slices"

	"CurveBoard/internal/session"

	"fyne.io/fyne/v2"
)

// Point is one sample of a freehand stroke.
type Point struct {
	Pos      fyne.Position
	Pressure float32
	Strength float32
}

// CurvePoint is one anchor of an edit curve with its two Bézier handles.
// Handle1 leads into the anchor, Handle2 leads out of it.
type CurvePoint struct {
	Handle1  fyne.Position
	Anchor   fyne.Position
	Handle2  fyne.Position
	Pressure float32
	Strength float32
}

// CurveFlag holds edit curve state bits.
type CurveFlag uint8

const (
	// CurveRecalcGeometry marks the stroke's render geometry as stale.
	CurveRecalcGeometry CurveFlag = 1 << iota
	CurveSelected
)

// EditCurve is the fitted parametric form of a stroke. Consecutive points
// form cubic segments: Points[i].Anchor, Points[i].Handle2,
// Points[i+1].Handle1, Points[i+1].Anchor.
type EditCurve struct {
	ID         session.UUID
	Points     []CurvePoint
	Resolution int
	Flag       CurveFlag
}

// Segments returns the number of cubic segments.
func (c *EditCurve) Segments() int {
	if len(c.Points) < 2 {
		return 0
	}
	return len(c.Points) - 1
}

func (c *EditCurve) NeedsGeometry() bool {
	return c.Flag&CurveRecalcGeometry != 0
}

func (c *EditCurve) clone() EditCurve {
	out := *c
	out.Points = slices.Clone(c.Points)
	return out
}

// Stroke is an ordered run of sampled points. It may own one EditCurve.
type Stroke struct {
	Points   []Point
	Selected bool
	Color    string
	Width    float32

	id        session.UUID
	editCurve *EditCurve
	geometry  []fyne.Position
}

// NewStroke returns a stroke with a fresh session id.
func NewStroke(points []Point) *Stroke {
	return &Stroke{
		Points: points,
		Color:  "black",
		Width:  3,
		id:     session.Generate(),
	}
}

func (s *Stroke) ID() session.UUID {
	return s.id
}

func (s *Stroke) HasEditCurve() bool {
	return s.editCurve != nil
}

// EditCurve returns a copy of the owned curve.
func (s *Stroke) EditCurve() (EditCurve, bool) {
	if s.editCurve == nil {
		return EditCurve{}, false
	}
	return s.editCurve.clone(), true
}

// AttachEditCurve hands c to the stroke. The caller must not keep c.
// Attaching over an existing curve is a programming error.
func (s *Stroke) AttachEditCurve(c *EditCurve) {
	if c == nil {
		panic("state: attach nil edit curve")
	}
	if s.editCurve != nil {
		panic("state: stroke " + s.id.String() + " already owns edit curve " + s.editCurve.ID.String())
	}
	s.editCurve = c
}

// RebuildGeometry replaces the render buffer with sample's output for a
// snapshot of the owned curve and clears the curve's recalc flag. It
// reports false, leaving the stroke alone, when there is no curve.
func (s *Stroke) RebuildGeometry(sample func(c *EditCurve) []fyne.Position) bool {
	if s.editCurve == nil {
		return false
	}
	snap := s.editCurve.clone()
	s.geometry = sample(&snap)
	s.editCurve.Flag &^= CurveRecalcGeometry
	return true
}

// ClearEditCurve drops the owned curve and reports whether there was one.
func (s *Stroke) ClearEditCurve() bool {
	if s.editCurve == nil {
		return false
	}
	s.editCurve.Points = nil
	s.editCurve = nil
	return true
}

// Geometry returns the render buffer last built for the stroke.
func (s *Stroke) Geometry() []fyne.Position {
	return slices.Clone(s.geometry)
}

// SetGeometry replaces the render buffer.
func (s *Stroke) SetGeometry(pts []fyne.Position) {
	s.geometry = pts
}
