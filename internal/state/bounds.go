package state

import "fyne.io/fyne/v2"

// Rect is an axis aligned bounding box.
type Rect struct {
	Min fyne.Position
	Max fyne.Position
}

func (r Rect) Empty() bool {
	return r.Max.X < r.Min.X || r.Max.Y < r.Min.Y
}

func (r Rect) Size() fyne.Size {
	if r.Empty() {
		return fyne.NewSize(0, 0)
	}
	return fyne.NewSize(r.Max.X-r.Min.X, r.Max.Y-r.Min.Y)
}

// Union returns the smallest box holding both. Empty boxes are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Min: fyne.NewPos(min(r.Min.X, o.Min.X), min(r.Min.Y, o.Min.Y)),
		Max: fyne.NewPos(max(r.Max.X, o.Max.X), max(r.Max.Y, o.Max.Y)),
	}
}

// Pad grows the box by p on every side.
func (r Rect) Pad(p float32) Rect {
	if r.Empty() {
		return r
	}
	return Rect{
		Min: fyne.NewPos(r.Min.X-p, r.Min.Y-p),
		Max: fyne.NewPos(r.Max.X+p, r.Max.Y+p),
	}
}

var emptyRect = Rect{Min: fyne.NewPos(1, 1), Max: fyne.NewPos(0, 0)}

func boundsOf(pts []fyne.Position) Rect {
	if len(pts) == 0 {
		return emptyRect
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Bounds covers the render geometry when built, the raw samples otherwise.
func (s *Stroke) Bounds() Rect {
	if len(s.geometry) > 0 {
		return boundsOf(s.geometry)
	}
	pts := make([]fyne.Position, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Pos
	}
	return boundsOf(pts)
}

// Bounds covers every stroke of the document.
func (d *Document) Bounds() Rect {
	r := emptyRect
	for s := range d.Strokes() {
		r = r.Union(s.Bounds())
	}
	return r
}
