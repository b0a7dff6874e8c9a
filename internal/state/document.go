package state

import (
	"iter"
	"slices"

	"CurveBoard/internal/session"
)

// Settings are the document-level knobs the curve operators read.
type Settings struct {
	CurveEditThreshold  float64
	EditCurveResolution int
	MultiEdit           bool
}

func DefaultSettings() Settings {
	return Settings{
		CurveEditThreshold:  0.1,
		EditCurveResolution: 32,
	}
}

// Frame is one keyframe of a layer.
type Frame struct {
	Number  int
	Strokes []*Stroke

	doc *Document
}

// AddStroke appends s to the frame.
func (f *Frame) AddStroke(s *Stroke) {
	f.Strokes = append(f.Strokes, s)
	if f.doc != nil {
		f.doc.track(s)
	}
}

// RemoveStroke deletes s from the frame, releasing its edit curve.
func (f *Frame) RemoveStroke(s *Stroke) bool {
	i := slices.Index(f.Strokes, s)
	if i < 0 {
		return false
	}
	f.Strokes = slices.Delete(f.Strokes, i, i+1)
	s.ClearEditCurve()
	if f.doc != nil {
		delete(f.doc.index, s.ID())
	}
	return true
}

// Layer holds frames in creation order; at most one is active.
type Layer struct {
	Name   string
	Frames []*Frame

	active int
	doc    *Document
}

// AddFrame appends a new empty frame. The first frame becomes active.
func (l *Layer) AddFrame(number int) *Frame {
	f := &Frame{Number: number, doc: l.doc}
	l.Frames = append(l.Frames, f)
	if l.active < 0 {
		l.active = len(l.Frames) - 1
	}
	return f
}

// ActiveFrame returns nil when the layer has no active frame.
func (l *Layer) ActiveFrame() *Frame {
	if l.active < 0 || l.active >= len(l.Frames) {
		return nil
	}
	return l.Frames[l.active]
}

// SetActiveFrame makes f active. A nil f clears it; a frame not owned by
// the layer is rejected.
func (l *Layer) SetActiveFrame(f *Frame) bool {
	if f == nil {
		l.active = -1
		return true
	}
	i := slices.Index(l.Frames, f)
	if i < 0 {
		return false
	}
	l.active = i
	return true
}

// Document is the grease pencil data block: layers, frames and strokes.
type Document struct {
	Name     string
	Settings Settings
	Layers   []*Layer

	active int
	index  map[session.UUID]*Stroke
}

func NewDocument(name string) *Document {
	return &Document{
		Name:     name,
		Settings: DefaultSettings(),
		active:   -1,
		index:    make(map[session.UUID]*Stroke),
	}
}

// AddLayer appends a layer. The first layer becomes active.
func (d *Document) AddLayer(name string) *Layer {
	l := &Layer{Name: name, active: -1, doc: d}
	d.Layers = append(d.Layers, l)
	if d.active < 0 {
		d.active = len(d.Layers) - 1
	}
	return l
}

func (d *Document) ActiveLayer() *Layer {
	if d.active < 0 || d.active >= len(d.Layers) {
		return nil
	}
	return d.Layers[d.active]
}

// SetActiveLayer makes l active; nil clears it.
func (d *Document) SetActiveLayer(l *Layer) bool {
	if l == nil {
		d.active = -1
		return true
	}
	i := slices.Index(d.Layers, l)
	if i < 0 {
		return false
	}
	d.active = i
	return true
}

func (d *Document) track(s *Stroke) {
	if d.index == nil {
		d.index = make(map[session.UUID]*Stroke)
	}
	d.index[s.ID()] = s
}

// Stroke looks a stroke up by id.
func (d *Document) Stroke(id session.UUID) (*Stroke, bool) {
	s, ok := d.index[id]
	return s, ok
}

// Strokes iterates every stroke in layer, frame, stroke order.
func (d *Document) Strokes() iter.Seq[*Stroke] {
	return func(yield func(*Stroke) bool) {
		for _, l := range d.Layers {
			for _, f := range l.Frames {
				for _, s := range f.Strokes {
					if !yield(s) {
						return
					}
				}
			}
		}
	}
}
