// Package editcurve moves grease pencil strokes between their sampled form
// and a fitted edit curve.
//
// Updater works on one stroke at a time. Operator is the user facing entry
// point: it resolves which strokes an invocation touches, drives the
// Updater over them and then tells the rest of the program that the
// document changed.
package editcurve

import (
	"CurveBoard/internal/session"
	"CurveBoard/internal/state"
)

// Fitter produces an edit curve for a run of samples. It reports false when
// no curve fits within threshold. Implementations must not keep points.
type Fitter interface {
	Fit(points []state.Point, threshold float64) (*state.EditCurve, bool)
}

// Params are the already validated inputs of a single stroke update.
type Params struct {
	Threshold  float64
	Resolution int
}

// Outcome is what a single stroke update did.
type Outcome int

const (
	// OutcomeSkipped: nothing to do, the stroke is untouched.
	OutcomeSkipped Outcome = iota
	// OutcomeDeclined: the fitter gave up; the stroke stays in point form.
	OutcomeDeclined
	// OutcomeDropped: a refresh removed the old curve and the refit was
	// declined, so the stroke is back in point form.
	OutcomeDropped
	// OutcomeFitted: the stroke owns a freshly fitted curve.
	OutcomeFitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeclined:
		return "declined"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFitted:
		return "fitted"
	default:
		return "unknown"
	}
}

// Changed reports whether the stroke's representation differs afterwards.
func (o Outcome) Changed() bool {
	return o == OutcomeFitted || o == OutcomeDropped
}

// Updater fits and attaches edit curves.
type Updater struct {
	fitter Fitter
	ids    *session.Generator
}

// NewUpdater returns an updater using f. Curve ids come from ids, or from
// the process-wide generator when ids is nil.
func NewUpdater(f Fitter, ids *session.Generator) *Updater {
	return &Updater{fitter: f, ids: ids}
}

func (u *Updater) newID() session.UUID {
	if u.ids == nil {
		return session.Generate()
	}
	return u.ids.Generate()
}

// EnterEditMode gives a selected stroke without a curve its first one.
// Unselected strokes and strokes that already have a curve are skipped.
func (u *Updater) EnterEditMode(s *state.Stroke, p Params) Outcome {
	if !s.Selected || s.HasEditCurve() {
		return OutcomeSkipped
	}
	if !u.attach(s, p) {
		return OutcomeDeclined
	}
	return OutcomeFitted
}

// RefreshCurve throws away any curve on s and fits a new one. The new curve
// never shares anything with the old one.
func (u *Updater) RefreshCurve(s *state.Stroke, p Params) Outcome {
	dropped := s.ClearEditCurve()
	if u.attach(s, p) {
		return OutcomeFitted
	}
	if dropped {
		return OutcomeDropped
	}
	return OutcomeDeclined
}

func (u *Updater) attach(s *state.Stroke, p Params) bool {
	c, ok := u.fitter.Fit(s.Points, p.Threshold)
	if !ok || c == nil {
		return false
	}
	c.ID = u.newID()
	c.Resolution = p.Resolution
	c.Flag |= state.CurveRecalcGeometry
	s.AttachEditCurve(c)
	return true
}
