package editcurve

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"CurveBoard/internal/depgraph"
	"CurveBoard/internal/fit"
	"CurveBoard/internal/geometry"
	"CurveBoard/internal/session"
	"CurveBoard/internal/state"
)

// fakeFitter fits any stroke with at least minPoints samples.
type fakeFitter struct {
	minPoints int
	calls     int
}

func (f *fakeFitter) Fit(points []state.Point, threshold float64) (*state.EditCurve, bool) {
	f.calls++
	if len(points) < f.minPoints || len(points) < 2 {
		return nil, false
	}
	first, last := points[0].Pos, points[len(points)-1].Pos
	return &state.EditCurve{Points: []state.CurvePoint{
		{Handle1: first, Anchor: first, Handle2: first},
		{Handle1: last, Anchor: last, Handle2: last},
	}}, true
}

type recordingGeometry struct {
	updated []session.UUID
}

func (g *recordingGeometry) Update(s *state.Stroke) {
	g.updated = append(g.updated, s.ID())
}

type recordingNotifier struct {
	events []Event
}

func (n *recordingNotifier) Notify(ev Event) {
	n.events = append(n.events, ev)
}

func samples(n int) []state.Point {
	pts := make([]state.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = state.Point{
			Pos:      fyne.NewPos(float32(i)*4, float32(20*math.Sin(a))),
			Pressure: 1,
			Strength: 1,
		}
	}
	return pts
}

func selected(n int) *state.Stroke {
	s := state.NewStroke(samples(n))
	s.Selected = true
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	op       *Operator
	fitter   *fakeFitter
	geometry *recordingGeometry
	graph    *depgraph.Graph
	notifier *recordingNotifier
	spans    *tracetest.SpanRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fitter:   &fakeFitter{minPoints: 3},
		geometry: &recordingGeometry{},
		graph:    depgraph.New(),
		notifier: &recordingNotifier{},
		spans:    tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanRecorder(h.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h.op = NewOperator(NewUpdater(h.fitter, session.NewGenerator()),
		WithGeometry(h.geometry),
		WithInvalidator(h.graph),
		WithNotifier(h.notifier),
		WithLogger(quietLogger()),
		WithTracer(tp.Tracer("test")),
	)
	return h
}

var cfg = Config{Threshold: 0.1, Resolution: 12}

func TestUpdaterEnterEditMode(t *testing.T) {
	f := &fakeFitter{minPoints: 3}
	u := NewUpdater(f, nil)

	s := selected(10)
	require.Equal(t, OutcomeFitted, u.EnterEditMode(s, Params{Threshold: 0.1, Resolution: 7}))
	c, ok := s.EditCurve()
	require.True(t, ok)
	assert.True(t, c.ID.IsGenerated())
	assert.Equal(t, 7, c.Resolution)
	assert.True(t, c.NeedsGeometry())

	// second call is a no-op
	assert.Equal(t, OutcomeSkipped, u.EnterEditMode(s, Params{Threshold: 0.5, Resolution: 99}))
	again, _ := s.EditCurve()
	assert.Equal(t, c, again)
	assert.Equal(t, 1, f.calls)

	unselected := state.NewStroke(samples(10))
	assert.Equal(t, OutcomeSkipped, u.EnterEditMode(unselected, Params{Threshold: 0.1, Resolution: 7}))
	assert.False(t, unselected.HasEditCurve())
	assert.Equal(t, 1, f.calls)

	short := selected(2)
	assert.Equal(t, OutcomeDeclined, u.EnterEditMode(short, Params{Threshold: 0.1, Resolution: 7}))
	assert.False(t, short.HasEditCurve())
}

func TestUpdaterRefreshCurve(t *testing.T) {
	u := NewUpdater(&fakeFitter{minPoints: 3}, session.NewGenerator())
	s := selected(10)

	require.Equal(t, OutcomeFitted, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 4}))
	first, _ := s.EditCurve()

	require.Equal(t, OutcomeFitted, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 8}))
	second, _ := s.EditCurve()

	require.Equal(t, OutcomeFitted, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 8}))
	third, _ := s.EditCurve()

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, second.ID, third.ID)
	assert.Equal(t, 8, third.Resolution)
	assert.True(t, third.NeedsGeometry())

	// old snapshots stay valid and detached from the stroke
	assert.Len(t, first.Points, 2)
	assert.Equal(t, 4, first.Resolution)
}

func TestUpdaterRefreshDropsOnDecline(t *testing.T) {
	f := &fakeFitter{minPoints: 3}
	u := NewUpdater(f, nil)
	s := selected(10)
	require.Equal(t, OutcomeFitted, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 4}))

	f.minPoints = 100
	assert.Equal(t, OutcomeDropped, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 4}))
	assert.False(t, s.HasEditCurve())
	assert.Equal(t, OutcomeDeclined, u.RefreshCurve(s, Params{Threshold: 0.1, Resolution: 4}))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "fitted", OutcomeFitted.String())
	assert.Equal(t, "dropped", OutcomeDropped.String())
	assert.Equal(t, "unknown", Outcome(42).String())
	assert.True(t, OutcomeDropped.Changed())
	assert.False(t, OutcomeDeclined.Changed())
}

// Scenario A: a real fit of a 50 sample stroke.
func TestEnterEditModeRealFitter(t *testing.T) {
	doc := state.NewDocument("doc")
	frame := doc.AddLayer("ink").AddFrame(1)
	s := selected(50)
	frame.AddStroke(s)

	op := NewOperator(NewUpdater(fit.Fitter{}, nil),
		WithGeometry(geometry.Tessellator{}),
		WithLogger(quietLogger()),
	)
	report, err := op.EnterEditMode(context.Background(), doc, Config{Threshold: 0.1, Resolution: 12})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)

	c, ok := s.EditCurve()
	require.True(t, ok)
	assert.Equal(t, 12, c.Resolution)
	assert.False(t, c.NeedsGeometry(), "geometry was rebuilt")
	assert.Len(t, s.Geometry(), c.Segments()*12+1)
}

func TestEnterEditModeBulk(t *testing.T) {
	h := newHarness(t)
	doc := state.NewDocument("doc")
	ink := doc.AddLayer("ink")
	fill := doc.AddLayer("fill")

	f1 := ink.AddFrame(1)
	a, b, short := selected(10), state.NewStroke(samples(10)), selected(2)
	f1.AddStroke(a)
	f1.AddStroke(b)
	f1.AddStroke(short)

	f2 := fill.AddFrame(1)
	c := selected(5)
	f2.AddStroke(c)

	report, err := h.op.EnterEditMode(context.Background(), doc, cfg)
	require.NoError(t, err)
	assert.Equal(t, OpEnterEditMode, report.Operator)
	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 1, report.Declined)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, []session.UUID{a.ID(), c.ID()}, report.Strokes)

	assert.True(t, a.HasEditCurve())
	assert.False(t, b.HasEditCurve(), "unselected strokes are never converted")
	assert.False(t, short.HasEditCurve())
	assert.True(t, c.HasEditCurve())

	assert.Equal(t, []session.UUID{a.ID(), c.ID()}, h.geometry.updated)
	assert.Equal(t, depgraph.RecalcTransform|depgraph.RecalcGeometry, h.graph.Pending(doc))
	assert.Equal(t, uint64(1), h.graph.Tagged())

	require.Len(t, h.notifier.events, 1)
	ev := h.notifier.events[0]
	assert.Equal(t, EventDataEdited, ev.Type)
	assert.Equal(t, OpEnterEditMode, ev.Operator)
	assert.Equal(t, "doc", ev.Document)
	assert.Equal(t, session.SiteID(), ev.Site)

	spans := h.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, OpEnterEditMode, spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

// Scenario B: curved strokes are left alone by a later pass.
func TestEnterEditModeLeavesCurvedStrokes(t *testing.T) {
	h := newHarness(t)
	doc := state.NewDocument("doc")
	frame := doc.AddLayer("ink").AddFrame(1)
	s := selected(10)
	frame.AddStroke(s)

	_, err := h.op.EnterEditMode(context.Background(), doc, cfg)
	require.NoError(t, err)
	before, _ := s.EditCurve()

	report, err := h.op.EnterEditMode(context.Background(), doc, Config{Threshold: 5, Resolution: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Converted)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Strokes)

	after, _ := s.EditCurve()
	assert.Equal(t, before, after)
	assert.Equal(t, 12, after.Resolution)
	assert.Equal(t, 1, h.fitter.calls)
	// the operator still finished, so hooks ran again
	assert.Len(t, h.notifier.events, 2)
	assert.Equal(t, 5.0, doc.Settings.CurveEditThreshold)
}

// Scenario C: nothing happens without the required context.
func TestOperatorsCancel(t *testing.T) {
	noFrame := state.NewDocument("no-frame")
	l := noFrame.AddLayer("ink")
	inactive := l.AddFrame(1)
	inactive.AddStroke(selected(10))
	l.SetActiveFrame(nil)

	noLayer := state.NewDocument("no-layer")
	noLayer.AddLayer("ink").AddFrame(1).AddStroke(selected(10))
	noLayer.SetActiveLayer(nil)

	tests := []struct {
		name string
		doc  *state.Document
		want error
	}{
		{"no document", nil, ErrNoDocument},
		{"no active layer", noLayer, ErrNoActiveLayer},
		{"no active frame", noFrame, ErrNoActiveFrame},
	}
	other := Config{Threshold: 0.7, Resolution: 12}
	ops := map[string]func(*Operator, *state.Document) (Report, error){
		OpEnterEditMode: func(o *Operator, d *state.Document) (Report, error) {
			return o.EnterEditMode(context.Background(), d, other)
		},
		OpWriteCurveData: func(o *Operator, d *state.Document) (Report, error) {
			return o.WriteCurveData(context.Background(), d, other)
		},
	}

	for opName, run := range ops {
		for _, tt := range tests {
			t.Run(opName+"/"+tt.name, func(t *testing.T) {
				h := newHarness(t)
				report, err := run(h.op, tt.doc)

				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCancelled)
				assert.ErrorIs(t, err, tt.want)
				var opErr *OpError
				require.ErrorAs(t, err, &opErr)
				assert.Equal(t, opName, opErr.Op)
				assert.Equal(t, opName, report.Operator)

				assert.Zero(t, h.fitter.calls)
				assert.Empty(t, h.geometry.updated)
				assert.Empty(t, h.notifier.events)
				assert.Zero(t, h.graph.Tagged())
				if tt.doc != nil {
					assert.Equal(t, state.DefaultSettings(), tt.doc.Settings)
					for s := range tt.doc.Strokes() {
						assert.False(t, s.HasEditCurve())
					}
				}

				spans := h.spans.Ended()
				require.Len(t, spans, 1)
				assert.Equal(t, codes.Error, spans[0].Status().Code)
			})
		}
	}
}

// Scenario D: with multi-edit on, only active frames are visited.
func TestEnterEditModeMultiEditKeepsActiveFrameScope(t *testing.T) {
	h := newHarness(t)
	doc := state.NewDocument("doc")

	var activeStrokes, otherStrokes []*state.Stroke
	for _, name := range []string{"ink", "fill"} {
		layer := doc.AddLayer(name)
		active := layer.AddFrame(1)
		other := layer.AddFrame(2)
		s, o := selected(10), selected(10)
		active.AddStroke(s)
		other.AddStroke(o)
		activeStrokes = append(activeStrokes, s)
		otherStrokes = append(otherStrokes, o)
	}

	for _, multi := range []bool{false, true} {
		c := cfg
		c.MultiEdit = multi
		_, err := h.op.EnterEditMode(context.Background(), doc, c)
		require.NoError(t, err)

		for _, s := range activeStrokes {
			assert.True(t, s.HasEditCurve())
		}
		for _, s := range otherStrokes {
			assert.False(t, s.HasEditCurve(), "multi_edit=%v reached a non-active frame", multi)
		}
	}
}

func TestWriteCurveData(t *testing.T) {
	h := newHarness(t)
	doc := state.NewDocument("doc")
	ink := doc.AddLayer("ink")
	frame := ink.AddFrame(1)
	a, b, short := selected(10), state.NewStroke(samples(10)), selected(2)
	frame.AddStroke(a)
	frame.AddStroke(b)
	frame.AddStroke(short)

	// strokes on other layers are out of reach for this operator
	elsewhere := selected(10)
	doc.AddLayer("fill").AddFrame(1).AddStroke(elsewhere)

	report, err := h.op.WriteCurveData(context.Background(), doc, cfg)
	require.NoError(t, err)
	assert.Equal(t, OpWriteCurveData, report.Operator)
	assert.Equal(t, 1, report.Converted)
	assert.Equal(t, 1, report.Declined)
	first, _ := a.EditCurve()

	report, err = h.op.WriteCurveData(context.Background(), doc, Config{Threshold: 0.1, Resolution: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	second, _ := a.EditCurve()

	assert.NotEqual(t, first.ID, second.ID, "a refresh never reuses a curve")
	assert.Equal(t, 20, second.Resolution)
	assert.False(t, b.HasEditCurve())
	assert.False(t, elsewhere.HasEditCurve())
	assert.Len(t, h.notifier.events, 2)
	assert.Equal(t, uint64(2), h.graph.Tagged())
}

func TestConfigFromSettings(t *testing.T) {
	got := ConfigFromSettings(state.Settings{CurveEditThreshold: 0.3, EditCurveResolution: 9, MultiEdit: true})
	assert.Equal(t, Config{Threshold: 0.3, Resolution: 9, MultiEdit: true}, got)
}

func TestOpError(t *testing.T) {
	err := &OpError{Op: OpEnterEditMode, Err: ErrNoActiveFrame}
	assert.Equal(t, OpEnterEditMode+": operator cancelled: no active frame", err.Error())
}
