package editcurve

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"CurveBoard/internal/depgraph"
	"CurveBoard/internal/session"
	"CurveBoard/internal/state"
)

// Operator names, as they appear in reports, events and spans.
const (
	OpEnterEditMode  = "gpencil.stroke_enter_editcurve_mode"
	OpWriteCurveData = "gpencil.write_stroke_curve_data"
)

// EventDataEdited is the event type sent after an operator changed data.
const EventDataEdited = "gpencil.data.edited"

// GeometryUpdater rebuilds a stroke's render buffer after its
// representation changed.
type GeometryUpdater interface {
	Update(s *state.Stroke)
}

// Invalidator is told once per finished operator that doc changed.
type Invalidator interface {
	Invalidate(doc *state.Document, what depgraph.Recalc)
}

// Notifier is told once per finished operator that data changed.
type Notifier interface {
	Notify(ev Event)
}

// Event describes one finished operator invocation.
type Event struct {
	Type     string         `json:"type"`
	Operator string         `json:"operator"`
	Document string         `json:"document"`
	Strokes  []session.UUID `json:"strokes"`
	Site     string         `json:"site"`
	Time     time.Time      `json:"time"`
}

// Config is the explicit per-invocation configuration. Values are expected
// to be validated already.
type Config struct {
	Threshold  float64
	Resolution int
	MultiEdit  bool
}

// ConfigFromSettings reads the document's stored settings.
func ConfigFromSettings(s state.Settings) Config {
	return Config{
		Threshold:  s.CurveEditThreshold,
		Resolution: s.EditCurveResolution,
		MultiEdit:  s.MultiEdit,
	}
}

func (c Config) params() Params {
	return Params{Threshold: c.Threshold, Resolution: c.Resolution}
}

// Report summarizes one operator invocation.
type Report struct {
	Operator  string
	Converted int
	Declined  int
	Skipped   int
	// Strokes lists the strokes whose representation changed, in
	// processing order.
	Strokes []session.UUID
}

type nopGeometry struct{}

func (nopGeometry) Update(*state.Stroke) {}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(*state.Document, depgraph.Recalc) {}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// Option configures an Operator.
type Option func(*Operator)

// WithGeometry sets what rebuilds render buffers of converted strokes.
func WithGeometry(g GeometryUpdater) Option {
	return func(o *Operator) { o.geometry = g }
}

// WithInvalidator sets what is told the document needs recalculating.
func WithInvalidator(i Invalidator) Option {
	return func(o *Operator) { o.invalidator = i }
}

// WithNotifier sets where change events go.
func WithNotifier(n Notifier) Option {
	return func(o *Operator) { o.notifier = n }
}

// WithLogger sets the logger; a component attribute is added to it.
func WithLogger(l *slog.Logger) Option {
	return func(o *Operator) { o.logger = l }
}

// WithTracer sets the tracer for per-invocation spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Operator) { o.tracer = t }
}

// WithMeter sets the meter the fitted and declined counters come from.
func WithMeter(m metric.Meter) Option {
	return func(o *Operator) { o.meter = m }
}

// Operator runs the curve edit operators against a document. It is meant
// to be driven from one goroutine at a time per document.
type Operator struct {
	updater     *Updater
	geometry    GeometryUpdater
	invalidator Invalidator
	notifier    Notifier
	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter

	fitted   metric.Int64Counter
	declined metric.Int64Counter
}

// NewOperator wires u to the given collaborators. Missing ones do nothing.
func NewOperator(u *Updater, opts ...Option) *Operator {
	o := &Operator{
		updater:     u,
		geometry:    nopGeometry{},
		invalidator: nopInvalidator{},
		notifier:    nopNotifier{},
		logger:      slog.Default(),
		tracer:      tracenoop.NewTracerProvider().Tracer("editcurve"),
		meter:       metricnoop.NewMeterProvider().Meter("editcurve"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "editcurve")

	var err error
	if o.fitted, err = o.meter.Int64Counter("editcurve.strokes.fitted",
		metric.WithDescription("Strokes that received a fitted edit curve")); err != nil {
		o.logger.Warn("fitted counter unavailable", "error", err)
		o.fitted = metricnoop.Int64Counter{}
	}
	if o.declined, err = o.meter.Int64Counter("editcurve.strokes.declined",
		metric.WithDescription("Strokes the fitter could not convert")); err != nil {
		o.logger.Warn("declined counter unavailable", "error", err)
		o.declined = metricnoop.Int64Counter{}
	}
	return o
}

// requireActiveFrame checks the context every operator needs: a document
// whose active layer has an active frame.
func requireActiveFrame(doc *state.Document) (*state.Frame, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	layer := doc.ActiveLayer()
	if layer == nil {
		return nil, ErrNoActiveLayer
	}
	frame := layer.ActiveFrame()
	if frame == nil {
		return nil, ErrNoActiveFrame
	}
	return frame, nil
}

// sessionFrames lists the frames a bulk pass visits, in storage order: each
// layer's active frame. Config.MultiEdit does not widen this, so a pass
// with multi-frame editing on converts exactly the same strokes.
func sessionFrames(doc *state.Document) []*state.Frame {
	var frames []*state.Frame
	for _, layer := range doc.Layers {
		if f := layer.ActiveFrame(); f != nil {
			frames = append(frames, f)
		}
	}
	return frames
}

func (o *Operator) begin(ctx context.Context, op string, doc *state.Document) (context.Context, trace.Span) {
	name := ""
	if doc != nil {
		name = doc.Name
	}
	return o.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("gpencil.document", name),
	))
}

func (o *Operator) cancel(span trace.Span, op string, err error) (Report, error) {
	span.SetStatus(codes.Error, err.Error())
	span.End()
	o.logger.Info("operator cancelled", "op", op, "reason", err)
	return Report{Operator: op}, &OpError{Op: op, Err: err}
}

// EnterEditMode converts every selected stroke without a curve in each
// layer's active frame. Strokes the fitter declines stay as they are and do
// not stop the pass. The threshold is stored in the document settings.
func (o *Operator) EnterEditMode(ctx context.Context, doc *state.Document, cfg Config) (Report, error) {
	ctx, span := o.begin(ctx, OpEnterEditMode, doc)
	if _, err := requireActiveFrame(doc); err != nil {
		return o.cancel(span, OpEnterEditMode, err)
	}
	defer span.End()

	report := Report{Operator: OpEnterEditMode}
	for _, frame := range sessionFrames(doc) {
		for _, s := range frame.Strokes {
			if !s.Selected {
				continue
			}
			switch o.updater.EnterEditMode(s, cfg.params()) {
			case OutcomeFitted:
				o.geometry.Update(s)
				report.Converted++
				report.Strokes = append(report.Strokes, s.ID())
			case OutcomeDeclined:
				report.Declined++
				o.logger.Debug("fit declined", "stroke", s.ID(), "points", len(s.Points))
			default:
				report.Skipped++
			}
		}
	}

	// the threshold used last is what a later write refits with
	doc.Settings.CurveEditThreshold = cfg.Threshold

	o.finish(ctx, span, doc, report)
	return report, nil
}

// WriteCurveData refits every selected stroke in the active layer's active
// frame, replacing whatever curve it had.
func (o *Operator) WriteCurveData(ctx context.Context, doc *state.Document, cfg Config) (Report, error) {
	ctx, span := o.begin(ctx, OpWriteCurveData, doc)
	frame, err := requireActiveFrame(doc)
	if err != nil {
		return o.cancel(span, OpWriteCurveData, err)
	}
	defer span.End()

	report := Report{Operator: OpWriteCurveData}
	for _, s := range frame.Strokes {
		if !s.Selected {
			continue
		}
		outcome := o.updater.RefreshCurve(s, cfg.params())
		if outcome.Changed() {
			o.geometry.Update(s)
			report.Strokes = append(report.Strokes, s.ID())
		}
		if outcome == OutcomeFitted {
			report.Converted++
		} else {
			report.Declined++
		}
	}

	o.finish(ctx, span, doc, report)
	return report, nil
}

func (o *Operator) finish(ctx context.Context, span trace.Span, doc *state.Document, r Report) {
	o.invalidator.Invalidate(doc, depgraph.RecalcTransform|depgraph.RecalcGeometry)
	o.notifier.Notify(Event{
		Type:     EventDataEdited,
		Operator: r.Operator,
		Document: doc.Name,
		Strokes:  r.Strokes,
		Site:     session.SiteID(),
		Time:     time.Now(),
	})

	attrs := metric.WithAttributes(attribute.String("operator", r.Operator))
	o.fitted.Add(ctx, int64(r.Converted), attrs)
	o.declined.Add(ctx, int64(r.Declined), attrs)

	span.SetAttributes(
		attribute.Int("editcurve.converted", r.Converted),
		attribute.Int("editcurve.declined", r.Declined),
		attribute.Int("editcurve.skipped", r.Skipped),
	)
	o.logger.Info("operator finished",
		"op", r.Operator,
		"document", doc.Name,
		"converted", r.Converted,
		"declined", r.Declined,
		"skipped", r.Skipped,
	)
}
