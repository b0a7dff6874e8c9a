package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fyne.io/fyne/v2"
)

// ErrInvalidDocument is returned for stroke files that decode but do not
// describe a usable document.
var ErrInvalidDocument = errors.New("invalid stroke document")

type pointFile struct {
	X        float32  `json:"x"`
	Y        float32  `json:"y"`
	Pressure *float32 `json:"pressure,omitempty"`
	Strength *float32 `json:"strength,omitempty"`
}

type strokeFile struct {
	Selected bool        `json:"selected"`
	Color    string      `json:"color,omitempty"`
	Width    float32     `json:"width,omitempty"`
	Points   []pointFile `json:"points"`
}

type frameFile struct {
	Number  int          `json:"number"`
	Strokes []strokeFile `json:"strokes"`
}

type layerFile struct {
	Name        string      `json:"name"`
	ActiveFrame *int        `json:"active_frame,omitempty"`
	Frames      []frameFile `json:"frames"`
}

type documentFile struct {
	Name        string `json:"name"`
	ActiveLayer *int   `json:"active_layer,omitempty"`
	Settings    *struct {
		CurveEditThreshold  float64 `json:"curve_edit_threshold"`
		EditCurveResolution int     `json:"edit_curve_resolution"`
		MultiEdit           bool    `json:"multi_edit"`
	} `json:"settings,omitempty"`
	Layers []layerFile `json:"layers"`
}

// LoadDocument decodes raw strokes from JSON. Edit curves are never stored;
// every loaded stroke starts in point form. Missing active indices default to
// the first layer and frame; -1 means none.
func LoadDocument(r io.Reader) (*Document, error) {
	var in documentFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode stroke document: %w", err)
	}

	doc := NewDocument(in.Name)
	if in.Settings != nil {
		doc.Settings = Settings{
			CurveEditThreshold:  in.Settings.CurveEditThreshold,
			EditCurveResolution: in.Settings.EditCurveResolution,
			MultiEdit:           in.Settings.MultiEdit,
		}
	}

	for li, lf := range in.Layers {
		layer := doc.AddLayer(lf.Name)
		for _, ff := range lf.Frames {
			frame := layer.AddFrame(ff.Number)
			for _, sf := range ff.Strokes {
				frame.AddStroke(sf.stroke())
			}
		}
		if lf.ActiveFrame != nil {
			if err := setIndex(len(layer.Frames), *lf.ActiveFrame, func(i int) {
				if i < 0 {
					layer.SetActiveFrame(nil)
					return
				}
				layer.SetActiveFrame(layer.Frames[i])
			}); err != nil {
				return nil, fmt.Errorf("layer %d active_frame: %w", li, err)
			}
		}
	}

	if in.ActiveLayer != nil {
		if err := setIndex(len(doc.Layers), *in.ActiveLayer, func(i int) {
			if i < 0 {
				doc.SetActiveLayer(nil)
				return
			}
			doc.SetActiveLayer(doc.Layers[i])
		}); err != nil {
			return nil, fmt.Errorf("active_layer: %w", err)
		}
	}
	return doc, nil
}

func setIndex(n, i int, set func(int)) error {
	if i < -1 || i >= n {
		return fmt.Errorf("%w: index %d out of range [-1, %d)", ErrInvalidDocument, i, n)
	}
	set(i)
	return nil
}

func (sf strokeFile) stroke() *Stroke {
	pts := make([]Point, len(sf.Points))
	for i, p := range sf.Points {
		pts[i] = Point{Pos: fyne.NewPos(p.X, p.Y), Pressure: 1, Strength: 1}
		if p.Pressure != nil {
			pts[i].Pressure = *p.Pressure
		}
		if p.Strength != nil {
			pts[i].Strength = *p.Strength
		}
	}
	s := NewStroke(pts)
	s.Selected = sf.Selected
	if sf.Color != "" {
		s.Color = sf.Color
	}
	if sf.Width > 0 {
		s.Width = sf.Width
	}
	return s
}
