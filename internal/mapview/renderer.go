// Package mapview models the interactive map surface of a hike: what path is
// shown, where the viewport sits, and the draw/edit gestures a user can run
// on it when editing is enabled.
package mapview

import (
	"encoding/json"
	"errors"
	"fmt"

	"backend-cartorando/internal/track"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultZoom    = 14
	DefaultTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// DefaultFallback is where an empty map opens (Chamonix valley).
var DefaultFallback = track.Coordinate{Lat: 45.8326, Lng: 6.8652}

var (
	ErrNotEditable         = errors.New("map is not editable")
	ErrGestureInProgress   = errors.New("a gesture is already in progress")
	ErrNoGesture           = errors.New("no gesture in progress")
	ErrNothingToEdit       = errors.New("no path to edit")
	ErrEmptyShape          = errors.New("shape has no points")
	ErrUnsupportedGeometry = errors.New("only line geometry can be drawn")
	ErrInvalidGeoJSON      = errors.New("invalid geojson")
)

type State string

const (
	StateIdle    State = "idle"
	StateDrawing State = "drawing"
	StateEditing State = "editing"
)

type Config struct {
	Editable      bool
	InitialCenter *track.Coordinate
	Zoom          int
	TileURL       string
	Fallback      *track.Coordinate
}

// ShapeSink receives every finished draw or edit gesture.
type ShapeSink interface {
	AcceptDrawn(track.Track)
}

// SinkFunc adapts a function to ShapeSink.
type SinkFunc func(track.Track)

func (f SinkFunc) AcceptDrawn(t track.Track) { f(t) }

// View is what a client needs to paint the map.
type View struct {
	Center   track.Coordinate           `json:"center"`
	Zoom     int                        `json:"zoom"`
	TileURL  string                     `json:"tile_url"`
	Editable bool                       `json:"editable"`
	Tools    []string                   `json:"tools"`
	State    State                      `json:"state"`
	Path     *geojson.FeatureCollection `json:"path"`
}

// Renderer is owned by one session and is not safe for concurrent use.
type Renderer struct {
	cfg   Config
	sink  ShapeSink
	state State
	shown track.Track
}

func New(cfg Config, sink ShapeSink) *Renderer {
	if cfg.Zoom <= 0 {
		cfg.Zoom = DefaultZoom
	}
	if cfg.TileURL == "" {
		cfg.TileURL = DefaultTileURL
	}
	if cfg.Fallback == nil {
		fb := DefaultFallback
		cfg.Fallback = &fb
	}
	return &Renderer{cfg: cfg, sink: sink, state: StateIdle}
}

// Show replaces the rendered path.
func (r *Renderer) Show(t track.Track) {
	r.shown = t.Clone()
}

func (r *Renderer) State() State {
	return r.state
}

func (r *Renderer) Center() track.Coordinate {
	if r.cfg.InitialCenter != nil {
		return *r.cfg.InitialCenter
	}
	if !r.shown.Empty() {
		return r.shown[0]
	}
	return *r.cfg.Fallback
}

func (r *Renderer) View() View {
	v := View{
		Center:   r.Center(),
		Zoom:     r.cfg.Zoom,
		TileURL:  r.cfg.TileURL,
		Editable: r.cfg.Editable,
		Tools:    []string{},
		State:    r.state,
		Path:     PathCollection(r.shown),
	}
	if r.cfg.Editable {
		v.Tools = []string{"polyline", "edit"}
	}
	return v
}

func (r *Renderer) StartDrawing() error {
	return r.start(StateDrawing)
}

func (r *Renderer) StartEditing() error {
	if r.cfg.Editable && r.state == StateIdle && r.shown.Empty() {
		return ErrNothingToEdit
	}
	return r.start(StateEditing)
}

func (r *Renderer) start(next State) error {
	if !r.cfg.Editable {
		return ErrNotEditable
	}
	if r.state != StateIdle {
		return ErrGestureInProgress
	}
	r.state = next
	return nil
}

// Finish completes the running gesture with the resulting shape and hands it
// to the sink. An empty shape is refused and the gesture stays open.
func (r *Renderer) Finish(points track.Track) error {
	if r.state == StateIdle {
		return ErrNoGesture
	}
	if points.Empty() {
		return ErrEmptyShape
	}
	r.state = StateIdle
	r.shown = points.Clone()
	if r.sink != nil {
		r.sink.AcceptDrawn(points.Clone())
	}
	return nil
}

// FinishGeoJSON is Finish for a shape exported by the map widget. It accepts
// a Feature, a FeatureCollection or a bare geometry; only LineStrings pass.
func (r *Renderer) FinishGeoJSON(raw []byte) error {
	if r.state == StateIdle {
		return ErrNoGesture
	}
	points, err := LineFromGeoJSON(raw)
	if err != nil {
		return err
	}
	return r.Finish(points)
}

// Cancel abandons the running gesture without touching the shown path.
func (r *Renderer) Cancel() {
	r.state = StateIdle
}

// PathCollection renders t as a FeatureCollection holding one LineString, or
// no feature at all when t is empty.
func PathCollection(t track.Track) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if t.Empty() {
		return fc
	}
	line := make(orb.LineString, 0, len(t))
	for _, c := range t {
		line = append(line, orb.Point{c.Lng, c.Lat})
	}
	f := geojson.NewFeature(line)
	f.Properties["points"] = len(t)
	fc.Append(f)
	return fc
}

// LineFromGeoJSON extracts a track from GeoJSON text. With a collection the
// last feature wins, matching how edited layers are reported one by one.
func LineFromGeoJSON(raw []byte) (track.Track, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}

	var geom orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: feature: %v", ErrInvalidGeoJSON, err)
		}
		geom = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: feature collection: %v", ErrInvalidGeoJSON, err)
		}
		for _, f := range fc.Features {
			if _, ok := f.Geometry.(orb.LineString); !ok {
				return nil, ErrUnsupportedGeometry
			}
			geom = f.Geometry
		}
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: geometry: %v", ErrInvalidGeoJSON, err)
		}
		geom = g.Geometry()
	}

	line, ok := geom.(orb.LineString)
	if !ok {
		if geom == nil {
			return nil, ErrEmptyShape
		}
		return nil, ErrUnsupportedGeometry
	}
	out := make(track.Track, 0, len(line))
	for _, p := range line {
		out = append(out, track.Coordinate{Lat: p.Lat(), Lng: p.Lon()})
	}
	return out, nil
}
