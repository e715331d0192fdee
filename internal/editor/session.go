// Package editor runs hike editing sessions. A session owns the Track Store
// and the editable map of one open form and exposes the entry points the UI
// calls: file chosen or removed, shape finished on the map, submit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"backend-cartorando/internal/gpx"
	"backend-cartorando/internal/hike"
	"backend-cartorando/internal/mapview"
	"backend-cartorando/internal/shared/geo"
	"backend-cartorando/internal/storage"
	"backend-cartorando/internal/track"

	"go.uber.org/zap"
)

// MaxGPXBytes bounds the size of an uploaded GPX file.
const MaxGPXBytes = 20 << 20

var ErrFileTooLarge = errors.New("gpx file too large")

type HikeStore interface {
	Get(ctx context.Context, id string) (hike.Hike, error)
	UpdatePolyline(ctx context.Context, id string, t track.Track) (time.Time, error)
	SetGPXPath(ctx context.Context, id, path string) error
}

type BlobStore interface {
	Upload(ctx context.Context, ownerID, path, kind string, data []byte) (storage.Object, error)
}

type Broadcaster interface {
	BroadcastJSON(hikeID string, v any) error
}

// Deps are the collaborators a session talks to. Broadcaster may be nil.
type Deps struct {
	Hikes       HikeStore
	Blobs       BlobStore
	Broadcaster Broadcaster
	Log         *zap.Logger
}

type chosenFile struct {
	name string
	data []byte
}

type Session struct {
	ID      string
	HikeID  string
	OwnerID string

	mu       sync.Mutex
	deps     Deps
	title    string
	gpxPath  *string
	store    *track.Store
	renderer *mapview.Renderer
	file     *chosenFile
	now      func() time.Time
	lastSeen time.Time
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID       string        `json:"id"`
	HikeID   string        `json:"hike_id"`
	Source   track.Source  `json:"source"`
	Dirty    bool          `json:"dirty"`
	Track    track.Track   `json:"track"`
	LengthKm float64       `json:"length_km"`
	FileName string        `json:"file_name,omitempty"`
	GPXPath  *string       `json:"gpx_path"`
	State    mapview.State `json:"state"`
}

// UploadResult says what became of a chosen file.
type UploadResult struct {
	Track    track.Track `json:"track"`
	Accepted bool        `json:"accepted"`
}

// SubmitResult is what was written to the hike record.
type SubmitResult struct {
	Polyline  track.Track `json:"polyline"`
	GPXPath   *string     `json:"gpx_path"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
	LengthKm  float64     `json:"length_km"`
}

// TrackEvent is broadcast to viewers of a hike after a submit.
type TrackEvent struct {
	HikeID    string       `json:"hike_id"`
	Polyline  track.Track  `json:"polyline"`
	Source    track.Source `json:"source"`
	LengthKm  float64      `json:"length_km"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newSession(id string, h hike.Hike, ownerID string, deps Deps, mapCfg mapview.Config, now func() time.Time) *Session {
	s := &Session{
		ID:      id,
		HikeID:  h.ID,
		OwnerID: ownerID,
		deps:    deps,
		title:   h.Title,
		gpxPath: h.GPXPath,
		store:   track.NewStore(),
		now:     now,
	}
	mapCfg.Editable = true
	s.renderer = mapview.New(mapCfg, mapview.SinkFunc(s.acceptDrawn))
	s.store.LoadPersisted(h.Polyline)
	s.renderer.Show(s.store.Current())
	s.lastSeen = now()
	return s
}

// acceptDrawn is the renderer's sink. It runs with s.mu held.
func (s *Session) acceptDrawn(t track.Track) {
	s.store.AcceptDrawn(t)
	s.renderer.Show(s.store.Current())
}

// OnFileChosen reads and parses a GPX file. A non-empty result replaces the
// displayed track unless a newer file was chosen, or the file removed, while
// this one was being read.
func (s *Session) OnFileChosen(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	s.mu.Lock()
	token := s.store.BeginUpload()
	s.mu.Unlock()

	data, err := io.ReadAll(io.LimitReader(r, MaxGPXBytes+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("read gpx file: %w", err)
	}
	if len(data) > MaxGPXBytes {
		return UploadResult{}, ErrFileTooLarge
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	parsed := gpx.Parse(string(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()

	accepted := false
	if !parsed.Empty() {
		accepted = s.store.AcceptUploadedToken(token, parsed)
	}
	if accepted {
		s.file = &chosenFile{name: name, data: data}
		s.renderer.Show(s.store.Current())
	}
	s.deps.Log.Debug("gpx file chosen",
		zap.String("session_id", s.ID),
		zap.String("file", name),
		zap.Int("points", len(parsed)),
		zap.Bool("accepted", accepted))
	return UploadResult{Track: parsed, Accepted: accepted}, nil
}

// OnFileRemoved forgets the chosen file and reverts an unsaved upload.
func (s *Session) OnFileRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	s.store.ClearUploaded()
	s.file = nil
	s.renderer.Show(s.store.Current())
}

func (s *Session) GetDisplayTrack() track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Current()
}

// OnMapShapeFinalized takes a finished shape. When a gesture is open the
// shape completes it; otherwise it is accepted as drawn directly.
func (s *Session) OnMapShapeFinalized(points track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	if s.renderer.State() != mapview.StateIdle {
		return s.renderer.Finish(points)
	}
	if points.Empty() {
		return mapview.ErrEmptyShape
	}
	s.acceptDrawn(points)
	return nil
}

// FinishShapeGeoJSON completes the open gesture with a shape exported by the
// map widget.
func (s *Session) FinishShapeGeoJSON(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return s.renderer.FinishGeoJSON(raw)
}

func (s *Session) StartDrawing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return s.renderer.StartDrawing()
}

func (s *Session) StartEditing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	return s.renderer.StartEditing()
}

func (s *Session) CancelGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	s.renderer.Cancel()
}

func (s *Session) GetCommittedTrack() track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Commit()
}

func (s *Session) View() mapview.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.View()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.store.Current()
	snap := Snapshot{
		ID:       s.ID,
		HikeID:   s.HikeID,
		Source:   s.store.Source(),
		Dirty:    s.store.Dirty(),
		Track:    current,
		LengthKm: geo.LengthKm(current),
		GPXPath:  s.gpxPath,
		State:    s.renderer.State(),
	}
	if s.file != nil {
		snap.FileName = s.file.name
	}
	return snap
}

// Submit writes the committed track to the hike record and archives the
// chosen GPX file. Without a file, a hike that has never had one gets a GPX
// generated from the committed track. I/O errors are returned as is.
func (s *Session) Submit(ctx context.Context) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()

	committed := s.store.Commit()
	source := s.store.Source()
	result := SubmitResult{Polyline: committed, LengthKm: geo.LengthKm(committed)}

	if !committed.Empty() {
		updatedAt, err := s.deps.Hikes.UpdatePolyline(ctx, s.HikeID, committed)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("update polyline: %w", err)
		}
		result.UpdatedAt = updatedAt
	}

	path, err := s.archive(ctx, committed)
	if err != nil {
		return SubmitResult{}, err
	}
	if path != "" {
		if err := s.deps.Hikes.SetGPXPath(ctx, s.HikeID, path); err != nil {
			return SubmitResult{}, fmt.Errorf("update gpx path: %w", err)
		}
		s.gpxPath = &path
	}
	result.GPXPath = s.gpxPath

	s.store.Rebase()
	s.file = nil

	if s.deps.Broadcaster != nil && !committed.Empty() {
		event := TrackEvent{
			HikeID:    s.HikeID,
			Polyline:  committed,
			Source:    source,
			LengthKm:  result.LengthKm,
			UpdatedAt: result.UpdatedAt,
		}
		if err := s.deps.Broadcaster.BroadcastJSON(s.HikeID, event); err != nil {
			s.deps.Log.Warn("broadcast track", zap.String("hike_id", s.HikeID), zap.Error(err))
		}
	}

	s.deps.Log.Info("hike track submitted",
		zap.String("session_id", s.ID),
		zap.String("hike_id", s.HikeID),
		zap.String("source", string(source)),
		zap.Int("points", len(committed)))
	return result, nil
}

// archive uploads the GPX file to keep for the hike and returns its path, or
// "" when the stored path stays as it is.
func (s *Session) archive(ctx context.Context, committed track.Track) (string, error) {
	var path string
	var data []byte
	switch {
	case s.file != nil:
		path = storage.GPXPath(s.OwnerID, s.HikeID)
		data = s.file.data
	case s.gpxPath == nil && !committed.Empty():
		encoded, err := gpx.Encode(committed, s.title)
		if err != nil {
			return "", fmt.Errorf("encode default gpx: %w", err)
		}
		path = storage.DefaultGPXPath(s.OwnerID, s.HikeID)
		data = encoded
	default:
		return "", nil
	}

	if _, err := s.deps.Blobs.Upload(ctx, s.OwnerID, path, storage.KindGPX, data); err != nil {
		return "", fmt.Errorf("upload gpx: %w", err)
	}
	return path, nil
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
