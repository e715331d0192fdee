package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"backend-cartorando/internal/mapview"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("editing session not found")
	ErrForbidden       = errors.New("editing session belongs to another user")
)

// Registry keeps the open editing sessions, one per open form.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	mapCfg   mapview.Config
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(deps Deps, mapCfg mapview.Config, ttl time.Duration) *Registry {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Registry{
		sessions: map[string]*Session{},
		deps:     deps,
		mapCfg:   mapCfg,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open starts a session on hikeID, seeded with the record's stored polyline.
func (r *Registry) Open(ctx context.Context, hikeID, ownerID string) (*Session, error) {
	h, err := r.deps.Hikes.Get(ctx, hikeID)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), h, ownerID, r.deps, r.mapCfg, r.clock)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.deps.Log.Info("editing session opened",
		zap.String("session_id", s.ID),
		zap.String("hike_id", hikeID),
		zap.String("owner_id", ownerID),
		zap.Int("points", len(h.Polyline)))
	return s, nil
}

// Get returns the session if it exists and belongs to ownerID.
func (r *Registry) Get(id, ownerID string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return s, nil
}

func (r *Registry) Close(id, ownerID string) error {
	if _, err := r.Get(id, ownerID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.deps.Log.Info("editing session closed", zap.String("session_id", id))
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the ttl and reports how many.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	removed := 0
	for _, s := range candidates {
		if s.idleSince(now) <= r.ttl {
			continue
		}
		r.mu.Lock()
		delete(r.sessions, s.ID)
		r.mu.Unlock()
		removed++
		r.deps.Log.Debug("editing session expired", zap.String("session_id", s.ID))
	}
	return removed
}

// clock defers to r.now so tests can swap it after sessions are open.
func (r *Registry) clock() time.Time {
	return r.now()
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
