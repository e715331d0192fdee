package hike

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend-cartorando/internal/db"
	"backend-cartorando/internal/track"

	"github.com/google/uuid"
)

type Repository struct {
	db db.Querier
}

func NewRepository(db db.Querier) *Repository {
	return &Repository{db: db}
}

// Create stores a new hike. Its geometry always starts absent.
func (r *Repository) Create(ctx context.Context, input Hike) (Hike, error) {
	input.ID = uuid.NewString()
	input.Polyline = nil
	input.GPXPath = nil
	if input.Difficulty == "" {
		input.Difficulty = "easy"
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO hikes (id, owner_id, title, description, region, difficulty, distance_km, elevation_gain_m, polyline)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'[]'::jsonb)
		RETURNING created_at, updated_at
	`, input.ID, input.OwnerID, input.Title, input.Description, input.Region, input.Difficulty, input.DistanceKm, input.ElevationGainM)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return Hike{}, err
	}
	return input, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Hike, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, owner_id, title, description, region, difficulty, distance_km, elevation_gain_m,
		       polyline, gpx_path, created_at, updated_at
		FROM hikes WHERE id=$1
	`, id)

	var h Hike
	var polyline []byte
	if err := row.Scan(&h.ID, &h.OwnerID, &h.Title, &h.Description, &h.Region, &h.Difficulty, &h.DistanceKm, &h.ElevationGainM,
		&polyline, &h.GPXPath, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return Hike{}, err
	}
	if len(polyline) > 0 {
		if err := json.Unmarshal(polyline, &h.Polyline); err != nil {
			return Hike{}, fmt.Errorf("decode polyline of hike %s: %w", id, err)
		}
	}
	return h, nil
}

// UpdatePolyline replaces the stored geometry. No version check is made: the
// last writer wins.
func (r *Repository) UpdatePolyline(ctx context.Context, id string, t track.Track) (time.Time, error) {
	if t == nil {
		t = track.Track{}
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return time.Time{}, err
	}
	var updatedAt time.Time
	err = r.db.QueryRow(ctx, `
		UPDATE hikes SET polyline=$2::jsonb, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, id, string(payload)).Scan(&updatedAt)
	return updatedAt, err
}

func (r *Repository) SetGPXPath(ctx context.Context, id, path string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE hikes SET gpx_path=$2, updated_at=now()
		WHERE id=$1
	`, id, path)
	return err
}
