package hike

import (
	"time"

	"backend-cartorando/internal/track"
)

// Hike is one trail listing. Polyline is what maps render and edit; GPXPath
// points at the archived upload and is not rewritten when the polyline is.
type Hike struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Title          string      `json:"title" validate:"required,min=3"`
	Description    string      `json:"description" validate:"omitempty,min=10"`
	Region         string      `json:"region" validate:"omitempty,min=2"`
	Difficulty     string      `json:"difficulty" validate:"omitempty,oneof=easy moderate hard"`
	DistanceKm     float64     `json:"distance_km" validate:"gte=0"`
	ElevationGainM float64     `json:"elevation_gain_m" validate:"gte=0"`
	Polyline       track.Track `json:"polyline"`
	GPXPath        *string     `json:"gpx_path"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
