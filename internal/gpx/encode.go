package gpx

import (
	"backend-cartorando/internal/track"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

const creator = "cartorando"

// Encode writes t as a GPX 1.1 document with a single track and segment.
func Encode(t track.Track, name string) ([]byte, error) {
	seg := gpxgo.GPXTrackSegment{Points: make([]gpxgo.GPXPoint, 0, len(t))}
	for _, c := range t {
		seg.Points = append(seg.Points, gpxgo.GPXPoint{
			Point: gpxgo.Point{Latitude: c.Lat, Longitude: c.Lng},
		})
	}

	doc := &gpxgo.GPX{
		Version: "1.1",
		Creator: creator,
		Name:    name,
		Tracks: []gpxgo.GPXTrack{{
			Name:     name,
			Segments: []gpxgo.GPXTrackSegment{seg},
		}},
	}
	return doc.ToXml(gpxgo.ToXmlParams{Version: "1.1", Indent: true})
}
