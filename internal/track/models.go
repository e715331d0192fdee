package track

import (
	"encoding/json"
	"fmt"
)

// Coordinate is a latitude/longitude pair. It travels as a two-element
// JSON array, [lat, lng], the same shape the hike record stores.
type Coordinate struct {
	Lat float64
	Lng float64
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate: expected [lat, lng], got %d values", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

// Track is an ordered path. A Track with no points means "no geometry yet".
type Track []Coordinate

func (t Track) Empty() bool {
	return len(t) == 0
}

// Clone returns a copy that shares no backing array with t.
func (t Track) Clone() Track {
	if t == nil {
		return nil
	}
	out := make(Track, len(t))
	copy(out, t)
	return out
}

func (t Track) Equal(other Track) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Source tags where the displayed Track came from.
type Source string

const (
	SourceNone      Source = ""
	SourcePersisted Source = "persisted"
	SourceUploaded  Source = "uploaded"
	SourceDrawn     Source = "drawn"
)
