package track

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trackA = Track{{Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}}
	trackB = Track{{Lat: 10, Lng: 20}, {Lat: 11, Lng: 21}, {Lat: 12, Lng: 22}}
	trackP = Track{{Lat: 1, Lng: 1}}
)

func TestUploadThenDrawKeepsDrawn(t *testing.T) {
	s := NewStore()
	s.AcceptUploaded(trackA)
	s.AcceptDrawn(trackB)

	assert.Equal(t, trackB, s.Current())
	assert.Equal(t, SourceDrawn, s.Source())
}

func TestDrawThenUploadKeepsUploaded(t *testing.T) {
	s := NewStore()
	s.AcceptDrawn(trackB)
	s.AcceptUploaded(trackA)

	assert.Equal(t, trackA, s.Current())
	assert.Equal(t, SourceUploaded, s.Source())
}

func TestLoadPersistedIgnoredAfterAccept(t *testing.T) {
	s := NewStore()
	s.AcceptUploaded(trackA)
	s.LoadPersisted(trackP)
	assert.Equal(t, trackA, s.Current())
	assert.Equal(t, SourceUploaded, s.Source())
	assert.True(t, s.Persisted().Empty())

	s = NewStore()
	s.AcceptDrawn(trackB)
	s.LoadPersisted(trackP)
	assert.Equal(t, trackB, s.Current())
	assert.Equal(t, SourceDrawn, s.Source())
}

func TestLoadPersistedSetsSource(t *testing.T) {
	s := NewStore()
	s.LoadPersisted(trackP)
	assert.Equal(t, trackP, s.Current())
	assert.Equal(t, SourcePersisted, s.Source())
	assert.False(t, s.Dirty())

	s = NewStore()
	s.LoadPersisted(nil)
	assert.True(t, s.Current().Empty())
	assert.Equal(t, SourceNone, s.Source())
}

func TestClearUploadedRestoresPersisted(t *testing.T) {
	s := NewStore()
	s.LoadPersisted(trackP)
	s.AcceptUploaded(trackA)
	s.ClearUploaded()

	assert.Equal(t, trackP, s.Current())
	assert.Equal(t, SourcePersisted, s.Source())
}

func TestClearUploadedWithoutPersisted(t *testing.T) {
	s := NewStore()
	s.AcceptUploaded(trackA)
	s.ClearUploaded()

	assert.True(t, s.Current().Empty())
	assert.Equal(t, SourceNone, s.Source())
}

func TestClearUploadedKeepsDrawnShape(t *testing.T) {
	s := NewStore()
	s.LoadPersisted(trackP)
	s.AcceptUploaded(trackA)
	s.AcceptDrawn(trackB)
	s.ClearUploaded()

	assert.Equal(t, trackB, s.Current())
	assert.Equal(t, SourceDrawn, s.Source())
}

func TestCommitAfterUpload(t *testing.T) {
	s := NewStore()
	s.LoadPersisted(Track{{Lat: 1, Lng: 1}})
	s.AcceptUploaded(Track{{Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}})

	assert.Equal(t, Track{{Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}}, s.Commit())
}

func TestCommitReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AcceptDrawn(trackB)
	out := s.Commit()
	out[0] = Coordinate{}

	assert.Equal(t, trackB, s.Current())
}

func TestUploadTokens(t *testing.T) {
	s := NewStore()
	first := s.BeginUpload()
	second := s.BeginUpload()

	assert.True(t, s.AcceptUploadedToken(second, trackB))
	assert.False(t, s.AcceptUploadedToken(first, trackA))
	assert.Equal(t, trackB, s.Current())

	pending := s.BeginUpload()
	s.ClearUploaded()
	assert.False(t, s.AcceptUploadedToken(pending, trackA))
	assert.False(t, s.AcceptUploadedToken(0, trackA))
}

func TestCoordinateJSON(t *testing.T) {
	raw, err := json.Marshal(Track{{Lat: 45.83, Lng: 6.86}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[45.83, 6.86]]`, string(raw))

	var decoded Track
	require.NoError(t, json.Unmarshal([]byte(`[[1.5, -2.5], [0, 0]]`), &decoded))
	assert.Equal(t, Track{{Lat: 1.5, Lng: -2.5}, {}}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`[[1, 2, 3]]`), &decoded))
}

func TestTrackEqual(t *testing.T) {
	assert.True(t, trackA.Equal(trackA.Clone()))
	assert.False(t, trackA.Equal(trackB))
	assert.True(t, Track(nil).Equal(Track{}))
}

func TestRebase(t *testing.T) {
	s := NewStore()
	s.LoadPersisted(trackP)
	s.AcceptDrawn(trackB)
	s.Rebase()

	assert.Equal(t, SourcePersisted, s.Source())
	assert.Equal(t, trackB, s.Persisted())
	assert.False(t, s.Dirty())

	s.AcceptUploaded(trackA)
	s.ClearUploaded()
	assert.Equal(t, trackB, s.Current())

	s.LoadPersisted(trackP)
	assert.Equal(t, trackB, s.Current())
}
