package track

// Store holds the authoritative Track of one editing session. It is owned by
// a single session and is not safe for concurrent use on its own.
type Store struct {
	current   Track
	source    Source
	persisted Track
	// touched is set by the first upload or drawing and never cleared, so a
	// late persisted load cannot override user input.
	touched     bool
	uploadToken uint64
}

func NewStore() *Store {
	return &Store{}
}

// LoadPersisted installs the stored geometry of the hike record. It has no
// effect once the session has accepted an uploaded or drawn Track.
func (s *Store) LoadPersisted(t Track) {
	if s.touched {
		return
	}
	s.persisted = t.Clone()
	s.current = t.Clone()
	if t.Empty() {
		s.source = SourceNone
		return
	}
	s.source = SourcePersisted
}

// AcceptUploaded replaces the current Track with a parsed file. Callers only
// pass non-empty tracks.
func (s *Store) AcceptUploaded(t Track) {
	s.touched = true
	s.current = t.Clone()
	s.source = SourceUploaded
}

// AcceptDrawn replaces the current Track with a shape finished on the map.
func (s *Store) AcceptDrawn(t Track) {
	s.touched = true
	s.current = t.Clone()
	s.source = SourceDrawn
}

// BeginUpload issues a token for a file read that has not completed yet. Only
// the most recently issued token can still be accepted.
func (s *Store) BeginUpload() uint64 {
	s.uploadToken++
	return s.uploadToken
}

// AcceptUploadedToken applies t if token is still the latest upload. It
// reports whether the Track was accepted.
func (s *Store) AcceptUploadedToken(token uint64, t Track) bool {
	if token == 0 || token != s.uploadToken {
		return false
	}
	s.AcceptUploaded(t)
	return true
}

// ClearUploaded drops an uploaded Track that was not saved, going back to the
// last persisted geometry. Outstanding upload tokens become stale.
func (s *Store) ClearUploaded() {
	s.uploadToken++
	if s.source != SourceUploaded {
		return
	}
	s.current = s.persisted.Clone()
	if s.persisted.Empty() {
		s.source = SourceNone
		return
	}
	s.source = SourcePersisted
}

// Rebase records the current Track as the persisted one, after it has been
// written to the hike record.
func (s *Store) Rebase() {
	s.persisted = s.current.Clone()
	if s.current.Empty() {
		s.source = SourceNone
		return
	}
	s.source = SourcePersisted
}

// Commit returns the Track to write into the hike record's polyline field.
func (s *Store) Commit() Track {
	return s.current.Clone()
}

func (s *Store) Current() Track {
	return s.current.Clone()
}

func (s *Store) Source() Source {
	return s.source
}

func (s *Store) Persisted() Track {
	return s.persisted.Clone()
}

// Dirty reports whether the current Track came from the session rather than
// the stored record.
func (s *Store) Dirty() bool {
	return s.source == SourceUploaded || s.source == SourceDrawn
}
