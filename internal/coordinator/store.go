package coordinator

// Store is the persistence abstraction for open tracks.
// The Repository uses Store for all reads and writes; callers of Repository
// do not need to know which Store is used.
type Store interface {
	GetTrack(id TrackID) (*Track, bool)
	SetTrack(t *Track)
	DeleteTrack(id TrackID)
	ListTrackIDs() []TrackID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	tracks map[TrackID]*Track
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tracks: make(map[TrackID]*Track),
	}
}

// GetTrack implements Store.GetTrack.
func (s *InMemoryStore) GetTrack(id TrackID) (*Track, bool) {
	t, ok := s.tracks[id]
	return t, ok
}

// SetTrack implements Store.SetTrack.
func (s *InMemoryStore) SetTrack(t *Track) {
	s.tracks[t.ID] = t
}

// DeleteTrack implements Store.DeleteTrack.
func (s *InMemoryStore) DeleteTrack(id TrackID) {
	delete(s.tracks, id)
}

// ListTrackIDs implements Store.ListTrackIDs.
func (s *InMemoryStore) ListTrackIDs() []TrackID {
	ids := make([]TrackID, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	return ids
}
