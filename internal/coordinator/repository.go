package coordinator

import (
	"errors"
	"sort"
	"sync"
)

// Repository defines the concurrency-safe contract for the set of open tracks.
type Repository interface {
	// Open registers the track built by create under id. create runs with the
	// repository locked and only when id is free; ErrTrackExists is returned otherwise.
	Open(id TrackID, create func() (*Track, error)) (*Track, error)

	// Get returns the open track with the given id or ErrTrackNotFound.
	Get(id TrackID) (*Track, error)

	// Remove unregisters the track and returns it so the caller can close it.
	Remove(id TrackID) (*Track, error)

	// List returns every open track ordered by id.
	List() []*Track

	// ActiveTrackCount returns the number of open tracks. Used for metrics.
	ActiveTrackCount() int
}

var (
	// ErrTrackNotFound is returned for an id with no open track.
	ErrTrackNotFound = errors.New("track not found")

	// ErrTrackExists is returned when opening an id that is already open.
	ErrTrackExists = errors.New("track already open")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Open implements Repository.Open.
func (r *InMemoryRepository) Open(id TrackID, create func() (*Track, error)) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetTrack(id); exists {
		return nil, ErrTrackExists
	}
	t, err := create()
	if err != nil {
		return nil, err
	}
	r.store.SetTrack(t)
	return t, nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id TrackID) (*Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.store.GetTrack(id)
	if !ok {
		return nil, ErrTrackNotFound
	}
	return t, nil
}

// Remove implements Repository.Remove.
func (r *InMemoryRepository) Remove(id TrackID) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store.GetTrack(id)
	if !ok {
		return nil, ErrTrackNotFound
	}
	r.store.DeleteTrack(id)
	return t, nil
}

// List implements Repository.List.
func (r *InMemoryRepository) List() []*Track {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.store.ListTrackIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tracks := make([]*Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.store.GetTrack(id); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// ActiveTrackCount implements Repository.ActiveTrackCount.
func (r *InMemoryRepository) ActiveTrackCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.ListTrackIDs())
}
