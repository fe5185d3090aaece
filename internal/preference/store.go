// Package preference persists the last used bitrate per media type so a new
// session starts near the quality the previous one ended at.
package preference

import (
	"sync"
	"time"

	"dash-representation/internal/representation"
)

// Record is the stored value for one media type.
type Record struct {
	Bitrate   float64   `json:"bitrate"` // kbps
	Timestamp time.Time `json:"timestamp"`
}

// Store is the persistence abstraction for bitrate preferences. It satisfies
// representation.PreferenceStore and feeds the initial bitrate of the ABR rules.
type Store interface {
	Supported() bool
	SetBitrate(t representation.MediaType, kbps float64, at time.Time) error
	Bitrate(t representation.MediaType) (float64, bool)
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[representation.MediaType]Record
}

// NewMemoryStore returns an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[representation.MediaType]Record)}
}

// Supported implements Store.
func (s *MemoryStore) Supported() bool { return true }

// SetBitrate implements Store.
func (s *MemoryStore) SetBitrate(t representation.MediaType, kbps float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[t] = Record{Bitrate: kbps, Timestamp: at}
	return nil
}

// Bitrate implements Store.
func (s *MemoryStore) Bitrate(t representation.MediaType) (float64, bool) {
	rec, ok := s.Get(t)
	return rec.Bitrate, ok
}

// Get returns the full record of a media type.
func (s *MemoryStore) Get(t representation.MediaType) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[t]
	return rec, ok
}
