// Package telemetry records representation switches, DVR window samples and
// manifest update records for one player.
package telemetry

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"

	"dash-representation/internal/representation"
)

// DefaultHistorySize bounds every history when Options.HistorySize is unset.
const DefaultHistorySize = 100

// Recorder receives a signal for every sample stored by a Model.
type Recorder interface {
	RepresentationSwitch(t representation.MediaType)
	DVRSample(t representation.MediaType)
	ManifestUpdateLatency(t representation.MediaType, seconds float64)
}

// DVRInfo is one DVR window sample.
type DVRInfo struct {
	Time     float64                     `json:"time"`
	Range    representation.Range        `json:"range"`
	Manifest representation.ManifestInfo `json:"manifestInfo"`
}

// ManifestUpdate is the record filled while one manifest snapshot is processed.
type ManifestUpdate struct {
	ID          string                     `json:"id"`
	RequestTime time.Time                  `json:"requestTime"`
	FetchTime   time.Time                  `json:"fetchTime"`
	Latency     float64                    `json:"latency"`
	Tracks      []representation.TrackInfo `json:"tracks"`

	keys map[representation.TrackKey]struct{}
}

// Options configures a Model.
type Options struct {
	HistorySize int
	Recorder    Recorder
}

// Model implements representation.Telemetry. It is safe for concurrent use.
type Model struct {
	mu       sync.RWMutex
	size     int
	recorder Recorder

	switches map[representation.MediaType]*deque.Deque[representation.RepresentationSwitch]
	dvr      map[representation.MediaType]*deque.Deque[DVRInfo]

	updates map[string]*ManifestUpdate
	order   deque.Deque[string]
	current string
}

// New returns an empty model.
func New(opts Options) *Model {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	return &Model{
		size:     opts.HistorySize,
		recorder: opts.Recorder,
		switches: make(map[representation.MediaType]*deque.Deque[representation.RepresentationSwitch]),
		dvr:      make(map[representation.MediaType]*deque.Deque[DVRInfo]),
		updates:  make(map[string]*ManifestUpdate),
	}
}

func push[T any](m map[representation.MediaType]*deque.Deque[T], t representation.MediaType, v T, size int) {
	q, ok := m[t]
	if !ok {
		q = new(deque.Deque[T])
		m[t] = q
	}
	q.PushBack(v)
	for q.Len() > size {
		q.PopFront()
	}
}

func items[T any](q *deque.Deque[T]) []T {
	if q == nil {
		return nil
	}
	out := make([]T, q.Len())
	for i := range out {
		out[i] = q.At(i)
	}
	return out
}

// AddRepresentationSwitch implements representation.Telemetry.
func (m *Model) AddRepresentationSwitch(t representation.MediaType, at time.Time, mediaTimeMs float64, representationID string) {
	m.mu.Lock()
	push(m.switches, t, representation.RepresentationSwitch{
		MediaType:        t,
		At:               at,
		MediaTimeMs:      mediaTimeMs,
		RepresentationID: representationID,
	}, m.size)
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.RepresentationSwitch(t)
	}
}

// CurrentRepresentationSwitch implements representation.Telemetry.
func (m *Model) CurrentRepresentationSwitch(t representation.MediaType) (representation.RepresentationSwitch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.switches[t]
	if !ok || q.Len() == 0 {
		return representation.RepresentationSwitch{}, false
	}
	return q.Back(), true
}

// AddDVRInfo implements representation.Telemetry.
func (m *Model) AddDVRInfo(t representation.MediaType, playbackTime float64, info representation.ManifestInfo, window *representation.Range) {
	sample := DVRInfo{Time: playbackTime, Manifest: info}
	if window != nil {
		sample.Range = *window
	}
	m.mu.Lock()
	push(m.dvr, t, sample, m.size)
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.DVRSample(t)
	}
}

// AddManifestUpdate opens a new manifest update record and makes it current.
func (m *Model) AddManifestUpdate(requestTime, fetchTime time.Time) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[id] = &ManifestUpdate{
		ID:          id,
		RequestTime: requestTime,
		FetchTime:   fetchTime,
		keys:        make(map[representation.TrackKey]struct{}),
	}
	m.order.PushBack(id)
	for m.order.Len() > m.size {
		delete(m.updates, m.order.PopFront())
	}
	m.current = id
	return id
}

// CurrentManifestUpdate implements representation.Telemetry.
func (m *Model) CurrentManifestUpdate() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current != ""
}

// HasManifestUpdateTrack implements representation.Telemetry.
func (m *Model) HasManifestUpdateTrack(updateID string, key representation.TrackKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.updates[updateID]
	if !ok {
		return false
	}
	_, ok = u.keys[key]
	return ok
}

// AddManifestUpdateTrack implements representation.Telemetry. A second entry
// with the same key is dropped.
func (m *Model) AddManifestUpdateTrack(updateID string, info representation.TrackInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.updates[updateID]
	if !ok {
		return
	}
	if _, dup := u.keys[info.TrackKey]; dup {
		return
	}
	u.keys[info.TrackKey] = struct{}{}
	u.Tracks = append(u.Tracks, info)
}

// UpdateManifestUpdateLatency implements representation.Telemetry.
func (m *Model) UpdateManifestUpdateLatency(updateID string, latency float64) {
	m.mu.Lock()
	u, ok := m.updates[updateID]
	var types []representation.MediaType
	if ok {
		u.Latency = latency
		seen := make(map[representation.MediaType]bool)
		for _, tr := range u.Tracks {
			if !seen[tr.MediaType] {
				seen[tr.MediaType] = true
				types = append(types, tr.MediaType)
			}
		}
	}
	m.mu.Unlock()

	if m.recorder != nil {
		for _, t := range types {
			m.recorder.ManifestUpdateLatency(t, latency)
		}
	}
}

// ManifestUpdate returns a copy of a record.
func (m *Model) ManifestUpdate(id string) (ManifestUpdate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.updates[id]
	if !ok {
		return ManifestUpdate{}, false
	}
	out := *u
	out.Tracks = append([]representation.TrackInfo(nil), u.Tracks...)
	out.keys = nil
	return out, true
}

// Report is a point in time view of the model for one media type.
type Report struct {
	Switches       []representation.RepresentationSwitch `json:"switches"`
	DVR            []DVRInfo                             `json:"dvr"`
	ManifestUpdate *ManifestUpdate                       `json:"manifestUpdate,omitempty"`
}

// Report returns the histories of media type t and the current manifest update.
func (m *Model) Report(t representation.MediaType) Report {
	m.mu.RLock()
	r := Report{
		Switches: items(m.switches[t]),
		DVR:      items(m.dvr[t]),
	}
	current := m.current
	m.mu.RUnlock()

	if u, ok := m.ManifestUpdate(current); ok {
		r.ManifestUpdate = &u
	}
	return r
}
