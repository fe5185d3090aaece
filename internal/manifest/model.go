package manifest

import (
	"sort"
	"sync"
	"time"

	"dash-representation/internal/representation"
)

// Model holds the current manifest snapshot of a player and implements
// representation.ManifestAccessor over it.
type Model struct {
	mu          sync.RWMutex
	current     *representation.Manifest
	clockOffset time.Duration
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Set replaces the current snapshot.
func (m *Model) Set(snapshot *representation.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = snapshot
}

// Current implements representation.ManifestAccessor.
func (m *Model) Current() *representation.Manifest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetClockOffset records the server minus client clock offset.
func (m *Model) SetClockOffset(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clockOffset = d
}

// ClockOffset returns the server minus client clock offset.
func (m *Model) ClockOffset() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clockOffset
}

// PresentationTime converts a wallclock instant to presentation seconds of a
// dynamic manifest, correcting for the clock offset.
func (m *Model) PresentationTime(snapshot *representation.Manifest, wall time.Time) float64 {
	return wall.Add(m.ClockOffset()).Sub(snapshot.AvailabilityStartTime).Seconds()
}

// IndexForAdaptation implements representation.ManifestAccessor.
func (m *Model) IndexForAdaptation(data *representation.AdaptationSet, snapshot *representation.Manifest, periodIndex int) int {
	p := snapshot.Period(periodIndex)
	if p == nil || data == nil {
		return -1
	}
	for i, as := range p.AdaptationSets {
		if as == data || (data.ID != "" && as.ID == data.ID) {
			return i
		}
	}
	return -1
}

// RepresentationsForAdaptation implements representation.ManifestAccessor.
// Every call extracts new Representation values ordered by ascending bandwidth.
func (m *Model) RepresentationsForAdaptation(snapshot *representation.Manifest, ref representation.AdaptationRef) []*representation.Representation {
	as := snapshot.AdaptationSet(ref)
	if as == nil {
		return nil
	}
	data := make([]representation.RepresentationData, len(as.Representations))
	copy(data, as.Representations)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Bandwidth < data[j].Bandwidth })

	reps := make([]*representation.Representation, 0, len(data))
	for i, d := range data {
		reps = append(reps, &representation.Representation{
			ID:                     d.ID,
			Index:                  i,
			Bandwidth:              d.Bandwidth,
			SegmentDuration:        d.SegmentDuration,
			Kind:                   d.Kind,
			PresentationTimeOffset: d.PresentationTimeOffset,
			StartNumber:            d.StartNumber,
			InitializationURL:      d.InitializationURL,
			MediaTemplate:          d.MediaTemplate,
			BaseURL:                d.BaseURL,
			Adaptation:             ref,
		})
	}
	return reps
}

// CheckTime implements representation.ManifestAccessor. It is the presentation
// time up to which the snapshot is valid, or 0 when the manifest does not update.
func (m *Model) CheckTime(snapshot *representation.Manifest, _ *representation.Period) float64 {
	if snapshot == nil || snapshot.MinimumUpdatePeriod <= 0 {
		return 0
	}
	return m.PresentationTime(snapshot, snapshot.FetchTime) + snapshot.MinimumUpdatePeriod
}

// EndTimeForLastPeriod implements representation.ManifestAccessor.
func (m *Model) EndTimeForLastPeriod(snapshot *representation.Manifest, p *representation.Period) float64 {
	if snapshot != nil && snapshot.MediaPresentationDuration > 0 {
		return snapshot.MediaPresentationDuration
	}
	if checkTime := m.CheckTime(snapshot, p); checkTime > 0 {
		return checkTime
	}
	return p.Start + p.Duration
}
