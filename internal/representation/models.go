package representation

import "time"

// MediaType is the kind of media carried by a track.
type MediaType string

const (
	MediaVideo          MediaType = "video"
	MediaAudio          MediaType = "audio"
	MediaFragmentedText MediaType = "fragmentedText"
	MediaText           MediaType = "text"
)

// requiresIndex reports whether tracks of this type go through the index refresh cycle.
// Other types close their cycle as soon as the set is rebuilt.
func (t MediaType) requiresIndex() bool {
	return t == MediaVideo || t == MediaAudio || t == MediaFragmentedText
}

// persistsBitrate reports whether the last used bitrate of this type is kept in the preference store.
func (t MediaType) persistsBitrate() bool {
	return t == MediaVideo || t == MediaAudio
}

// IndexKind is the segment addressing scheme of a representation.
type IndexKind string

const (
	IndexTemplate    IndexKind = "SegmentTemplate"
	IndexTimeline    IndexKind = "SegmentTimeline"
	IndexSegmentBase IndexKind = "SegmentBase"
	IndexBaseURL     IndexKind = "BaseURL"
)

// HasSegmentList reports whether the index of this kind resolves to an explicit segment list.
func (k IndexKind) HasSegmentList() bool {
	return k == IndexSegmentBase || k == IndexBaseURL
}

// Range is a time window in presentation seconds.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Initialization references the initialization segment of a representation.
type Initialization struct {
	URL   string `json:"url"`
	Range string `json:"range,omitempty"`
}

// Segment is one resolved media segment.
type Segment struct {
	Number   int     `json:"number"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Media    string  `json:"media"`
}

// AdaptationRef locates an adaptation inside a manifest snapshot.
// It is a lookup key, never an owning reference.
type AdaptationRef struct {
	PeriodIndex int       `json:"periodIndex"`
	Index       int       `json:"index"`
	Type        MediaType `json:"type"`
}

// Representation is one quality variant of a track for the current manifest snapshot.
//
// Identity fields are fixed when the set is rebuilt. Availability, Initialization and
// Segments are filled in by the index service and the availability refresher; nil means
// "not yet known".
type Representation struct {
	ID                     string
	Index                  int
	Bandwidth              int
	SegmentDuration        float64
	Kind                   IndexKind
	PresentationTimeOffset float64
	StartNumber            int
	InitializationURL      string
	MediaTemplate          string
	BaseURL                string
	Adaptation             AdaptationRef

	Availability   *Range
	Initialization *Initialization
	Segments       []Segment
}

// indexResolved is the per-representation half of the join predicate.
func (r *Representation) indexResolved() bool {
	if r.Availability == nil || r.Initialization == nil {
		return false
	}
	if r.Kind.HasSegmentList() && r.Segments == nil {
		return false
	}
	return true
}

// RepresentationData is the manifest description of a representation before extraction.
type RepresentationData struct {
	ID                     string
	Bandwidth              int
	SegmentDuration        float64
	Kind                   IndexKind
	PresentationTimeOffset float64
	StartNumber            int
	InitializationURL      string
	MediaTemplate          string
	BaseURL                string
}

// AdaptationSet is the manifest node a track is built from.
type AdaptationSet struct {
	ID              string
	ContentType     MediaType
	Representations []RepresentationData
}

// Period is a manifest period. Duration is restamped after live edge discovery.
type Period struct {
	ID             string
	Index          int
	Start          float64
	Duration       float64
	AdaptationSets []*AdaptationSet
}

// Manifest is one manifest snapshot. Its periods form the arena that
// AdaptationRef values index into.
type Manifest struct {
	Dynamic                   bool
	AvailabilityStartTime     time.Time
	FetchTime                 time.Time
	MediaPresentationDuration float64
	MinimumUpdatePeriod       float64
	TimeShiftBufferDepth      float64
	CheckTime                 float64
	Periods                   []*Period
}

// Period returns the period at index i, or nil.
func (m *Manifest) Period(i int) *Period {
	if m == nil || i < 0 || i >= len(m.Periods) {
		return nil
	}
	return m.Periods[i]
}

// AdaptationSet resolves ref against the snapshot, or returns nil.
func (m *Manifest) AdaptationSet(ref AdaptationRef) *AdaptationSet {
	p := m.Period(ref.PeriodIndex)
	if p == nil || ref.Index < 0 || ref.Index >= len(p.AdaptationSets) {
		return nil
	}
	return p.AdaptationSets[ref.Index]
}

// ManifestInfo is the manifest-level view attached to a stream.
type ManifestInfo struct {
	Dynamic       bool      `json:"dynamic"`
	DVRWindowSize float64   `json:"dvrWindowSize"`
	AvailableFrom time.Time `json:"availableFrom"`
	Duration      float64   `json:"duration"`
}

// StreamInfo describes the stream (period) a track belongs to.
type StreamInfo struct {
	ID       string       `json:"id"`
	Index    int          `json:"index"`
	Start    float64      `json:"start"`
	Duration float64      `json:"duration"`
	IsLast   bool         `json:"isLast"`
	Manifest ManifestInfo `json:"manifestInfo"`
}

// MediaInfo describes the media of a track as seen by the ABR logic.
type MediaInfo struct {
	Type        MediaType `json:"type"`
	StreamID    string    `json:"streamId"`
	BitrateList []int     `json:"bitrateList"`
}

// TrackKey identifies a manifest-update-info track entry.
type TrackKey struct {
	RepresentationID string
	Index            int
	PeriodIndex      int
	MediaType        MediaType
}

// TrackInfo is a manifest-update-info track entry.
type TrackInfo struct {
	TrackKey
	PresentationTimeOffset float64
	StartNumber            int
	Kind                   IndexKind
}

// RepresentationSwitch is a recorded quality switch.
type RepresentationSwitch struct {
	MediaType        MediaType `json:"mediaType"`
	At               time.Time `json:"at"`
	MediaTimeMs      float64   `json:"mediaTimeMs"`
	RepresentationID string    `json:"representationId"`
}
