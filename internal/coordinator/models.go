package coordinator

import (
	"time"

	"dash-representation/internal/manifest"
	"dash-representation/internal/representation"
)

// TrackID uniquely identifies an open track session (e.g. "video-0").
type TrackID string

// OpenTrackRequest is the body of POST /tracks/{track_id}.
type OpenTrackRequest struct {
	MediaType representation.MediaType `json:"mediaType"`
}

// ManifestRequest is the body of POST /tracks/{track_id}/manifest: a manifest
// snapshot and the adaptation the track plays from it.
type ManifestRequest struct {
	Manifest   manifest.Document `json:"manifest"`
	Period     int               `json:"period"`
	Adaptation int               `json:"adaptation"`
}

// QualityRequest is an external ABR decision.
type QualityRequest struct {
	NewQuality int `json:"newQuality"`
}

// LiveEdgeRequest ends a live edge search. Error is set when the search failed.
type LiveEdgeRequest struct {
	LiveEdge float64 `json:"liveEdge"`
	// ClockOffset is the server minus client clock offset in seconds found by the search.
	ClockOffset float64 `json:"clockOffset,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// BufferLevelRequest is a buffer level sample.
type BufferLevelRequest struct {
	BufferLevel  float64 `json:"bufferLevel"`
	PlaybackTime float64 `json:"playbackTime"`
}

// ThroughputRequest is a measured download throughput.
type ThroughputRequest struct {
	Kbps float64 `json:"kbps"`
}

// CycleStatus summarizes the last notification of a track's update cycle.
type CycleStatus struct {
	CycleID string    `json:"cycleId"`
	State   string    `json:"state"` // started, completed, failed, postponed
	Error   string    `json:"error,omitempty"`
	Delay   string    `json:"delay,omitempty"`
	At      time.Time `json:"at"`
}

// TrackState is the response of GET /tracks/{track_id}.
type TrackState struct {
	representation.Snapshot
	StreamID  string       `json:"streamId,omitempty"`
	LastCycle *CycleStatus `json:"lastCycle,omitempty"`
}
