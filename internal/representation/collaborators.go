package representation

import (
	"log/slog"
	"time"
)

// ManifestAccessor gives access to the current manifest snapshot and the
// manifest-derived calculations the controller delegates.
type ManifestAccessor interface {
	Current() *Manifest
	// Set publishes a new snapshot. The controller calls it on its own goroutine.
	Set(m *Manifest)
	// IndexForAdaptation returns the position of data within period periodIndex, or -1.
	IndexForAdaptation(data *AdaptationSet, m *Manifest, periodIndex int) int
	// RepresentationsForAdaptation extracts a fresh, quality ordered representation list.
	RepresentationsForAdaptation(m *Manifest, ref AdaptationRef) []*Representation
	CheckTime(m *Manifest, p *Period) float64
	EndTimeForLastPeriod(m *Manifest, p *Period) float64
}

// ABR is the adaptive bitrate decision logic. Bitrates are in kbps.
type ABR interface {
	TopQualityIndex(t MediaType, streamID string) int
	QualityForBitrate(media MediaInfo, bitrate float64) int
	AverageThroughput(t MediaType) (float64, bool)
	InitialBitrate(t MediaType, stream StreamInfo) float64
	QualityFor(t MediaType, stream StreamInfo) int
	SetPlaybackQuality(t MediaType, stream StreamInfo, quality int)
}

// IndexService refreshes the index of a single representation.
//
// UpdateRepresentation must return without waiting for the refresh; completion is
// reported later as a RepresentationUpdated notification carrying the same
// *Representation. Implementations must not deliver the completion from inside
// UpdateRepresentation.
type IndexService interface {
	UpdateRepresentation(rep *Representation, keepIdx bool)
}

// AvailabilityCalculator computes a representation's segment availability window.
type AvailabilityCalculator interface {
	SegmentAvailabilityRange(rep *Representation, dynamic bool) *Range
}

// PlaybackClock reports the current playback position in seconds.
type PlaybackClock interface {
	Time() float64
}

// PreferenceStore persists the last used bitrate per media type.
type PreferenceStore interface {
	Supported() bool
	SetBitrate(t MediaType, kbps float64, at time.Time) error
}

// Telemetry is the metrics sink the controller records into.
type Telemetry interface {
	AddRepresentationSwitch(t MediaType, at time.Time, mediaTimeMs float64, representationID string)
	CurrentRepresentationSwitch(t MediaType) (RepresentationSwitch, bool)
	AddDVRInfo(t MediaType, playbackTime float64, info ManifestInfo, window *Range)

	// CurrentManifestUpdate returns the id of the manifest update record being filled.
	CurrentManifestUpdate() (string, bool)
	HasManifestUpdateTrack(updateID string, key TrackKey) bool
	AddManifestUpdateTrack(updateID string, info TrackInfo)
	UpdateManifestUpdateLatency(updateID string, latency float64)
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Settings holds player settings consulted by the controller.
type Settings struct {
	// LiveDelayFragmentCount is the number of segment durations added to a postponed update.
	LiveDelayFragmentCount int
}

// DefaultLiveDelayFragmentCount matches the usual player default.
const DefaultLiveDelayFragmentCount = 4

// Dependencies are the collaborators shared by the controllers of a player.
// Preferences, Notifier, Scheduler, Now and Logger are optional.
type Dependencies struct {
	Manifest     ManifestAccessor
	ABR          ABR
	Availability AvailabilityCalculator
	Clock        PlaybackClock
	Preferences  PreferenceStore
	Telemetry    Telemetry
	Notifier     Notifier
	Scheduler    Scheduler
	Settings     Settings
	Now          func() time.Time
	Logger       *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Notifier == nil {
		d.Notifier = NotifierFunc(func(Notification) {})
	}
	if d.Scheduler == nil {
		d.Scheduler = timeScheduler{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Settings.LiveDelayFragmentCount <= 0 {
		d.Settings.LiveDelayFragmentCount = DefaultLiveDelayFragmentCount
	}
	return d
}

// Track is the processing context of one media track.
type Track struct {
	// ID attributes completion and buffer level signals to this track.
	ID     string
	Type   MediaType
	Stream *StreamInfo
	Media  MediaInfo
	Index  IndexService
}

func (t Track) dynamic() bool {
	return t.Stream != nil && t.Stream.Manifest.Dynamic
}
