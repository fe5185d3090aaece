package representation

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SegmentsUnavailableErrorCode is reported by an index service when the
	// requested segments are not available yet.
	SegmentsUnavailableErrorCode = 1

	// SegmentsUpdateFailedErrorCode is carried by a completed notification of a
	// cycle that failed because segments were not available.
	SegmentsUpdateFailedErrorCode = 1
)

// ErrNoRepresentations is reported when the adaptation yields an empty set.
var ErrNoRepresentations = errors.New("adaptation has no representations")

// IndexError is the error an index service attaches to a failed refresh.
type IndexError struct {
	Code    int
	Message string
	// AvailabilityDelay is the number of seconds until the segments are expected to exist.
	AvailabilityDelay float64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error %d: %s (available in %.3fs)", e.Code, e.Message, e.AvailabilityDelay)
}

// UpdateError is attached to a DataUpdateCompleted notification of a failed cycle.
type UpdateError struct {
	Code    int
	Message string
	Cause   error
}

func (e *UpdateError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("update error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("update error %d: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *UpdateError) Unwrap() error { return e.Cause }

// Notification is emitted by the controller towards the rest of the player.
type Notification interface {
	notification()
}

// DataUpdateStarted marks the start of an update cycle.
type DataUpdateStarted struct {
	TrackID string
	CycleID string
}

// DataUpdateCompleted marks the end of an update cycle. Err is non-nil when the
// cycle failed or could not run; no error is fatal.
type DataUpdateCompleted struct {
	TrackID string
	CycleID string
	Data    *AdaptationSet
	Current *Representation
	Err     error
}

// AvailabilityStartInFuture reports that the cycle was postponed by Delay.
type AvailabilityStartInFuture struct {
	TrackID string
	DelayMs float64
	Delay   time.Duration
}

func (DataUpdateStarted) notification()         {}
func (DataUpdateCompleted) notification()       {}
func (AvailabilityStartInFuture) notification() {}

// Notifier receives controller notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Event is a notification consumed by the controller. Events are applied one at a
// time, either directly or through a Session.
type Event interface {
	apply(c *Controller)
}

// UpdateRequest asks for a new update cycle for the given adaptation.
type UpdateRequest struct {
	Data       *AdaptationSet
	Adaptation AdaptationRef
	Type       MediaType
}

// RepresentationUpdated is the completion of an index refresh.
type RepresentationUpdated struct {
	Sender         string
	Representation *Representation
	// Index, when set, is written to Representation on the controller goroutine
	// before the completion is accounted for.
	Index *IndexResult
	Err   error
}

// IndexResult is the outcome of an index refresh produced off the controller goroutine.
type IndexResult struct {
	Availability   *Range
	Initialization *Initialization
	Segments       []Segment
}

func (r *IndexResult) applyTo(rep *Representation) {
	if r.Availability != nil {
		rep.Availability = r.Availability
	}
	if r.Initialization != nil {
		rep.Initialization = r.Initialization
	}
	if r.Segments != nil {
		rep.Segments = r.Segments
	}
}

// WallclockTimeUpdated is a wallclock tick.
type WallclockTimeUpdated struct {
	Dynamic bool
	Time    time.Time
}

// BufferLevelUpdated is a buffer level sample.
type BufferLevelUpdated struct {
	Sender      string
	BufferLevel float64
}

// LiveEdgeSearchCompleted ends live edge discovery.
type LiveEdgeSearchCompleted struct {
	LiveEdge float64
	Err      error
}

// StreamUpdated installs a new manifest snapshot and replaces the stream and
// media description of the track. It is posted ahead of the UpdateRequest of
// that snapshot, so events queued before it still see the previous one.
type StreamUpdated struct {
	Manifest *Manifest
	Stream   StreamInfo
	Media    MediaInfo
}

// QualityChanged is an external quality decision.
type QualityChanged struct {
	MediaType  MediaType
	StreamID   string
	OldQuality int
	NewQuality int
}

func (e UpdateRequest) apply(c *Controller)           { c.UpdateData(e.Data, e.Adaptation, e.Type) }
func (e RepresentationUpdated) apply(c *Controller)   { c.OnRepresentationUpdated(e) }
func (e WallclockTimeUpdated) apply(c *Controller)    { c.OnWallclockTimeUpdated(e) }
func (e BufferLevelUpdated) apply(c *Controller)      { c.OnBufferLevelUpdated(e) }
func (e LiveEdgeSearchCompleted) apply(c *Controller) { c.OnLiveEdgeSearchCompleted(e) }
func (e QualityChanged) apply(c *Controller)          { c.OnQualityChanged(e) }
func (e StreamUpdated) apply(c *Controller)           { c.OnStreamUpdated(e) }

type callbackEvent func()

func (f callbackEvent) apply(*Controller) { f() }

type queryEvent struct {
	fn   func(c *Controller)
	done chan struct{}
}

func (q queryEvent) apply(c *Controller) {
	defer close(q.done)
	q.fn(c)
}
