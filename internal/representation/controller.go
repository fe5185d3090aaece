package representation

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Controller coordinates the representations of one track: which one is
// selected, keeping their availability metadata current, and the refresh
// cycle that runs after every manifest update.
//
// A Controller is not safe for concurrent use. All methods must be called from
// one goroutine; Session provides that.
type Controller struct {
	deps Dependencies
	log  *slog.Logger

	track    Track
	detached bool

	data      *AdaptationSet
	dataIndex int
	set       Set
	current   *Representation

	updating     bool
	cycleID      string
	cycleStarted time.Time
}

// NewController returns a controller using deps. Initialize must be called
// before any notification is delivered.
func NewController(deps Dependencies) *Controller {
	deps = deps.withDefaults()
	return &Controller{
		deps:      deps,
		log:       deps.Logger.With(slog.String("component", "representation_controller")),
		dataIndex: -1,
	}
}

// Initialize binds the controller to a track processing context.
func (c *Controller) Initialize(track Track) {
	c.track = track
	c.detached = false
	c.log = c.deps.Logger.With(
		slog.String("component", "representation_controller"),
		slog.String("track_id", track.ID),
		slog.String("media_type", string(track.Type)),
	)
}

// OnStreamUpdated installs the snapshot carried by e, if any, and rebinds the
// track to the new stream description.
func (c *Controller) OnStreamUpdated(e StreamUpdated) {
	if c.detached {
		return
	}
	if e.Manifest != nil {
		c.deps.Manifest.Set(e.Manifest)
	}
	stream := e.Stream
	c.track.Stream = &stream
	c.track.Media = e.Media
}

// Track returns the track processing context.
func (c *Controller) Track() Track { return c.track }

// Data returns the adaptation set of the last update, or nil.
func (c *Controller) Data() *AdaptationSet { return c.data }

// DataIndex returns the position of the adaptation within its period, or -1.
func (c *Controller) DataIndex() int { return c.dataIndex }

// Updating reports whether an update cycle is collecting completions.
func (c *Controller) Updating() bool { return c.updating }

// CycleID returns the id of the last started cycle.
func (c *Controller) CycleID() string { return c.cycleID }

// CurrentRepresentation returns the selected representation, or nil.
func (c *Controller) CurrentRepresentation() *Representation { return c.current }

// Representations returns the current set in quality order.
func (c *Controller) Representations() []*Representation { return c.set.All() }

// RepresentationForQuality maps a quality rank to a representation, or nil.
func (c *Controller) RepresentationForQuality(quality int) *Representation {
	return c.set.At(quality)
}

// QualityForRepresentation maps a representation to its quality rank, or -1.
func (c *Controller) QualityForRepresentation(r *Representation) int {
	return c.set.QualityOf(r)
}

// UpdateData rebuilds the set for adaptation, selects a quality and starts an
// update cycle. A cycle still collecting is superseded.
func (c *Controller) UpdateData(data *AdaptationSet, adaptation AdaptationRef, t MediaType) {
	if c.detached {
		return
	}
	stream := c.streamInfo()
	maxQuality := c.deps.ABR.TopQualityIndex(t, stream.ID)

	if c.updating {
		c.log.Debug("superseding update cycle", slog.String("cycle_id", c.cycleID))
	}
	c.startCycle()

	c.set.replace(c.updateRepresentations(data, adaptation))

	var quality int
	if c.data == nil {
		bitrate, ok := c.deps.ABR.AverageThroughput(t)
		if !ok || bitrate <= 0 {
			bitrate = c.deps.ABR.InitialBitrate(t, stream)
		}
		quality = c.deps.ABR.QualityForBitrate(c.track.Media, bitrate)
	} else {
		quality = c.deps.ABR.QualityFor(t, stream)
	}
	if quality > maxQuality {
		quality = maxQuality
	}
	quality = c.set.clamp(quality)

	c.current = c.set.At(quality)
	c.data = data

	if c.set.Len() == 0 {
		c.updating = false
		c.log.Warn("update cycle closed without representations", slog.String("cycle_id", c.cycleID))
		c.notifyCompleted(ErrNoRepresentations)
		return
	}

	if !t.requiresIndex() {
		c.updating = false
		c.notifyCompleted(nil)
		return
	}

	c.log.Info("update cycle started",
		slog.String("cycle_id", c.cycleID),
		slog.Int("representations", c.set.Len()),
		slog.Int("quality", quality),
		slog.Int("max_quality", maxQuality))
	c.refreshAll()
}

// Reset detaches the controller from every notification and clears its state.
// A pending postponed update becomes a no-op.
func (c *Controller) Reset() {
	c.detached = true
	c.data = nil
	c.dataIndex = -1
	c.updating = false
	c.set.clear()
	c.current = nil
	c.cycleID = ""
}

// Snapshot returns a copy of the controller state for inspection.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		TrackID:   c.track.ID,
		MediaType: c.track.Type,
		Updating:  c.updating,
		CycleID:   c.cycleID,
		DataIndex: c.dataIndex,
		Selected:  c.set.QualityOf(c.current),
	}
	for i, rep := range c.set.reps {
		rs := RepresentationState{
			Quality:      i,
			ID:           rep.ID,
			Bandwidth:    rep.Bandwidth,
			Kind:         rep.Kind,
			Initialized:  rep.Initialization != nil,
			SegmentCount: len(rep.Segments),
		}
		if rep.Availability != nil {
			w := *rep.Availability
			rs.Availability = &w
		}
		s.Representations = append(s.Representations, rs)
	}
	return s
}

// Snapshot is a point in time copy of a controller's state.
type Snapshot struct {
	TrackID         string                `json:"trackId"`
	MediaType       MediaType             `json:"mediaType"`
	Updating        bool                  `json:"updating"`
	CycleID         string                `json:"cycleId,omitempty"`
	DataIndex       int                   `json:"dataIndex"`
	Selected        int                   `json:"selectedQuality"`
	Representations []RepresentationState `json:"representations"`
}

// RepresentationState is the inspected state of one representation.
type RepresentationState struct {
	Quality      int       `json:"quality"`
	ID           string    `json:"id"`
	Bandwidth    int       `json:"bandwidth"`
	Kind         IndexKind `json:"kind"`
	Availability *Range    `json:"availability,omitempty"`
	Initialized  bool      `json:"initialized"`
	SegmentCount int       `json:"segmentCount"`
}

func (c *Controller) updateRepresentations(data *AdaptationSet, adaptation AdaptationRef) []*Representation {
	m := c.deps.Manifest.Current()
	c.dataIndex = c.deps.Manifest.IndexForAdaptation(data, m, adaptation.PeriodIndex)
	return c.deps.Manifest.RepresentationsForAdaptation(m, adaptation)
}

func (c *Controller) startCycle() {
	c.updating = true
	c.cycleID = uuid.NewString()
	c.cycleStarted = c.deps.Now()
	c.deps.Notifier.Notify(DataUpdateStarted{TrackID: c.track.ID, CycleID: c.cycleID})
}

// refreshAll asks the index service to refresh every representation in rank order.
func (c *Controller) refreshAll() {
	for _, rep := range c.set.reps {
		c.track.Index.UpdateRepresentation(rep, true)
	}
}

func (c *Controller) notifyCompleted(err error) {
	c.deps.Notifier.Notify(DataUpdateCompleted{
		TrackID: c.track.ID,
		CycleID: c.cycleID,
		Data:    c.data,
		Current: c.current,
		Err:     err,
	})
}

func (c *Controller) streamInfo() StreamInfo {
	if c.track.Stream == nil {
		return StreamInfo{}
	}
	return *c.track.Stream
}
