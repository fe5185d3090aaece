package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dash-representation/internal/abr"
	"dash-representation/internal/platform/metrics"
	"dash-representation/internal/preference"
	"dash-representation/internal/representation"
	"dash-representation/internal/telemetry"
)

var (
	// ErrInvalidRequest is returned for a payload that cannot be applied.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAdaptationNotFound is returned when the selected period or adaptation
	// is not in the manifest, or does not carry the track's media type.
	ErrAdaptationNotFound = errors.New("adaptation not found")

	// ErrNoManifest is returned for operations that need a manifest before one was ingested.
	ErrNoManifest = errors.New("track has no manifest yet")
)

// Options configures the tracks opened by a Service.
type Options struct {
	LiveDelayFragmentCount int
	WallclockInterval      time.Duration
	HistorySize            int
	InitialBitrates        map[representation.MediaType]float64
	MaxBitrateExpr         string

	// Scheduler and Now default to real timers and time.Now.
	Scheduler representation.Scheduler
	Now       func() time.Time
}

// Service opens track sessions and translates player signals into controller events.
type Service struct {
	repo    Repository
	prefs   preference.Store
	metrics *metrics.Metrics
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewService returns a Service. prefs and m may be nil.
func NewService(repo Repository, prefs preference.Store, m *metrics.Metrics, log *slog.Logger, opts Options) (*Service, error) {
	if _, err := abr.New(abr.Config{Ceiling: opts.MaxBitrateExpr}); err != nil {
		return nil, err
	}
	if opts.WallclockInterval <= 0 {
		opts.WallclockInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:    repo,
		prefs:   prefs,
		metrics: m,
		log:     log,
		opts:    opts,
		now:     opts.Now,
	}, nil
}

func (s *Service) recorder() telemetry.Recorder {
	if s.metrics == nil {
		return nil
	}
	return metricsRecorder{m: s.metrics}
}

func validMediaType(t representation.MediaType) bool {
	switch t {
	case representation.MediaVideo, representation.MediaAudio, representation.MediaFragmentedText, representation.MediaText:
		return true
	}
	return false
}

// carries reports whether an adaptation of content type ct can feed a track of type t.
// Fragmented text is carried by text adaptations.
func carries(ct, t representation.MediaType) bool {
	return ct == "" || ct == t || (t == representation.MediaFragmentedText && ct == representation.MediaText)
}

// OpenTrack starts a session for a new track.
func (s *Service) OpenTrack(id TrackID, mediaType representation.MediaType) (*Track, error) {
	if id == "" || !validMediaType(mediaType) {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrInvalidRequest, mediaType)
	}
	return s.repo.Open(id, func() (*Track, error) {
		return newTrack(id, mediaType, s)
	})
}

// CloseTrack resets the track's controller and stops its session.
func (s *Service) CloseTrack(id TrackID) error {
	t, err := s.repo.Remove(id)
	if err != nil {
		return err
	}
	t.close()
	return nil
}

// IngestManifest installs a new manifest snapshot for the track and starts an
// update cycle on the selected adaptation.
func (s *Service) IngestManifest(id TrackID, req ManifestRequest) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	fetched := s.now()
	snapshot, err := req.Manifest.Build(fetched)
	if err != nil {
		return err
	}

	ref := representation.AdaptationRef{PeriodIndex: req.Period, Index: req.Adaptation, Type: t.MediaType}
	period := snapshot.Period(req.Period)
	as := snapshot.AdaptationSet(ref)
	if period == nil || as == nil {
		return fmt.Errorf("%w: period %d adaptation %d", ErrAdaptationNotFound, req.Period, req.Adaptation)
	}
	if !carries(as.ContentType, t.MediaType) {
		return fmt.Errorf("%w: adaptation %q carries %s, track plays %s", ErrAdaptationNotFound, as.ID, as.ContentType, t.MediaType)
	}

	bitrates := make([]int, 0, len(as.Representations))
	for _, r := range as.Representations {
		bitrates = append(bitrates, r.Bandwidth)
	}
	sort.Ints(bitrates)
	t.rules.SetBitrateList(t.MediaType, bitrates)

	t.telemetry.AddManifestUpdate(fetched, snapshot.FetchTime)
	t.setStreamID(period.ID)

	stream := representation.StreamInfo{
		ID:       period.ID,
		Index:    period.Index,
		Start:    period.Start,
		Duration: period.Duration,
		IsLast:   period.Index == len(snapshot.Periods)-1,
		Manifest: representation.ManifestInfo{
			Dynamic:       snapshot.Dynamic,
			DVRWindowSize: snapshot.TimeShiftBufferDepth,
			AvailableFrom: snapshot.AvailabilityStartTime,
			Duration:      snapshot.MediaPresentationDuration,
		},
	}
	media := representation.MediaInfo{Type: t.MediaType, StreamID: period.ID, BitrateList: bitrates}

	if err := t.session.Post(representation.StreamUpdated{Manifest: snapshot, Stream: stream, Media: media}); err != nil {
		return s.sessionErr(err)
	}
	if err := t.session.Post(representation.UpdateRequest{Data: as, Adaptation: ref, Type: t.MediaType}); err != nil {
		return s.sessionErr(err)
	}
	t.log.Info("manifest ingested",
		slog.String("period_id", period.ID),
		slog.String("adaptation_id", as.ID),
		slog.Bool("dynamic", snapshot.Dynamic),
		slog.Int("representations", len(bitrates)))
	return nil
}

// ChangeQuality applies an external ABR decision. The old quality is read from
// the controller's current selection on the session goroutine, so a decision
// taken before the first cycle closes compares against what is really selected.
func (s *Service) ChangeQuality(ctx context.Context, id TrackID, newQuality int) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if newQuality < 0 {
		return fmt.Errorf("%w: quality %d", ErrInvalidRequest, newQuality)
	}
	streamID := t.StreamID()
	if streamID == "" {
		return ErrNoManifest
	}
	return s.sessionErr(t.session.Do(ctx, func(c *representation.Controller) {
		old := c.QualityForRepresentation(c.CurrentRepresentation())
		t.rules.SetQuality(t.MediaType, streamID, newQuality)
		c.OnQualityChanged(representation.QualityChanged{
			MediaType:  t.MediaType,
			StreamID:   streamID,
			OldQuality: old,
			NewQuality: newQuality,
		})
	}))
}

// CompleteLiveEdge ends the live edge search of the track.
func (s *Service) CompleteLiveEdge(id TrackID, req LiveEdgeRequest) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	ev := representation.LiveEdgeSearchCompleted{LiveEdge: req.LiveEdge}
	if req.Error != "" {
		ev.Err = errors.New(req.Error)
	} else {
		t.manifests.SetClockOffset(time.Duration(req.ClockOffset * float64(time.Second)))
	}
	return s.sessionErr(t.session.Post(ev))
}

// UpdateBufferLevel records a buffer level sample and the playback position.
func (s *Service) UpdateBufferLevel(id TrackID, req BufferLevelRequest) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	t.clock.Set(req.PlaybackTime)
	return s.sessionErr(t.session.Post(representation.BufferLevelUpdated{
		Sender:      string(id),
		BufferLevel: req.BufferLevel,
	}))
}

// AddThroughput feeds a throughput sample to the track's ABR rules.
func (s *Service) AddThroughput(id TrackID, kbps float64) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if kbps <= 0 {
		return fmt.Errorf("%w: throughput %v", ErrInvalidRequest, kbps)
	}
	t.rules.AddThroughput(t.MediaType, kbps)
	return nil
}

// TrackState returns the controller state of the track.
func (s *Service) TrackState(ctx context.Context, id TrackID) (TrackState, error) {
	t, err := s.repo.Get(id)
	if err != nil {
		return TrackState{}, err
	}
	var snap representation.Snapshot
	if err := t.session.Do(ctx, func(c *representation.Controller) { snap = c.Snapshot() }); err != nil {
		return TrackState{}, s.sessionErr(err)
	}
	return TrackState{Snapshot: snap, StreamID: t.StreamID(), LastCycle: t.LastCycle()}, nil
}

// Telemetry returns the telemetry report of the track.
func (s *Service) Telemetry(id TrackID) (telemetry.Report, error) {
	t, err := s.repo.Get(id)
	if err != nil {
		return telemetry.Report{}, err
	}
	return t.telemetry.Report(t.MediaType), nil
}

// ActiveTrackCount returns the number of open tracks.
func (s *Service) ActiveTrackCount() int {
	return s.repo.ActiveTrackCount()
}

// Shutdown closes every open track.
func (s *Service) Shutdown() {
	for _, t := range s.repo.List() {
		if _, err := s.repo.Remove(t.ID); err == nil {
			t.close()
		}
	}
}

// sessionErr reports a session closed under a concurrent CloseTrack as a missing track.
func (s *Service) sessionErr(err error) error {
	if errors.Is(err, representation.ErrSessionClosed) {
		return ErrTrackNotFound
	}
	return err
}
