package coordinator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"dash-representation/internal/abr"
	"dash-representation/internal/indexer"
	"dash-representation/internal/manifest"
	"dash-representation/internal/representation"
	"dash-representation/internal/telemetry"
	"dash-representation/internal/timeline"
)

// Track is one open track: its representation session and the collaborators
// the session's controller consults.
type Track struct {
	ID        TrackID
	MediaType representation.MediaType
	OpenedAt  time.Time

	manifests *manifest.Model
	clock     *timeline.PlaybackClock
	rules     *abr.Rules
	telemetry *telemetry.Model
	index     *indexer.Service
	session   *representation.Session
	events    *cycleEvents
	log       *slog.Logger

	mu       sync.Mutex
	streamID string
	last     *CycleStatus

	stopTicker chan struct{}
	tickerDone chan struct{}
	closeOnce  sync.Once
}

func newTrack(id TrackID, mediaType representation.MediaType, s *Service) (*Track, error) {
	log := s.log.With(slog.String("track_id", string(id)), slog.String("media_type", string(mediaType)))

	rules, err := abr.New(abr.Config{
		Ceiling:         s.opts.MaxBitrateExpr,
		InitialBitrates: s.opts.InitialBitrates,
		Preferences:     s.prefs,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	t := &Track{
		ID:         id,
		MediaType:  mediaType,
		OpenedAt:   s.now(),
		manifests:  manifest.NewModel(),
		clock:      &timeline.PlaybackClock{},
		rules:      rules,
		log:        log,
		stopTicker: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}
	t.events = &cycleEvents{track: t, metrics: s.metrics, now: s.now}
	t.telemetry = telemetry.New(telemetry.Options{HistorySize: s.opts.HistorySize, Recorder: s.recorder()})

	converter := timeline.NewConverter(t.manifests, s.now)
	t.index = indexer.New(indexer.Config{
		Sender:  string(id),
		Windows: converter,
		Dynamic: t.dynamic,
		Logger:  log,
	})

	deps := representation.Dependencies{
		Manifest:     t.manifests,
		ABR:          rules,
		Availability: converter,
		Clock:        t.clock,
		Telemetry:    t.telemetry,
		Notifier:     t.events,
		Scheduler:    s.opts.Scheduler,
		Settings:     representation.Settings{LiveDelayFragmentCount: s.opts.LiveDelayFragmentCount},
		Now:          s.now,
		Logger:       log,
	}
	if s.prefs != nil {
		deps.Preferences = s.prefs
	}
	t.session = representation.NewSession(representation.Track{
		ID:    string(id),
		Type:  mediaType,
		Index: t.index,
	}, deps)
	t.index.Bind(t.session)

	go t.tick(s.opts.WallclockInterval, s.now)
	return t, nil
}

func (t *Track) dynamic() bool {
	m := t.manifests.Current()
	return m != nil && m.Dynamic
}

// tick posts wallclock ticks while the manifest is dynamic.
func (t *Track) tick(interval time.Duration, now func() time.Time) {
	defer close(t.tickerDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopTicker:
			return
		case <-ticker.C:
			if !t.dynamic() {
				continue
			}
			err := t.session.Post(representation.WallclockTimeUpdated{Dynamic: true, Time: now()})
			if errors.Is(err, representation.ErrSessionClosed) {
				return
			}
		}
	}
}

// StreamID returns the id of the period the track plays, or "" before the first manifest.
func (t *Track) StreamID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streamID
}

func (t *Track) setStreamID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamID = id
}

// LastCycle returns a copy of the last cycle status, or nil.
func (t *Track) LastCycle() *CycleStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	c := *t.last
	return &c
}

func (t *Track) setLastCycle(c CycleStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &c
}

// close stops the ticker, resets the controller and waits for in-flight
// index completions. It is idempotent.
func (t *Track) close() {
	t.closeOnce.Do(func() {
		close(t.stopTicker)
		<-t.tickerDone
		t.session.Close()
		t.index.Wait()
	})
}
