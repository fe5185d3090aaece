package coordinator

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"dash-representation/internal/manifest"
	"dash-representation/internal/platform/metrics"
	"dash-representation/internal/preference"
	"dash-representation/internal/representation"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type pendingTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (p *pendingTimer) Stop() bool {
	p.stopped = true
	return true
}

// timers records scheduled callbacks until fire is called.
type timers struct {
	mu      sync.Mutex
	pending []*pendingTimer
	all     []time.Duration
}

func (s *timers) AfterFunc(d time.Duration, f func()) representation.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &pendingTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	s.all = append(s.all, d)
	return t
}

func (s *timers) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.all...)
}

func (s *timers) fire() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.f()
		}
	}
}

type fixture struct {
	svc     *Service
	clock   *testClock
	timers  *timers
	prefs   *preference.MemoryStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &testClock{t: base},
		timers:  &timers{},
		prefs:   preference.NewMemoryStore(),
		metrics: metrics.New(),
	}
	log := slog.New(slog.DiscardHandler)
	svc, err := NewService(NewInMemoryRepository(), f.prefs, f.metrics, log, Options{
		LiveDelayFragmentCount: 2,
		WallclockInterval:      time.Hour,
		HistorySize:            10,
		InitialBitrates: map[representation.MediaType]float64{
			representation.MediaVideo: 1000,
			representation.MediaAudio: 100,
		},
		Scheduler: f.timers,
		Now:       f.clock.now,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	t.Cleanup(svc.Shutdown)
	return f
}

func staticDocument() manifest.Document {
	return manifest.Document{
		Type:                      "static",
		MediaPresentationDuration: "PT60S",
		Periods: []manifest.PeriodDocument{{
			ID:       "p0",
			Duration: "PT60S",
			AdaptationSets: []manifest.AdaptationSetDocument{
				{ID: "v", ContentType: "video", Representations: []manifest.RepresentationDocument{
					{ID: "v-hi", Bandwidth: 3_000_000, SegmentDuration: "PT4S"},
					{ID: "v-lo", Bandwidth: 500_000, SegmentDuration: "PT4S"},
					{ID: "v-mid", Bandwidth: 1_000_000, SegmentDuration: "PT4S"},
				}},
				{ID: "a", ContentType: "audio", Representations: []manifest.RepresentationDocument{
					{ID: "a0", Bandwidth: 128_000, SegmentDuration: "PT2S", Kind: "SegmentBase"},
				}},
				{ID: "t", ContentType: "text", Representations: []manifest.RepresentationDocument{
					{ID: "t0", Bandwidth: 1000, SegmentDuration: "PT60S", Kind: "BaseURL"},
				}},
			},
		}},
	}
}

func liveDocument(ast time.Time) manifest.Document {
	return manifest.Document{
		Type:                  "dynamic",
		AvailabilityStartTime: ast,
		TimeShiftBufferDepth:  "PT30S",
		Periods: []manifest.PeriodDocument{{
			ID:    "live",
			Start: "PT0S",
			AdaptationSets: []manifest.AdaptationSetDocument{
				{ID: "v", ContentType: "video", Representations: []manifest.RepresentationDocument{
					{ID: "v0", Bandwidth: 800_000, SegmentDuration: "PT4S"},
				}},
			},
		}},
	}
}

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func (f *fixture) lastState(t *testing.T, id TrackID) string {
	t.Helper()
	tr, err := f.svc.repo.Get(id)
	if err != nil {
		t.Fatalf("get track %s: %v", id, err)
	}
	if c := tr.LastCycle(); c != nil {
		return c.State
	}
	return ""
}
