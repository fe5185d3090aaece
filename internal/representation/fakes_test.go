package representation

import (
	"sync"
	"time"
)

const testTrackID = "video-0"

type fakeManifest struct {
	m           *Manifest
	checkTime   float64
	endTime     float64
	extractions int
}

func (f *fakeManifest) Current() *Manifest { return f.m }

func (f *fakeManifest) Set(m *Manifest) { f.m = m }

func (f *fakeManifest) IndexForAdaptation(data *AdaptationSet, m *Manifest, periodIndex int) int {
	p := m.Period(periodIndex)
	if p == nil {
		return -1
	}
	for i, as := range p.AdaptationSets {
		if as == data {
			return i
		}
	}
	return -1
}

func (f *fakeManifest) RepresentationsForAdaptation(m *Manifest, ref AdaptationRef) []*Representation {
	f.extractions++
	as := m.AdaptationSet(ref)
	if as == nil {
		return nil
	}
	reps := make([]*Representation, 0, len(as.Representations))
	for i, d := range as.Representations {
		reps = append(reps, &Representation{
			ID:              d.ID,
			Index:           i,
			Bandwidth:       d.Bandwidth,
			SegmentDuration: d.SegmentDuration,
			Kind:            d.Kind,
			StartNumber:     d.StartNumber,
			Adaptation:      ref,
		})
	}
	return reps
}

func (f *fakeManifest) CheckTime(*Manifest, *Period) float64 { return f.checkTime }

func (f *fakeManifest) EndTimeForLastPeriod(*Manifest, *Period) float64 { return f.endTime }

type fakeABR struct {
	top             int
	forBitrate      int
	qualityFor      int
	throughput      float64
	hasThroughput   bool
	initial         float64
	askedBitrate    float64
	playbackQuality []int
}

func (f *fakeABR) TopQualityIndex(MediaType, string) int { return f.top }

func (f *fakeABR) QualityForBitrate(_ MediaInfo, bitrate float64) int {
	f.askedBitrate = bitrate
	return f.forBitrate
}

func (f *fakeABR) AverageThroughput(MediaType) (float64, bool) { return f.throughput, f.hasThroughput }

func (f *fakeABR) InitialBitrate(MediaType, StreamInfo) float64 { return f.initial }

func (f *fakeABR) QualityFor(MediaType, StreamInfo) int { return f.qualityFor }

func (f *fakeABR) SetPlaybackQuality(_ MediaType, _ StreamInfo, q int) {
	f.playbackQuality = append(f.playbackQuality, q)
}

type indexRequest struct {
	rep     *Representation
	keepIdx bool
}

type fakeIndex struct {
	mu       sync.Mutex
	requests []indexRequest
}

func (f *fakeIndex) UpdateRepresentation(rep *Representation, keepIdx bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, indexRequest{rep: rep, keepIdx: keepIdx})
}

func (f *fakeIndex) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeIndex) last(n int) []indexRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]indexRequest, n)
	copy(out, f.requests[len(f.requests)-n:])
	return out
}

type fakeAvailability struct {
	window Range
	calls  int
}

func (f *fakeAvailability) SegmentAvailabilityRange(*Representation, bool) *Range {
	f.calls++
	w := f.window
	return &w
}

type fakeClock struct{ t float64 }

func (f *fakeClock) Time() float64 { return f.t }

type bitrateWrite struct {
	t    MediaType
	kbps float64
}

type fakePrefs struct {
	supported bool
	err       error
	writes    []bitrateWrite
}

func (f *fakePrefs) Supported() bool { return f.supported }

func (f *fakePrefs) SetBitrate(t MediaType, kbps float64, _ time.Time) error {
	f.writes = append(f.writes, bitrateWrite{t: t, kbps: kbps})
	return f.err
}

type fakeTelemetry struct {
	switches []RepresentationSwitch
	dvr      int
	updateID string
	tracks   map[TrackKey]int
	added    []TrackInfo
	latency  []float64
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{updateID: "mu-1", tracks: make(map[TrackKey]int)}
}

func (f *fakeTelemetry) AddRepresentationSwitch(t MediaType, at time.Time, mediaTimeMs float64, id string) {
	f.switches = append(f.switches, RepresentationSwitch{MediaType: t, At: at, MediaTimeMs: mediaTimeMs, RepresentationID: id})
}

func (f *fakeTelemetry) CurrentRepresentationSwitch(t MediaType) (RepresentationSwitch, bool) {
	for i := len(f.switches) - 1; i >= 0; i-- {
		if f.switches[i].MediaType == t {
			return f.switches[i], true
		}
	}
	return RepresentationSwitch{}, false
}

func (f *fakeTelemetry) AddDVRInfo(MediaType, float64, ManifestInfo, *Range) { f.dvr++ }

func (f *fakeTelemetry) CurrentManifestUpdate() (string, bool) { return f.updateID, f.updateID != "" }

func (f *fakeTelemetry) HasManifestUpdateTrack(_ string, key TrackKey) bool {
	_, ok := f.tracks[key]
	return ok
}

func (f *fakeTelemetry) AddManifestUpdateTrack(_ string, info TrackInfo) {
	f.tracks[info.TrackKey]++
	f.added = append(f.added, info)
}

func (f *fakeTelemetry) UpdateManifestUpdateLatency(_ string, latency float64) {
	f.latency = append(f.latency, latency)
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.pending))
	for _, t := range s.pending {
		out = append(out, t.d)
	}
	return out
}

func (s *manualScheduler) fireAll() {
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

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) completed() []DataUpdateCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DataUpdateCompleted
	for _, n := range r.notes {
		if c, ok := n.(DataUpdateCompleted); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if _, ok := note.(DataUpdateStarted); ok {
			n++
		}
	}
	return n
}

func (r *recorder) postponed() []AvailabilityStartInFuture {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilityStartInFuture
	for _, n := range r.notes {
		if p, ok := n.(AvailabilityStartInFuture); ok {
			out = append(out, p)
		}
	}
	return out
}

// stepClock advances one second per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (s *stepClock) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = s.t.Add(time.Second)
	return s.t
}

type harness struct {
	manifest  *fakeManifest
	abr       *fakeABR
	index     *fakeIndex
	avail     *fakeAvailability
	clock     *fakeClock
	prefs     *fakePrefs
	telemetry *fakeTelemetry
	sched     *manualScheduler
	notes     *recorder
	stream    *StreamInfo
	deps      Dependencies
	track     Track
	ctrl      *Controller
}

func testManifest(kind IndexKind, bandwidths ...int) *Manifest {
	as := &AdaptationSet{ID: "v", ContentType: MediaVideo}
	for i, bw := range bandwidths {
		as.Representations = append(as.Representations, RepresentationData{
			ID:              "v" + string(rune('0'+i)),
			Bandwidth:       bw,
			SegmentDuration: 4,
			Kind:            kind,
			StartNumber:     1,
		})
	}
	return &Manifest{
		Dynamic:              true,
		TimeShiftBufferDepth: 30,
		Periods:              []*Period{{ID: "p0", Index: 0, Start: 0, AdaptationSets: []*AdaptationSet{as}}},
	}
}

func newHarness(m *Manifest) *harness {
	h := &harness{
		manifest:  &fakeManifest{m: m},
		abr:       &fakeABR{top: 10, initial: 1000},
		index:     &fakeIndex{},
		avail:     &fakeAvailability{window: Range{Start: 10, End: 40}},
		clock:     &fakeClock{t: 35},
		prefs:     &fakePrefs{supported: true},
		telemetry: newFakeTelemetry(),
		sched:     &manualScheduler{},
		notes:     &recorder{},
		stream:    &StreamInfo{ID: "p0", IsLast: true, Manifest: ManifestInfo{Dynamic: m.Dynamic}},
	}
	clk := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h.deps = Dependencies{
		Manifest:     h.manifest,
		ABR:          h.abr,
		Availability: h.avail,
		Clock:        h.clock,
		Preferences:  h.prefs,
		Telemetry:    h.telemetry,
		Notifier:     h.notes,
		Scheduler:    h.sched,
		Settings:     Settings{LiveDelayFragmentCount: 3},
		Now:          clk.now,
	}
	h.track = Track{
		ID:     testTrackID,
		Type:   MediaVideo,
		Stream: h.stream,
		Media:  MediaInfo{Type: MediaVideo, StreamID: "p0"},
		Index:  h.index,
	}
	h.ctrl = NewController(h.deps)
	h.ctrl.Initialize(h.track)
	return h
}

func (h *harness) update() {
	m := h.manifest.m
	ref := AdaptationRef{PeriodIndex: 0, Index: 0, Type: MediaVideo}
	h.ctrl.UpdateData(m.AdaptationSet(ref), ref, MediaVideo)
}

// resolve fills in what an index service would for rep.
func resolve(rep *Representation) {
	rep.Availability = &Range{Start: 10, End: 40}
	rep.Initialization = &Initialization{URL: rep.ID + "/init.mp4"}
	if rep.Kind.HasSegmentList() {
		rep.Segments = []Segment{{Number: 1, Duration: rep.SegmentDuration}}
	}
}

func (h *harness) complete(quality int) {
	rep := h.ctrl.RepresentationForQuality(quality)
	resolve(rep)
	h.ctrl.OnRepresentationUpdated(RepresentationUpdated{Sender: testTrackID, Representation: rep})
}
