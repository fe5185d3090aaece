// Package indexer resolves the segment index of representations off the
// controller goroutine and reports the outcome back through a session.
package indexer

import (
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"dash-representation/internal/representation"
)

// MaxListSegments bounds a generated segment list.
const MaxListSegments = 2048

// Poster queues an event for the owning controller.
type Poster interface {
	Post(ev representation.Event) error
}

// Windows computes availability windows.
type Windows interface {
	SegmentAvailabilityRange(rep *representation.Representation, dynamic bool) *representation.Range
	AvailabilityDelay(rep *representation.Representation) float64
}

// Config configures a Service.
type Config struct {
	// Sender is the track id completions are attributed to.
	Sender  string
	Windows Windows
	// Dynamic reports whether the current manifest is live.
	Dynamic func() bool
	Logger  *slog.Logger
}

// Service implements representation.IndexService for one track.
type Service struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	poster Poster
	wg     sync.WaitGroup
}

// New returns a service that drops completions until Bind is called.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Dynamic == nil {
		cfg.Dynamic = func() bool { return false }
	}
	return &Service{cfg: cfg, logger: logger}
}

// Bind sets the destination of completions.
func (s *Service) Bind(p Poster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poster = p
}

// UpdateRepresentation implements representation.IndexService. The index is
// resolved against the snapshot the controller sees; only the completion is
// delivered from another goroutine.
func (s *Service) UpdateRepresentation(rep *representation.Representation, keepIdx bool) {
	ev := s.resolve(rep, keepIdx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(ev)
	}()
}

func (s *Service) resolve(rep *representation.Representation, keepIdx bool) representation.RepresentationUpdated {
	ev := representation.RepresentationUpdated{Sender: s.cfg.Sender, Representation: rep}
	dynamic := s.cfg.Dynamic()

	if dynamic {
		if delay := s.cfg.Windows.AvailabilityDelay(rep); delay > 0 {
			ev.Err = &representation.IndexError{
				Code:              representation.SegmentsUnavailableErrorCode,
				Message:           "segments are not available yet",
				AvailabilityDelay: delay,
			}
			return ev
		}
	}

	window := s.cfg.Windows.SegmentAvailabilityRange(rep, dynamic)
	result := &representation.IndexResult{Availability: window}
	if !keepIdx || rep.Initialization == nil {
		result.Initialization = &representation.Initialization{URL: initializationURL(rep)}
	}
	if rep.Kind.HasSegmentList() && (!keepIdx || rep.Segments == nil) {
		result.Segments = segmentList(rep, window)
	}
	ev.Index = result
	return ev
}

func (s *Service) deliver(ev representation.RepresentationUpdated) {
	s.mu.RLock()
	p := s.poster
	s.mu.RUnlock()
	if p == nil {
		s.logger.Warn("Dropping index completion, no session bound", "representation_id", ev.Representation.ID)
		return
	}
	if err := p.Post(ev); err != nil && !errors.Is(err, representation.ErrSessionClosed) {
		s.logger.Error("Failed to post index completion", "representation_id", ev.Representation.ID, "error", err)
	}
}

// Wait blocks until every in-flight refresh has been delivered.
func (s *Service) Wait() {
	s.wg.Wait()
}

func expand(template string, rep *representation.Representation, number int) string {
	return strings.NewReplacer(
		"$RepresentationID$", rep.ID,
		"$Bandwidth$", strconv.Itoa(rep.Bandwidth),
		"$Number$", strconv.Itoa(number),
	).Replace(template)
}

func initializationURL(rep *representation.Representation) string {
	if rep.InitializationURL != "" {
		return rep.BaseURL + expand(rep.InitializationURL, rep, 0)
	}
	return rep.BaseURL
}

// segmentList enumerates the segments of window. A BaseURL representation is a
// single segment spanning the window.
func segmentList(rep *representation.Representation, window *representation.Range) []representation.Segment {
	start := rep.StartNumber
	if start <= 0 {
		start = 1
	}
	if rep.Kind == representation.IndexBaseURL || rep.SegmentDuration <= 0 {
		return []representation.Segment{{
			Number:   start,
			Start:    window.Start,
			Duration: window.End - window.Start,
			Media:    rep.BaseURL,
		}}
	}

	first := int(math.Floor(window.Start / rep.SegmentDuration))
	last := int(math.Ceil(window.End / rep.SegmentDuration))
	if last-first > MaxListSegments {
		first = last - MaxListSegments
	}
	segments := make([]representation.Segment, 0, last-first)
	for i := first; i < last; i++ {
		number := start + i
		segments = append(segments, representation.Segment{
			Number:   number,
			Start:    float64(i) * rep.SegmentDuration,
			Duration: rep.SegmentDuration,
			Media:    rep.BaseURL + expand(rep.MediaTemplate, rep, number),
		})
	}
	return segments
}
