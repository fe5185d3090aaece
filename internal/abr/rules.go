// Package abr holds the bitrate rules consulted by representation controllers.
package abr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/PaesslerAG/gval"
	"github.com/gammazero/deque"

	"dash-representation/internal/representation"
)

// ThroughputWindow is the number of throughput samples averaged per media type.
const ThroughputWindow = 4

const bandwidthVar = "br"

// ErrInvalidCeiling is returned for a ceiling expression that does not evaluate to a bool.
var ErrInvalidCeiling = errors.New("invalid bitrate ceiling expression")

// BitrateSource supplies a previously used bitrate in kbps.
type BitrateSource interface {
	Bitrate(t representation.MediaType) (float64, bool)
}

// Config configures Rules.
type Config struct {
	// Ceiling is a comparison applied to each representation bandwidth in bps,
	// for example "<= 3000000". Empty allows every representation.
	Ceiling string
	// InitialBitrates are the kbps defaults used before any preference exists.
	InitialBitrates map[representation.MediaType]float64
	Preferences     BitrateSource
	Logger          *slog.Logger
}

type mediaState struct {
	bitrates []int
	samples  deque.Deque[float64]
	quality  map[string]int
	playback map[string]int
}

// Rules implements representation.ABR. It is safe for concurrent use.
type Rules struct {
	mu      sync.Mutex
	cfg     Config
	logger  *slog.Logger
	ceiling gval.Evaluable
	media   map[representation.MediaType]*mediaState
}

// New validates cfg and returns the rules.
func New(cfg Config) (*Rules, error) {
	r := &Rules{cfg: cfg, logger: cfg.Logger, media: make(map[representation.MediaType]*mediaState)}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Ceiling != "" {
		eval, err := gval.Full().NewEvaluable(bandwidthVar + cfg.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCeiling, cfg.Ceiling, err)
		}
		r.ceiling = eval
		if _, err := r.allowed(0); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Rules) state(t representation.MediaType) *mediaState {
	s, ok := r.media[t]
	if !ok {
		s = &mediaState{quality: make(map[string]int), playback: make(map[string]int)}
		r.media[t] = s
	}
	return s
}

func (r *Rules) allowed(bandwidth int) (bool, error) {
	if r.ceiling == nil {
		return true, nil
	}
	value, err := r.ceiling(context.Background(), map[string]interface{}{bandwidthVar: bandwidth})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidCeiling, err)
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Bool {
		return v.Bool(), nil
	}
	return false, fmt.Errorf("%w: %q is not a comparison", ErrInvalidCeiling, r.cfg.Ceiling)
}

// SetBitrateList records the ascending bitrate list, in bps, of a media type.
func (r *Rules) SetBitrateList(t representation.MediaType, bitrates []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(t).bitrates = append([]int(nil), bitrates...)
}

// AddThroughput records a measured throughput sample in kbps.
func (r *Rules) AddThroughput(t representation.MediaType, kbps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(t)
	s.samples.PushBack(kbps)
	for s.samples.Len() > ThroughputWindow {
		s.samples.PopFront()
	}
}

// SetQuality stores the quality the player wants for a stream and returns the previous one.
func (r *Rules) SetQuality(t representation.MediaType, streamID string, quality int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(t)
	old := s.quality[streamID]
	s.quality[streamID] = quality
	return old
}

// PlaybackQuality returns the quality last confirmed by a completed cycle.
func (r *Rules) PlaybackQuality(t representation.MediaType, streamID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.state(t).playback[streamID]
	return q, ok
}

// TopQualityIndex implements representation.ABR. It is the highest rank whose
// bandwidth passes the ceiling.
func (r *Rules) TopQualityIndex(t representation.MediaType, _ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	bitrates := r.state(t).bitrates
	top := 0
	for i, bw := range bitrates {
		ok, err := r.allowed(bw)
		if err != nil {
			r.logger.Warn("Bitrate ceiling failed", "mediaType", t, "bandwidth", bw, "error", err)
			return len(bitrates) - 1
		}
		if ok {
			top = i
		}
	}
	return top
}

// QualityForBitrate implements representation.ABR. It returns the highest rank
// whose bitrate does not exceed kbps.
func (r *Rules) QualityForBitrate(media representation.MediaInfo, kbps float64) int {
	quality := 0
	for i, bw := range media.BitrateList {
		if float64(bw)/1000 <= kbps {
			quality = i
		}
	}
	return quality
}

// AverageThroughput implements representation.ABR.
func (r *Rules) AverageThroughput(t representation.MediaType) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(t)
	n := s.samples.Len()
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += s.samples.At(i)
	}
	return sum / float64(n), true
}

// InitialBitrate implements representation.ABR.
func (r *Rules) InitialBitrate(t representation.MediaType, _ representation.StreamInfo) float64 {
	if r.cfg.Preferences != nil {
		if kbps, ok := r.cfg.Preferences.Bitrate(t); ok {
			return kbps
		}
	}
	return r.cfg.InitialBitrates[t]
}

// QualityFor implements representation.ABR.
func (r *Rules) QualityFor(t representation.MediaType, stream representation.StreamInfo) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(t).quality[stream.ID]
}

// SetPlaybackQuality implements representation.ABR.
func (r *Rules) SetPlaybackQuality(t representation.MediaType, stream representation.StreamInfo, quality int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state(t)
	s.playback[stream.ID] = quality
	s.quality[stream.ID] = quality
}
