package manifest

import (
	"errors"
	"fmt"
	"time"

	"dash-representation/internal/representation"
)

// ErrInvalidManifest is returned when a document cannot be turned into a snapshot.
var ErrInvalidManifest = errors.New("invalid manifest")

// Document is the JSON form of an already parsed manifest. Durations are
// ISO-8601 strings as they appear in an MPD.
type Document struct {
	Type                      string           `json:"type"` // static or dynamic
	AvailabilityStartTime     time.Time        `json:"availabilityStartTime"`
	PublishTime               time.Time        `json:"publishTime"`
	MediaPresentationDuration string           `json:"mediaPresentationDuration,omitempty"`
	MinimumUpdatePeriod       string           `json:"minimumUpdatePeriod,omitempty"`
	TimeShiftBufferDepth      string           `json:"timeShiftBufferDepth,omitempty"`
	Periods                   []PeriodDocument `json:"periods"`
}

// PeriodDocument is one period of a Document.
type PeriodDocument struct {
	ID             string                  `json:"id"`
	Start          string                  `json:"start,omitempty"`
	Duration       string                  `json:"duration,omitempty"`
	AdaptationSets []AdaptationSetDocument `json:"adaptationSets"`
}

// AdaptationSetDocument is one adaptation set of a period.
type AdaptationSetDocument struct {
	ID              string                   `json:"id"`
	ContentType     string                   `json:"contentType"`
	Representations []RepresentationDocument `json:"representations"`
}

// RepresentationDocument is one representation of an adaptation set.
type RepresentationDocument struct {
	ID                     string  `json:"id"`
	Bandwidth              int     `json:"bandwidth"`
	SegmentDuration        string  `json:"segmentDuration"`
	Kind                   string  `json:"kind"`
	PresentationTimeOffset float64 `json:"presentationTimeOffset,omitempty"`
	StartNumber            int     `json:"startNumber,omitempty"`
	Initialization         string  `json:"initialization,omitempty"`
	Media                  string  `json:"media,omitempty"`
	BaseURL                string  `json:"baseUrl,omitempty"`
}

// Build validates the document and returns a snapshot stamped with fetchTime.
func (d Document) Build(fetchTime time.Time) (*representation.Manifest, error) {
	m := &representation.Manifest{FetchTime: fetchTime}
	switch d.Type {
	case "dynamic":
		m.Dynamic = true
		if d.AvailabilityStartTime.IsZero() {
			return nil, fmt.Errorf("%w: availabilityStartTime MUST be present for a dynamic manifest", ErrInvalidManifest)
		}
	case "static", "":
	default:
		return nil, fmt.Errorf("%w: type MUST be static or dynamic, got %q", ErrInvalidManifest, d.Type)
	}
	if len(d.Periods) == 0 {
		return nil, fmt.Errorf("%w: at least one period is required", ErrInvalidManifest)
	}
	m.AvailabilityStartTime = d.AvailabilityStartTime

	var err error
	if m.MediaPresentationDuration, err = parseSeconds("mediaPresentationDuration", d.MediaPresentationDuration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.MinimumUpdatePeriod, err = parseSeconds("minimumUpdatePeriod", d.MinimumUpdatePeriod); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.TimeShiftBufferDepth, err = parseSeconds("timeShiftBufferDepth", d.TimeShiftBufferDepth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var lastEnd float64
	for i, pd := range d.Periods {
		p, err := pd.build(i, lastEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: period %d: %v", ErrInvalidManifest, i, err)
		}
		lastEnd = p.Start + p.Duration
		m.Periods = append(m.Periods, p)
	}
	return m, nil
}

func (pd PeriodDocument) build(index int, previousEnd float64) (*representation.Period, error) {
	p := &representation.Period{ID: pd.ID, Index: index, Start: previousEnd}
	if pd.Start != "" {
		start, err := parseSeconds("start", pd.Start)
		if err != nil {
			return nil, err
		}
		p.Start = start
	}
	duration, err := parseSeconds("duration", pd.Duration)
	if err != nil {
		return nil, err
	}
	p.Duration = duration

	for _, ad := range pd.AdaptationSets {
		as := &representation.AdaptationSet{ID: ad.ID, ContentType: representation.MediaType(ad.ContentType)}
		for _, rd := range ad.Representations {
			if rd.ID == "" {
				return nil, fmt.Errorf("adaptation set %q: representation without id", ad.ID)
			}
			if rd.Bandwidth <= 0 {
				return nil, fmt.Errorf("representation %q: invalid bandwidth %d", rd.ID, rd.Bandwidth)
			}
			segDur, err := parseSeconds("segmentDuration", rd.SegmentDuration)
			if err != nil {
				return nil, fmt.Errorf("representation %q: %w", rd.ID, err)
			}
			kind, err := parseKind(rd.Kind)
			if err != nil {
				return nil, fmt.Errorf("representation %q: %w", rd.ID, err)
			}
			as.Representations = append(as.Representations, representation.RepresentationData{
				ID:                     rd.ID,
				Bandwidth:              rd.Bandwidth,
				SegmentDuration:        segDur,
				Kind:                   kind,
				PresentationTimeOffset: rd.PresentationTimeOffset,
				StartNumber:            rd.StartNumber,
				InitializationURL:      rd.Initialization,
				MediaTemplate:          rd.Media,
				BaseURL:                rd.BaseURL,
			})
		}
		p.AdaptationSets = append(p.AdaptationSets, as)
	}
	return p, nil
}

func parseKind(s string) (representation.IndexKind, error) {
	switch k := representation.IndexKind(s); k {
	case representation.IndexTemplate, representation.IndexTimeline, representation.IndexSegmentBase, representation.IndexBaseURL:
		return k, nil
	case "":
		return representation.IndexTemplate, nil
	default:
		return "", fmt.Errorf("unknown index kind %q", s)
	}
}
