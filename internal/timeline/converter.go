// Package timeline maps wallclock time onto the presentation timeline of a
// manifest snapshot.
package timeline

import (
	"math"
	"time"

	"dash-representation/internal/representation"
)

// Snapshots is the manifest source the converter reads from.
type Snapshots interface {
	Current() *representation.Manifest
	PresentationTime(m *representation.Manifest, wall time.Time) float64
}

// Converter implements representation.AvailabilityCalculator.
type Converter struct {
	snapshots Snapshots
	now       func() time.Time
}

// NewConverter returns a converter reading wallclock time from now.
// A nil now uses time.Now.
func NewConverter(snapshots Snapshots, now func() time.Time) *Converter {
	if now == nil {
		now = time.Now
	}
	return &Converter{snapshots: snapshots, now: now}
}

// SegmentAvailabilityRange returns the window in which segments of rep can be
// requested. A static presentation exposes the whole period. A dynamic one
// exposes the time shift buffer behind the live point, trailing it by one
// segment so that the last segment is complete.
func (c *Converter) SegmentAvailabilityRange(rep *representation.Representation, dynamic bool) *representation.Range {
	m := c.snapshots.Current()
	p := m.Period(rep.Adaptation.PeriodIndex)
	if p == nil {
		return &representation.Range{}
	}
	if !dynamic {
		return &representation.Range{Start: p.Start, End: p.Start + p.Duration}
	}

	now := c.snapshots.PresentationTime(m, c.now())
	periodEnd := math.Inf(1)
	if p.Duration > 0 {
		periodEnd = p.Start + p.Duration
	}
	d := segmentDuration(rep)

	start := p.Start
	if m.TimeShiftBufferDepth > 0 {
		start = math.Max(now-m.TimeShiftBufferDepth, p.Start)
	}
	end := now - d
	if now >= periodEnd && now-d < periodEnd {
		end = periodEnd - d
	}
	if m.CheckTime > 0 && end > m.CheckTime {
		end = m.CheckTime
	}
	if end < start {
		end = start
	}
	return &representation.Range{Start: start, End: end}
}

// AvailabilityDelay returns how many seconds remain until the first segment of
// rep exists, or 0 when it is already available.
func (c *Converter) AvailabilityDelay(rep *representation.Representation) float64 {
	m := c.snapshots.Current()
	p := m.Period(rep.Adaptation.PeriodIndex)
	if m == nil || !m.Dynamic || p == nil {
		return 0
	}
	now := c.snapshots.PresentationTime(m, c.now())
	firstAvailable := p.Start + segmentDuration(rep)
	if now >= firstAvailable {
		return 0
	}
	return firstAvailable - now
}

func segmentDuration(rep *representation.Representation) float64 {
	if rep.SegmentDuration > 0 {
		return rep.SegmentDuration
	}
	if n := len(rep.Segments); n > 0 {
		return rep.Segments[n-1].Duration
	}
	return 0
}
