package representation

import "log/slog"

// OnWallclockTimeUpdated recomputes availability windows on ticks of a live stream.
func (c *Controller) OnWallclockTimeUpdated(e WallclockTimeUpdated) {
	if c.detached || !e.Dynamic {
		return
	}
	c.updateAvailabilityWindow(true)
}

// OnLiveEdgeSearchCompleted recomputes availability windows, refreshes the
// selected representation, and restamps the last period now that the client to
// server clock offset is known.
func (c *Controller) OnLiveEdgeSearchCompleted(e LiveEdgeSearchCompleted) {
	if c.detached || e.Err != nil || c.current == nil {
		return
	}
	c.updateAvailabilityWindow(true)
	c.track.Index.UpdateRepresentation(c.current, false)

	m := c.deps.Manifest.Current()
	period := m.Period(c.current.Adaptation.PeriodIndex)
	if period == nil || c.track.Stream == nil || !c.track.Stream.IsLast {
		return
	}
	m.CheckTime = c.deps.Manifest.CheckTime(m, period)
	period.Duration = c.deps.Manifest.EndTimeForLastPeriod(m, period) - period.Start
	c.track.Stream.Duration = period.Duration

	c.log.Debug("last period restamped",
		slog.Float64("live_edge", e.LiveEdge),
		slog.Float64("check_time", m.CheckTime),
		slog.Float64("duration", period.Duration))
}

func (c *Controller) updateAvailabilityWindow(dynamic bool) {
	if c.current == nil {
		return
	}
	for _, rep := range c.set.reps {
		rep.Availability = c.deps.Availability.SegmentAvailabilityRange(rep, dynamic)
	}
}
