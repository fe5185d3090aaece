package representation

import "log/slog"

// OnQualityChanged applies an external quality decision for this track.
func (c *Controller) OnQualityChanged(e QualityChanged) {
	if c.detached || e.MediaType != c.track.Type || e.StreamID != c.streamInfo().ID {
		return
	}
	if e.OldQuality == e.NewQuality {
		return
	}
	rep := c.set.At(e.NewQuality)
	if rep == nil {
		c.log.Warn("quality change to unknown rank", slog.Int("quality", e.NewQuality))
		return
	}
	c.current = rep
	c.persistBitrate(e.MediaType, rep.Bandwidth)
	c.addRepresentationSwitch()
	c.log.Info("representation switched",
		slog.Int("old_quality", e.OldQuality),
		slog.Int("new_quality", e.NewQuality),
		slog.String("representation_id", rep.ID))
}

// OnBufferLevelUpdated records a DVR sample for every buffer level sample of this track.
func (c *Controller) OnBufferLevelUpdated(e BufferLevelUpdated) {
	if c.detached || e.Sender != c.track.ID {
		return
	}
	c.addDVRMetric()
}

func (c *Controller) addRepresentationSwitch() {
	if c.current == nil {
		return
	}
	c.deps.Telemetry.AddRepresentationSwitch(c.track.Type, c.deps.Now(), c.deps.Clock.Time()*1000, c.current.ID)
}

func (c *Controller) addDVRMetric() {
	if c.current == nil {
		return
	}
	window := c.deps.Availability.SegmentAvailabilityRange(c.current, c.track.dynamic())
	c.deps.Telemetry.AddDVRInfo(c.track.Type, c.deps.Clock.Time(), c.streamInfo().Manifest, window)
}

func (c *Controller) persistBitrate(t MediaType, bandwidth int) {
	prefs := c.deps.Preferences
	if prefs == nil || !t.persistsBitrate() || !prefs.Supported() {
		return
	}
	if err := prefs.SetBitrate(t, float64(bandwidth)/1000, c.deps.Now()); err != nil {
		c.log.Warn("persist bitrate failed", slog.String("error", err.Error()))
	}
}
