package representation

import (
	"errors"
	"log/slog"
)

// OnRepresentationUpdated accounts for one index refresh completion. The cycle
// closes the first time every representation of the set is fully indexed.
func (c *Controller) OnRepresentationUpdated(e RepresentationUpdated) {
	if c.detached || e.Sender != c.track.ID {
		c.log.Debug("ignoring representation update", slog.String("sender", e.Sender))
		return
	}
	r := e.Representation
	if r == nil {
		c.log.Warn("representation update without representation", slog.String("cycle_id", c.cycleID))
		return
	}
	if !c.set.contains(r) {
		c.log.Debug("ignoring update for superseded representation", slog.String("representation_id", r.ID))
		return
	}
	if e.Index != nil {
		e.Index.applyTo(r)
	}
	if !c.updating {
		c.log.Debug("ignoring representation update outside a cycle", slog.String("representation_id", r.ID))
		return
	}

	var ie *IndexError
	if errors.As(e.Err, &ie) && ie.Code == SegmentsUnavailableErrorCode {
		c.addDVRMetric()
		c.postponeUpdate(ie.AvailabilityDelay)
		c.notifyCompleted(&UpdateError{
			Code:    SegmentsUpdateFailedErrorCode,
			Message: "Segments update failed",
			Cause:   e.Err,
		})
		return
	}
	if e.Err != nil {
		c.log.Warn("representation update reported error",
			slog.String("representation_id", r.ID),
			slog.String("error", e.Err.Error()))
	}

	c.recordTrackInfo(r)

	if c.set.allIndexed() {
		c.closeCycle()
	}
}

// recordTrackInfo adds r to the current manifest update record unless an entry
// with the same key is already there.
func (c *Controller) recordTrackInfo(r *Representation) {
	tel := c.deps.Telemetry
	updateID, ok := tel.CurrentManifestUpdate()
	if !ok {
		return
	}
	key := TrackKey{
		RepresentationID: r.ID,
		Index:            r.Index,
		PeriodIndex:      r.Adaptation.PeriodIndex,
		MediaType:        c.track.Type,
	}
	if tel.HasManifestUpdateTrack(updateID, key) {
		return
	}
	tel.AddManifestUpdateTrack(updateID, TrackInfo{
		TrackKey:               key,
		PresentationTimeOffset: r.PresentationTimeOffset,
		StartNumber:            r.StartNumber,
		Kind:                   r.Kind,
	})
}

func (c *Controller) closeCycle() {
	c.updating = false

	quality := c.set.QualityOf(c.current)
	c.deps.ABR.SetPlaybackQuality(c.track.Type, c.streamInfo(), quality)

	tel := c.deps.Telemetry
	if updateID, ok := tel.CurrentManifestUpdate(); ok && c.current != nil && c.current.Availability != nil {
		tel.UpdateManifestUpdateLatency(updateID, c.current.Availability.End-c.deps.Clock.Time())
	}

	if !c.switchRecordedThisCycle() {
		c.addRepresentationSwitch()
	}

	c.log.Info("update cycle completed",
		slog.String("cycle_id", c.cycleID),
		slog.Int("quality", quality))
	c.notifyCompleted(nil)
}

func (c *Controller) switchRecordedThisCycle() bool {
	sw, ok := c.deps.Telemetry.CurrentRepresentationSwitch(c.track.Type)
	return ok && !sw.At.Before(c.cycleStarted)
}
