package representation

import (
	"log/slog"
	"time"
)

// postponeDelay returns the retry delay in milliseconds for a refresh that
// failed because segments become available in availabilityDelay seconds.
func postponeDelay(availabilityDelay, segmentDuration float64, fragmentCount int) float64 {
	return (availabilityDelay + segmentDuration*float64(fragmentCount)) * 1000
}

// postponeUpdate closes the collecting phase and schedules a fresh one.
// There is no retry limit; every failure reschedules.
func (c *Controller) postponeUpdate(availabilityDelay float64) {
	var segmentDuration float64
	if c.current != nil {
		segmentDuration = c.current.SegmentDuration
	}
	delayMs := postponeDelay(availabilityDelay, segmentDuration, c.deps.Settings.LiveDelayFragmentCount)
	delay := time.Duration(delayMs * float64(time.Millisecond))

	c.updating = false
	c.log.Info("update postponed",
		slog.String("cycle_id", c.cycleID),
		slog.Float64("availability_delay", availabilityDelay),
		slog.Float64("delay_ms", delayMs))
	c.deps.Notifier.Notify(AvailabilityStartInFuture{TrackID: c.track.ID, DelayMs: delayMs, Delay: delay})
	c.deps.Scheduler.AfterFunc(delay, c.retryUpdate)
}

// retryUpdate reopens collecting unless a cycle already runs or the controller was reset.
// The retry continues the postponed update: it keeps its start time, so a switch
// recorded before the postponement still counts at the close.
func (c *Controller) retryUpdate() {
	if c.detached || c.updating {
		return
	}
	started := c.cycleStarted
	c.startCycle()
	c.cycleStarted = started
	c.log.Info("postponed update cycle started", slog.String("cycle_id", c.cycleID))
	c.refreshAll()
}
