package coordinator

import (
	"errors"
	"log/slog"
	"time"

	"dash-representation/internal/platform/metrics"
	"dash-representation/internal/representation"
)

// cycleEvents receives the controller notifications of one track. It runs on
// the session goroutine.
type cycleEvents struct {
	track   *Track
	metrics *metrics.Metrics
	now     func() time.Time
}

func (e *cycleEvents) Notify(n representation.Notification) {
	switch n := n.(type) {
	case representation.DataUpdateStarted:
		e.track.setLastCycle(CycleStatus{CycleID: n.CycleID, State: "started", At: e.now()})
		if e.metrics != nil {
			e.metrics.IncCyclesStarted()
		}

	case representation.DataUpdateCompleted:
		status := CycleStatus{CycleID: n.CycleID, State: "completed", At: e.now()}
		if n.Err != nil {
			status.State = "failed"
			status.Error = n.Err.Error()
			var ue *representation.UpdateError
			if errors.As(n.Err, &ue) && ue.Code == representation.SegmentsUpdateFailedErrorCode {
				status.State = "postponed"
				if last := e.track.LastCycle(); last != nil && last.CycleID == n.CycleID {
					status.Delay = last.Delay
				}
			}
		}
		e.track.setLastCycle(status)
		if e.metrics != nil {
			if n.Err != nil {
				e.metrics.IncCyclesFailed()
			} else {
				e.metrics.IncCyclesCompleted()
			}
		}
		if n.Err == nil {
			e.track.log.Debug("cycle completed", slog.String("cycle_id", n.CycleID))
		}

	case representation.AvailabilityStartInFuture:
		if last := e.track.LastCycle(); last != nil {
			last.Delay = n.Delay.String()
			e.track.setLastCycle(*last)
		}
		if e.metrics != nil {
			e.metrics.ObservePostponeDelay(n.Delay)
		}
	}
}

// metricsRecorder forwards telemetry samples to Prometheus.
type metricsRecorder struct {
	m *metrics.Metrics
}

func (r metricsRecorder) RepresentationSwitch(t representation.MediaType) {
	r.m.IncRepresentationSwitches(string(t))
}

func (r metricsRecorder) DVRSample(t representation.MediaType) {
	r.m.IncDVRSamples(string(t))
}

func (r metricsRecorder) ManifestUpdateLatency(t representation.MediaType, seconds float64) {
	r.m.SetManifestUpdateLatency(string(t), seconds)
}
