package representation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityChanged_switchesAndPersists(t *testing.T) {
	h := newHarness(testManifest(IndexTemplate, 500_000, 1_000_000, 2_000_000))
	h.abr.forBitrate = 0
	h.update()
	h.clock.t = 12.5

	h.ctrl.OnQualityChanged(QualityChanged{MediaType: MediaVideo, StreamID: "p0", OldQuality: 0, NewQuality: 2})

	assert.Equal(t, "v2", h.ctrl.CurrentRepresentation().ID)
	require.Len(t, h.prefs.writes, 1)
	assert.Equal(t, bitrateWrite{t: MediaVideo, kbps: 2000}, h.prefs.writes[0])
	require.Len(t, h.telemetry.switches, 1)
	assert.Equal(t, "v2", h.telemetry.switches[0].RepresentationID)
	assert.Equal(t, 12500.0, h.telemetry.switches[0].MediaTimeMs)
	assert.True(t, h.ctrl.Updating(), "selection is independent from the join")
}

func TestQualityChanged_ignored(t *testing.T) {
	tests := []struct {
		name string
		e    QualityChanged
	}{
		{"same quality", QualityChanged{MediaType: MediaVideo, StreamID: "p0", OldQuality: 1, NewQuality: 1}},
		{"other media type", QualityChanged{MediaType: MediaAudio, StreamID: "p0", OldQuality: 0, NewQuality: 1}},
		{"other stream", QualityChanged{MediaType: MediaVideo, StreamID: "p9", OldQuality: 0, NewQuality: 1}},
		{"unknown rank", QualityChanged{MediaType: MediaVideo, StreamID: "p0", OldQuality: 0, NewQuality: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testManifest(IndexTemplate, 500_000, 1_000_000))
			h.abr.forBitrate = 0
			h.update()

			h.ctrl.OnQualityChanged(tt.e)

			assert.Equal(t, "v0", h.ctrl.CurrentRepresentation().ID)
			assert.Empty(t, h.prefs.writes)
			assert.Empty(t, h.telemetry.switches)
		})
	}
}

func TestQualityChanged_preferenceOnlyForAudioVideo(t *testing.T) {
	h := newHarness(testManifest(IndexTemplate, 500_000, 1_000_000))
	h.track.Type = MediaFragmentedText
	h.ctrl.Initialize(h.track)
	h.abr.forBitrate = 0
	h.update()

	h.ctrl.OnQualityChanged(QualityChanged{MediaType: MediaFragmentedText, StreamID: "p0", OldQuality: 0, NewQuality: 1})

	assert.Equal(t, "v1", h.ctrl.CurrentRepresentation().ID)
	assert.Empty(t, h.prefs.writes)
	assert.Len(t, h.telemetry.switches, 1)
}

func TestQualityChanged_unsupportedOrFailingStore(t *testing.T) {
	h := newHarness(testManifest(IndexTemplate, 500_000, 1_000_000))
	h.prefs.supported = false
	h.update()

	h.ctrl.OnQualityChanged(QualityChanged{MediaType: MediaVideo, StreamID: "p0", OldQuality: 0, NewQuality: 1})
	assert.Empty(t, h.prefs.writes)

	h.prefs.supported = true
	h.prefs.err = errors.New("quota exceeded")
	h.ctrl.OnQualityChanged(QualityChanged{MediaType: MediaVideo, StreamID: "p0", OldQuality: 1, NewQuality: 0})
	assert.Len(t, h.prefs.writes, 1)
	assert.Len(t, h.telemetry.switches, 2, "a persistence failure does not block the switch")
}

func TestBufferLevel_recordsDVRRegardlessOfCycle(t *testing.T) {
	h := newHarness(testManifest(IndexTemplate, 500_000))
	h.update()

	h.ctrl.OnBufferLevelUpdated(BufferLevelUpdated{Sender: testTrackID, BufferLevel: 4})
	h.complete(0)
	h.ctrl.OnBufferLevelUpdated(BufferLevelUpdated{Sender: testTrackID, BufferLevel: 6})
	h.ctrl.OnBufferLevelUpdated(BufferLevelUpdated{Sender: "audio-0", BufferLevel: 6})

	assert.Equal(t, 2, h.telemetry.dvr)
}

func TestBufferLevel_noSelectionNoSample(t *testing.T) {
	h := newHarness(testManifest(IndexTemplate, 500_000))

	h.ctrl.OnBufferLevelUpdated(BufferLevelUpdated{Sender: testTrackID})

	assert.Zero(t, h.telemetry.dvr)
}
