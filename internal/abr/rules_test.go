package abr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dash-representation/internal/representation"
)

type staticSource map[representation.MediaType]float64

func (s staticSource) Bitrate(t representation.MediaType) (float64, bool) {
	kbps, ok := s[t]
	return kbps, ok
}

var ladder = []int{500_000, 1_000_000, 3_000_000, 6_000_000}

func TestTopQualityIndex(t *testing.T) {
	tests := []struct {
		ceiling string
		want    int
	}{
		{"", 3},
		{"<= 3000000", 2},
		{"< 1000000", 0},
		{">= 0 && br < 6000000", 2},
	}
	for _, tt := range tests {
		t.Run(tt.ceiling, func(t *testing.T) {
			r, err := New(Config{Ceiling: tt.ceiling})
			require.NoError(t, err)
			r.SetBitrateList(representation.MediaVideo, ladder)

			assert.Equal(t, tt.want, r.TopQualityIndex(representation.MediaVideo, "p0"))
		})
	}
}

func TestTopQualityIndex_unknownMedia(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, 0, r.TopQualityIndex(representation.MediaAudio, "p0"))
}

func TestNew_invalidCeiling(t *testing.T) {
	for _, expr := range []string{"<=", "+ 5"} {
		_, err := New(Config{Ceiling: expr})
		assert.ErrorIs(t, err, ErrInvalidCeiling, expr)
	}
}

func TestQualityForBitrate(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)
	media := representation.MediaInfo{BitrateList: ladder}

	assert.Equal(t, 0, r.QualityForBitrate(media, 100))
	assert.Equal(t, 1, r.QualityForBitrate(media, 1000))
	assert.Equal(t, 2, r.QualityForBitrate(media, 5999))
	assert.Equal(t, 3, r.QualityForBitrate(media, 10_000))
}

func TestAverageThroughput_window(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)

	_, ok := r.AverageThroughput(representation.MediaVideo)
	assert.False(t, ok)

	for _, kbps := range []float64{100, 1000, 2000, 3000, 4000} {
		r.AddThroughput(representation.MediaVideo, kbps)
	}
	avg, ok := r.AverageThroughput(representation.MediaVideo)
	require.True(t, ok)
	assert.Equal(t, 2500.0, avg, "oldest sample falls out of the window")
}

func TestInitialBitrate(t *testing.T) {
	defaults := map[representation.MediaType]float64{representation.MediaVideo: 1000, representation.MediaAudio: 100}

	r, err := New(Config{InitialBitrates: defaults, Preferences: staticSource{representation.MediaVideo: 2500}})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, r.InitialBitrate(representation.MediaVideo, representation.StreamInfo{}))
	assert.Equal(t, 100.0, r.InitialBitrate(representation.MediaAudio, representation.StreamInfo{}))
	assert.Zero(t, r.InitialBitrate(representation.MediaText, representation.StreamInfo{}))
}

func TestQualityPerStream(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)
	p0 := representation.StreamInfo{ID: "p0"}

	assert.Equal(t, 0, r.QualityFor(representation.MediaVideo, p0))
	assert.Equal(t, 0, r.SetQuality(representation.MediaVideo, "p0", 2))
	assert.Equal(t, 2, r.SetQuality(representation.MediaVideo, "p0", 3))
	assert.Equal(t, 3, r.QualityFor(representation.MediaVideo, p0))
	assert.Equal(t, 0, r.QualityFor(representation.MediaVideo, representation.StreamInfo{ID: "p1"}))

	_, ok := r.PlaybackQuality(representation.MediaVideo, "p0")
	assert.False(t, ok)
	r.SetPlaybackQuality(representation.MediaVideo, p0, 1)
	q, ok := r.PlaybackQuality(representation.MediaVideo, "p0")
	require.True(t, ok)
	assert.Equal(t, 1, q)
	assert.Equal(t, 1, r.QualityFor(representation.MediaVideo, p0))
}
