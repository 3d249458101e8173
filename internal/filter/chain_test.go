package filter

import (
	"errors"
	"testing"

	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFilter struct{}

func (failingFilter) Filter(*TrackData) (*FilterResult, error) { return nil, errors.New("boom") }
func (failingFilter) Name() string                             { return "failing" }
func (failingFilter) Description() string                      { return "always fails" }

func TestTimeGapFilter_Filter(t *testing.T) {
	logger := utils.NewLogger("debug", "text")
	f := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}}, logger)

	track := &TrackData{MMSI: "574792499", Points: pointsAt(0, 30, 65, 66, 200)}
	result, err := f.Filter(track)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 65, 200}, timestampsOf(result.Points))
	assert.Equal(t, 5, result.OriginalCount)
	assert.Equal(t, 2, result.FilteredCount)
	assert.Equal(t, 2, result.Statistics.Dropped)
	assert.Equal(t, int64(200), result.Statistics.SpanSeconds)
	assert.Equal(t, int64(200), result.Statistics.KeptSpanSeconds)
	assert.Len(t, track.Points, 5)
	assert.Equal(t, "TimeGapFilter", f.Name())
	assert.Contains(t, f.Description(), "60s")
}

func TestTimeGapFilter_EmptyTrack(t *testing.T) {
	f := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}}, utils.NopLogger())

	result, err := f.Filter(&TrackData{})
	require.NoError(t, err)
	assert.NotNil(t, result.Points)
	assert.Empty(t, result.Points)
}

func TestTimeGapFilter_OrderPolicies(t *testing.T) {
	logger := utils.NopLogger()
	track := &TrackData{Points: pointsAt(100, 200, 50, 260)}

	permissive := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}}, logger)
	result, err := permissive.Filter(track)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 260}, timestampsOf(result.Points))
	assert.Equal(t, 1, result.Statistics.OutOfOrder)

	sorted := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}, Order: OrderSort}, logger)
	result, err = sorted.Filter(track)
	require.NoError(t, err)
	assert.Equal(t, []int64{50, 200, 260}, timestampsOf(result.Points))

	reject := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}, Order: OrderReject}, logger)
	_, err = reject.Filter(track)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestTimeGapFilter_NegativeGapClamped(t *testing.T) {
	f := NewTimeGapFilter(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: -5}}, utils.NopLogger())

	result, err := f.Filter(&TrackData{Points: pointsAt(1, 2, 3)})
	require.NoError(t, err)
	assert.Len(t, result.Points, 3)
	assert.Contains(t, f.Description(), "0s")
}

func TestFilterChain(t *testing.T) {
	logger := utils.NopLogger()
	chain := NewFilterChain(&FilterConfig{Sample: SampleFilterConfig{MinGapSeconds: 60}}, logger)

	result, err := chain.Filter(&TrackData{Points: pointsAt(0, 30, 65, 66, 200)})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 65, 200}, timestampsOf(result.Points))
	assert.Equal(t, 2, result.FilteredCount)
	assert.Equal(t, "Chain of filters: [TimeGapFilter]", chain.Description())

	empty, err := chain.Filter(&TrackData{Points: []models.TrackPoint{}})
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
}

func TestFilterChain_StopsOnError(t *testing.T) {
	chain := NewFilterChain(DefaultFilterConfig(), utils.NopLogger())
	chain.AddFilter(failingFilter{})

	_, err := chain.Filter(&TrackData{Points: pointsAt(1, 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestParseGap(t *testing.T) {
	cfg, err := ParseGap("")
	require.NoError(t, err)
	assert.Zero(t, cfg.MinGapSeconds)

	cfg, err = ParseGap(" 900 ")
	require.NoError(t, err)
	assert.Equal(t, int64(900), cfg.MinGapSeconds)

	cfg, err = ParseGap("45")
	require.NoError(t, err)
	assert.Equal(t, int64(45), cfg.MinGapSeconds)

	_, err = ParseGap("-60")
	assert.Error(t, err)
	_, err = ParseGap("1m")
	assert.Error(t, err)
}

func TestGapOptions(t *testing.T) {
	require.NotEmpty(t, GapOptions)
	assert.Zero(t, GapOptions[0].Seconds)
	for i := 1; i < len(GapOptions); i++ {
		assert.Greater(t, GapOptions[i].Seconds, GapOptions[i-1].Seconds)
	}
}
