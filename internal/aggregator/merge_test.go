package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestPreferFirstValidMerge(t *testing.T) {
	t.Run("first source with estimate wins", func(t *testing.T) {
		merged := PreferFirstValid{}.Merge([]SourceStats{
			{Source: "active", SampleSize: 2},
			{Source: "sold", SampleSize: 6, TrimmedMean: fptr(11), Median: fptr(10)},
		})
		assert.Equal(t, "sold", merged.Source)
		require.NotNil(t, merged.TrimmedMean)
		assert.InDelta(t, 11, *merged.TrimmedMean, 1e-12)
	})

	t.Run("falls back to first non-empty sample", func(t *testing.T) {
		merged := PreferFirstValid{}.Merge([]SourceStats{
			{Source: "active", SampleSize: 0},
			{Source: "sold", SampleSize: 2},
		})
		assert.Equal(t, "sold", merged.Source)
		assert.Nil(t, merged.TrimmedMean)
	})

	t.Run("empty input", func(t *testing.T) {
		merged := PreferFirstValid{}.Merge(nil)
		assert.Zero(t, merged.SampleSize)
	})
}

func TestAverageValidMerge(t *testing.T) {
	merged := AverageValid{}.Merge([]SourceStats{
		{Source: "active", SampleSize: 4, TrimmedMean: fptr(10), Median: fptr(9), StabilityCV: fptr(0.1)},
		{Source: "sold", SampleSize: 6, TrimmedMean: fptr(14), AvgAgeDays: fptr(12)},
	})

	assert.Equal(t, 10, merged.SampleSize)
	require.NotNil(t, merged.TrimmedMean)
	assert.InDelta(t, 12, *merged.TrimmedMean, 1e-12)
	// Median only came from one source, so the average is that value.
	require.NotNil(t, merged.Median)
	assert.InDelta(t, 9, *merged.Median, 1e-12)
	require.NotNil(t, merged.StabilityCV)
	assert.InDelta(t, 0.1, *merged.StabilityCV, 1e-12)
	require.NotNil(t, merged.AvgAgeDays)
	assert.InDelta(t, 12, *merged.AvgAgeDays, 1e-12)
}

func TestPolicyByName(t *testing.T) {
	assert.Equal(t, "average", PolicyByName("average").Name())
	assert.Equal(t, "prefer_first", PolicyByName("prefer_first").Name())
	assert.Equal(t, "prefer_first", PolicyByName("bogus").Name())
}
