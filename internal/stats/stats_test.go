package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		xs       []float64
		expected float64
		ok       bool
	}{
		{"even count averages middle pair", []float64{1, 2, 3, 4}, 2.5, true},
		{"odd count takes middle", []float64{1, 2, 3}, 2, true},
		{"unsorted input", []float64{3, 1, 2}, 2, true},
		{"single value", []float64{7}, 7, true},
		{"empty sample", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.xs)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-12)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	_, ok := Median(xs)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}

func TestStdev(t *testing.T) {
	t.Run("needs at least two values", func(t *testing.T) {
		_, ok := Stdev([]float64{5})
		assert.False(t, ok)

		_, ok = Stdev(nil)
		assert.False(t, ok)
	})

	t.Run("sample variance uses n-1", func(t *testing.T) {
		// Values 2,4,4,4,5,5,7,9: mean 5, sum of squares 32, var 32/7.
		sd, ok := Stdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		require.True(t, ok)
		assert.InDelta(t, 2.13808993, sd, 1e-6)
	})

	t.Run("identical values have zero stdev", func(t *testing.T) {
		sd, ok := Stdev([]float64{11, 11, 11})
		require.True(t, ok)
		assert.Zero(t, sd)
	})
}

func TestWinsorizeIndexMath(t *testing.T) {
	// n=10, p=0.4 => k=4: indices 0..3 clamp up to sorted[4], indices 6..9
	// clamp down to sorted[5].
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	wins := Winsorize(xs, 0.4)

	require.Len(t, wins, 10)
	assert.Equal(t, []float64{5, 5, 5, 5, 5, 6, 6, 6, 6, 6}, wins)
}

func TestWinsorizeDegenerateCases(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		p    float64
	}{
		{"n below three", []float64{1, 100}, 0.4},
		{"k is zero", []float64{1, 2, 3, 4}, 0.1},
		{"n <= 2k", []float64{1, 2, 3, 4}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wins := Winsorize(tt.xs, tt.p)
			sorted := sortedCopy(tt.xs)
			assert.Equal(t, sorted, wins, "degenerate winsorization must return the sorted sample unchanged")
		})
	}
}

func TestTrimmedMeanFallsBackToMedian(t *testing.T) {
	t.Run("n=2 always falls back", func(t *testing.T) {
		got, ok := TrimmedMean([]float64{1, 100}, 0.4)
		require.True(t, ok)
		assert.InDelta(t, 50.5, got, 1e-12)
	})

	t.Run("n=3 p=0.4 winsorization applies", func(t *testing.T) {
		// k=1, 2k=2 < 3, so this is NOT a fallback case: the sample
		// winsorizes to three copies of the middle value.
		got, ok := TrimmedMean([]float64{1, 10, 100}, 0.4)
		require.True(t, ok)
		assert.InDelta(t, 10, got, 1e-12)
	})

	t.Run("empty sample", func(t *testing.T) {
		_, ok := TrimmedMean(nil, 0.4)
		assert.False(t, ok)
	})
}

func TestCV(t *testing.T) {
	t.Run("requires three raw values", func(t *testing.T) {
		_, ok := CV([]float64{10, 11}, 0.4)
		assert.False(t, ok)
	})

	t.Run("non-positive winsorized mean", func(t *testing.T) {
		_, ok := CV([]float64{-5, -4, -3, -2}, 0.1)
		assert.False(t, ok)
	})

	t.Run("tight sample has low cv", func(t *testing.T) {
		cv, ok := CV([]float64{100, 101, 99, 100, 102, 98}, 0.1)
		require.True(t, ok)
		assert.Less(t, cv, 0.05)
	})
}

// TestOutlierDamping walks the full fixture from the aggregation pipeline:
// one extreme outlier in five listings is fully absorbed by winsorization.
func TestOutlierDamping(t *testing.T) {
	xs := []float64{10, 12, 11, 100, 9}
	const p = 0.4

	// sorted [9,10,11,12,100], n=5, k=2, 2k=4 < 5: caps are both sorted[2]=11.
	wins := Winsorize(xs, p)
	assert.Equal(t, []float64{11, 11, 11, 11, 11}, wins)

	tm, ok := TrimmedMean(xs, p)
	require.True(t, ok)
	assert.InDelta(t, 11, tm, 1e-12)

	med, ok := Median(xs)
	require.True(t, ok)
	assert.InDelta(t, 11, med, 1e-12)

	cv, ok := CV(xs, p)
	require.True(t, ok)
	assert.Zero(t, cv)
}
