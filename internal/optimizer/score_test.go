package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardpulse/internal/aggregator"
)

func fptr(v float64) *float64 { return &v }

func TestStabilityPoints(t *testing.T) {
	tests := []struct {
		name     string
		pct      *float64
		expected float64
	}{
		{"unknown", nil, 0},
		{"very tight", fptr(0.05), 100},
		{"boundary ten percent", fptr(0.10), 100},
		{"tight", fptr(0.15), 70},
		{"boundary twenty percent", fptr(0.20), 70},
		{"loose", fptr(0.30), 35},
		{"boundary thirty five", fptr(0.35), 35},
		{"volatile", fptr(0.50), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StabilityPoints(tt.pct), 1e-12)
		})
	}
}

func TestLiquidityMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		days     *float64
		expected float64
	}{
		{"unknown is neutral", nil, 1.00},
		{"week", fptr(7), 1.30},
		{"fortnight", fptr(14), 1.15},
		{"month", fptr(30), 1.00},
		{"two months", fptr(60), 0.90},
		{"stale", fptr(90), 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, LiquidityMultiplier(tt.days), 1e-12)
		})
	}
}

func TestValueScoreComposite(t *testing.T) {
	c := BudgetCandidate{StabilityPct: fptr(0.08), DaysOnMarket: fptr(5)}
	assert.InDelta(t, 130, c.ValueScore(), 1e-12)

	noStability := BudgetCandidate{DaysOnMarket: fptr(5)}
	assert.Zero(t, noStability.ValueScore())
}

func TestCandidatesFromRecords(t *testing.T) {
	records := map[string]*aggregator.PriceRecord{
		"a": {
			ItemID: "a", Name: "A", Sport: "Baseball",
			State: aggregator.StatePublished, TrimmedMean: fptr(25), StabilityCV: fptr(0.1),
		},
		"b": {ItemID: "b", State: aggregator.StatePublished}, // insufficient data
		"c": {ItemID: "c", State: aggregator.StateErrored},
	}

	candidates := CandidatesFromRecords(records)
	require.Len(t, candidates, 1)
	assert.Equal(t, "a", candidates[0].ID)
	assert.InDelta(t, 25, candidates[0].Price, 1e-12)
}

func TestBuildItemsFilters(t *testing.T) {
	candidates := []BudgetCandidate{
		{ID: "ok", Price: 20, StabilityPct: fptr(0.1)},
		{ID: "over budget", Price: 200, StabilityPct: fptr(0.1)},
		{ID: "no price", Price: 0, StabilityPct: fptr(0.1)},
		{ID: "no score", Price: 20},
	}

	items := BuildItems(candidates, 100)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].ID)
	assert.Equal(t, int64(2000), items[0].PriceCents)
}

func TestBuildItemsDeduplicates(t *testing.T) {
	t.Run("higher score wins", func(t *testing.T) {
		items := BuildItems([]BudgetCandidate{
			{ID: "x", Price: 20, StabilityPct: fptr(0.3)},
			{ID: "x", Price: 25, StabilityPct: fptr(0.05)},
		}, 100)
		require.Len(t, items, 1)
		assert.InDelta(t, 25, items[0].Price, 1e-12)
	})

	t.Run("tie goes to lower price", func(t *testing.T) {
		items := BuildItems([]BudgetCandidate{
			{ID: "x", Price: 25, StabilityPct: fptr(0.05)},
			{ID: "x", Price: 20, StabilityPct: fptr(0.05)},
		}, 100)
		require.Len(t, items, 1)
		assert.InDelta(t, 20, items[0].Price, 1e-12)
	})
}

func TestToCentsRounding(t *testing.T) {
	assert.Equal(t, int64(1999), toCents(19.99))
	assert.Equal(t, int64(1000), toCents(9.995))
	assert.Equal(t, int64(33), toCents(0.3333))
}
