package optimizer

import (
	"math"

	"github.com/shopspring/decimal"

	"cardpulse/internal/aggregator"
)

// StabilityPoints maps a stability score (coefficient of variation, as a
// fraction) onto the four-bucket step scale the allocator reasons in. An
// unknown stability earns nothing.
func StabilityPoints(pct *float64) float64 {
	switch {
	case pct == nil:
		return 0
	case *pct <= 0.10:
		return 100
	case *pct <= 0.20:
		return 70
	case *pct <= 0.35:
		return 35
	default:
		return 10
	}
}

// LiquidityMultiplier rewards items with shorter time-on-market. Unknown
// age is neutral.
func LiquidityMultiplier(days *float64) float64 {
	switch {
	case days == nil:
		return 1.00
	case *days <= 7:
		return 1.30
	case *days <= 14:
		return 1.15
	case *days <= 30:
		return 1.00
	case *days <= 60:
		return 0.90
	default:
		return 0.75
	}
}

// ValueScore is the composite score the knapsack maximizes.
func (c BudgetCandidate) ValueScore() float64 {
	return StabilityPoints(c.StabilityPct) * LiquidityMultiplier(c.DaysOnMarket)
}

// CandidatesFromRecords derives budget candidates from the published
// snapshot records. Only records with a usable trimmed mean qualify.
func CandidatesFromRecords(records map[string]*aggregator.PriceRecord) []BudgetCandidate {
	candidates := make([]BudgetCandidate, 0, len(records))
	for _, rec := range records {
		if !rec.HasEstimate() {
			continue
		}
		candidates = append(candidates, BudgetCandidate{
			ID:           rec.ItemID,
			Name:         rec.Name,
			Sport:        rec.Sport,
			Price:        *rec.TrimmedMean,
			StabilityPct: rec.StabilityCV,
			DaysOnMarket: rec.AvgAgeDays,
		})
	}
	return candidates
}

// BuildItems scores, filters and deduplicates candidates into the
// knapsack's input pool.
//
// Dropped: non-positive or non-finite prices, zero value scores, and
// anything priced over the budget. Duplicates (same ID from overlapping
// listings) keep the higher value score, tie-broken by lower price, so one
// catalog item can never be bought twice.
func BuildItems(candidates []BudgetCandidate, budget float64) []KnapsackItem {
	best := make(map[string]KnapsackItem, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, c := range candidates {
		if c.Price <= 0 || math.IsNaN(c.Price) || math.IsInf(c.Price, 0) || c.Price > budget {
			continue
		}
		score := c.ValueScore()
		if score <= 0 {
			continue
		}

		item := KnapsackItem{
			ID:         c.ID,
			Name:       c.Name,
			Sport:      c.Sport,
			Price:      c.Price,
			PriceCents: toCents(c.Price),
			ValueScore: score,
		}

		prev, seen := best[c.ID]
		if !seen {
			best[c.ID] = item
			order = append(order, c.ID)
			continue
		}
		if score > prev.ValueScore || (score == prev.ValueScore && item.PriceCents < prev.PriceCents) {
			best[c.ID] = item
		}
	}

	items := make([]KnapsackItem, 0, len(best))
	for _, id := range order {
		items = append(items, best[id])
	}
	return items
}

// toCents rounds a currency amount to integer cents using decimal
// arithmetic, avoiding float64 rounding surprises like 19.99*100 = 1998.99.
func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
