// Package optimizer solves the budget allocation problem: given published
// price records and a fixed budget, pick the set of catalog items that
// maximizes a composite stability/liquidity score without exceeding the
// budget or an optional item-count cap.
//
// Every call is pure and allocates its own tables, so one engine is safe
// to share across concurrent requests.
package optimizer

// BudgetCandidate is derived at query time from a published price record.
// Nil StabilityPct or DaysOnMarket means the statistic was unavailable,
// which the scoring step functions handle explicitly.
type BudgetCandidate struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Sport        string   `json:"sport"`
	Price        float64  `json:"price"`
	StabilityPct *float64 `json:"stabilityPct"`
	DaysOnMarket *float64 `json:"daysOnMarket"`
}

// KnapsackItem is a scored candidate with its price in integer cents. The
// dynamic program requires an integer weight domain.
type KnapsackItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Sport      string  `json:"sport"`
	Price      float64 `json:"price"`
	PriceCents int64   `json:"priceCents"`
	ValueScore float64 `json:"valueScore"`
}

// KnapsackResult is the outcome of one suggestion run. An empty Chosen
// with zero SpentCents is a legitimate answer, not an error: nothing fit
// the budget.
type KnapsackResult struct {
	Chosen      []KnapsackItem `json:"chosen"`
	SpentCents  int64          `json:"spentCents"`
	BudgetCents int64          `json:"budgetCents"`
	MaxCount    int            `json:"maxCount,omitempty"`
	TotalValue  float64        `json:"totalValue"`

	// TableCells is the DP table size the run allocated, for metrics.
	TableCells int64 `json:"-"`
}

// Leftover returns the unspent budget in cents.
func (r *KnapsackResult) Leftover() int64 {
	return r.BudgetCents - r.SpentCents
}
