package optimizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrTableTooLarge rejects budget/maxCount combinations whose DP table
// would exceed the configured cell ceiling. Enforced before allocation.
var ErrTableTooLarge = errors.New("optimizer: dp table exceeds configured cell limit")

// TieBreak decides between equal-value selections in the constrained
// search. Without an explicit rule the table scan order would silently
// pick the winner.
type TieBreak int

const (
	// TieBreakLeftoverThenCount prefers the selection leaving less budget
	// unspent, then the one with more items.
	TieBreakLeftoverThenCount TieBreak = iota
	// TieBreakCountThenLeftover prefers more items, then less leftover.
	TieBreakCountThenLeftover
)

// TieBreakByName resolves a configured tie-break name. Unknown names fall
// back to TieBreakLeftoverThenCount.
func TieBreakByName(name string) TieBreak {
	if name == "count_then_leftover" {
		return TieBreakCountThenLeftover
	}
	return TieBreakLeftoverThenCount
}

// Engine runs budget suggestions. It holds only configuration; every
// Suggest call allocates its own tables.
type Engine struct {
	maxTableCells int64
	tieBreak      TieBreak
	logger        *slog.Logger
}

// NewEngine creates a suggestion engine.
func NewEngine(maxTableCells int64, tieBreak TieBreak, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTableCells <= 0 {
		maxTableCells = 50_000_000
	}
	return &Engine{
		maxTableCells: maxTableCells,
		tieBreak:      tieBreak,
		logger:        logger,
	}
}

// Suggest solves the 0/1 knapsack over the candidate pool. maxCount <= 0
// means no cardinality cap.
//
// A non-positive or non-finite budget, or a pool with nothing affordable,
// yields an empty result: "buy nothing" is a valid answer. Only a DP table
// beyond the configured ceiling is an error.
func (e *Engine) Suggest(candidates []BudgetCandidate, budget float64, maxCount int) (*KnapsackResult, error) {
	if budget <= 0 || math.IsNaN(budget) || math.IsInf(budget, 0) {
		return emptyResult(0, maxCount), nil
	}

	budgetCents := toCents(budget)
	items := BuildItems(candidates, budget)
	if len(items) == 0 {
		return emptyResult(budgetCents, maxCount), nil
	}

	if maxCount > 0 {
		return e.solveConstrained(items, budgetCents, maxCount)
	}
	return e.solveUnconstrained(items, budgetCents)
}

// solveUnconstrained is the classic 0/1 knapsack: dp[b] is the best value
// at cents-budget b, iterating the budget axis descending so an item is
// never reused within its own pass. The pick table records, per item and
// budget level, whether the item was taken, so the chosen set is
// reconstructed exactly rather than inferred.
func (e *Engine) solveUnconstrained(items []KnapsackItem, budget int64) (*KnapsackResult, error) {
	cells := int64(len(items)) * (budget + 1)
	if cells > e.maxTableCells {
		return nil, fmt.Errorf("%w: %d items x %d budget levels = %d cells (limit %d)",
			ErrTableTooLarge, len(items), budget+1, cells, e.maxTableCells)
	}

	dp := make([]float64, budget+1)
	pick := make([][]bool, len(items))

	for i, it := range items {
		pick[i] = make([]bool, budget+1)
		cost := it.PriceCents
		for b := budget; b >= cost; b-- {
			if cand := dp[b-cost] + it.ValueScore; cand > dp[b] {
				dp[b] = cand
				pick[i][b] = true
			}
		}
	}

	result := &KnapsackResult{
		BudgetCents: budget,
		TotalValue:  dp[budget],
		TableCells:  cells,
	}

	b := budget
	for i := len(items) - 1; i >= 0; i-- {
		if pick[i][b] {
			result.Chosen = append(result.Chosen, items[i])
			result.SpentCents += items[i].PriceCents
			b -= items[i].PriceCents
		}
	}
	reverseItems(result.Chosen)
	return result, nil
}

// pathNode is an immutable parent link in the constrained DP. A node's
// prev pointer is captured before the current item can touch the parent
// cell, so a path never contains the same item twice even though the
// table itself is updated in place.
type pathNode struct {
	item int
	prev *pathNode
}

// solveConstrained runs the two-dimensional DP: dp[k][b] is the best value
// of any k-item selection within cents-budget b, and the final scan over
// all k rows turns that into the at-most-maxCount answer. Items iterate
// outermost; for each item, k and b descend, so dp[k-1][b-cost] still
// reflects the state before this item and the classic no-reuse guarantee
// holds in both dimensions.
func (e *Engine) solveConstrained(items []KnapsackItem, budget int64, maxCount int) (*KnapsackResult, error) {
	rows := int64(maxCount) + 1
	cells := rows * (budget + 1)
	if cells > e.maxTableCells {
		return nil, fmt.Errorf("%w: maxCount %d x %d budget levels = %d cells (limit %d)",
			ErrTableTooLarge, maxCount, budget+1, cells, e.maxTableCells)
	}

	dp := make([][]float64, rows)
	path := make([][]*pathNode, rows)
	for k := range dp {
		dp[k] = make([]float64, budget+1)
		path[k] = make([]*pathNode, budget+1)
	}

	for idx, it := range items {
		cost := it.PriceCents
		for k := maxCount; k >= 1; k-- {
			for b := budget; b >= cost; b-- {
				if cand := dp[k-1][b-cost] + it.ValueScore; cand > dp[k][b] {
					dp[k][b] = cand
					path[k][b] = &pathNode{item: idx, prev: path[k-1][b-cost]}
				}
			}
		}
	}

	// Every k row at the full budget column covers all (k,b) optima,
	// since dp[k][b] is monotone in b. Ties between rows go through the
	// configured tie-break instead of scan order.
	bestValue := 0.0
	for k := 0; k <= maxCount; k++ {
		if dp[k][budget] > bestValue {
			bestValue = dp[k][budget]
		}
	}

	result := &KnapsackResult{
		BudgetCents: budget,
		MaxCount:    maxCount,
		TotalValue:  bestValue,
		TableCells:  cells,
	}
	if bestValue == 0 {
		return result, nil
	}

	var best *selection
	for k := 1; k <= maxCount; k++ {
		if dp[k][budget] != bestValue {
			continue
		}
		sel := reconstruct(items, path[k][budget])
		if best == nil || e.prefer(sel, best) {
			best = sel
		}
	}

	result.Chosen = best.chosen
	result.SpentCents = best.spent
	return result, nil
}

type selection struct {
	chosen []KnapsackItem
	spent  int64
}

// prefer reports whether a should replace b under the engine's tie-break.
func (e *Engine) prefer(a, b *selection) bool {
	switch e.tieBreak {
	case TieBreakCountThenLeftover:
		if len(a.chosen) != len(b.chosen) {
			return len(a.chosen) > len(b.chosen)
		}
		return a.spent > b.spent
	default:
		if a.spent != b.spent {
			return a.spent > b.spent
		}
		return len(a.chosen) > len(b.chosen)
	}
}

func reconstruct(items []KnapsackItem, node *pathNode) *selection {
	sel := &selection{}
	for ; node != nil; node = node.prev {
		sel.chosen = append(sel.chosen, items[node.item])
		sel.spent += items[node.item].PriceCents
	}
	reverseItems(sel.chosen)
	return sel
}

func reverseItems(items []KnapsackItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func emptyResult(budgetCents int64, maxCount int) *KnapsackResult {
	if maxCount < 0 {
		maxCount = 0
	}
	return &KnapsackResult{
		BudgetCents: budgetCents,
		MaxCount:    maxCount,
	}
}
