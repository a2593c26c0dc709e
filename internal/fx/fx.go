// Package fx normalizes marketplace listing prices to USD.
//
// The external rate source publishes rates relative to a single anchor
// currency (the original feed is CAD-anchored). BuildTable rebases those
// rows into per-currency USD multipliers; every derived multiplier depends
// on the anchor's own USD rate, so a missing or invalid anchor/USD rate
// fails the entire normalization pass rather than silently producing wrong
// conversions.
package fx

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrAnchorRate indicates the anchor currency's USD rate was missing or
// invalid. Fatal for the whole normalization pass.
var ErrAnchorRate = errors.New("fx: missing or invalid anchor->USD rate")

// Rate is one row of the anchor-relative rate feed: one unit of From costs
// Value units of the anchor currency.
type Rate struct {
	From  string
	Value float64
}

// Table maps upper-case currency codes to USD multipliers.
type Table struct {
	usdPer map[string]float64
	AsOf   string
}

// BuildTable rebases anchor-relative rates to USD multipliers.
//
// For each currency c with anchor rate r[c], usdPer[c] = r[c] / r[USD].
// The anchor itself converts at 1 / r[USD]. Rows with non-positive rates
// are dropped; a missing r[USD] returns ErrAnchorRate.
func BuildTable(rows []Rate, anchor, asOf string) (*Table, error) {
	anchor = strings.ToUpper(strings.TrimSpace(anchor))
	if anchor == "" {
		return nil, fmt.Errorf("fx: anchor currency is required")
	}

	anchorPer := map[string]float64{anchor: 1}
	for _, r := range rows {
		code := strings.ToUpper(strings.TrimSpace(r.From))
		if code == "" || r.Value <= 0 || !isFinite(r.Value) {
			continue
		}
		anchorPer[code] = r.Value
	}

	anchorPerUSD, ok := anchorPer["USD"]
	if !ok || anchorPerUSD <= 0 || !isFinite(anchorPerUSD) {
		return nil, fmt.Errorf("%w (anchor %s)", ErrAnchorRate, anchor)
	}

	usdPer := map[string]float64{"USD": 1}
	for code, perAnchor := range anchorPer {
		if perAnchor <= 0 || !isFinite(perAnchor) {
			continue
		}
		usdPer[code] = perAnchor / anchorPerUSD
	}
	usdPer[anchor] = 1 / anchorPerUSD

	return &Table{usdPer: usdPer, AsOf: asOf}, nil
}

// Convert returns amount expressed in USD. The second return is false when
// the amount is non-positive or no positive rate is known for the currency.
// Converting USD is the identity.
func (t *Table) Convert(amount float64, currency string) (float64, bool) {
	if t == nil || amount <= 0 || !isFinite(amount) {
		return 0, false
	}

	rate, ok := t.usdPer[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok || rate <= 0 || !isFinite(rate) {
		return 0, false
	}

	return amount * rate, true
}

// RateFor exposes the USD multiplier for a currency, mainly for snapshot
// metadata and logging.
func (t *Table) RateFor(currency string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	rate, ok := t.usdPer[strings.ToUpper(strings.TrimSpace(currency))]
	return rate, ok && rate > 0
}

// Currencies returns the number of currencies the table can convert.
func (t *Table) Currencies() int {
	if t == nil {
		return 0
	}
	return len(t.usdPer)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
