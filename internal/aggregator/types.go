// Package aggregator runs the batch pipeline that turns raw marketplace
// listings into published per-item price records.
package aggregator

import "time"

// State tracks one catalog item's progress through the pipeline.
type State string

const (
	StateCollecting  State = "COLLECTING"
	StateClassifying State = "CLASSIFYING"
	StateNormalizing State = "NORMALIZING"
	StateAggregating State = "AGGREGATING"
	StatePublished   State = "PUBLISHED"
	StateErrored     State = "ERRORED"
)

// SourceStats is the aggregated statistics computed from one source's
// admitted sample. Nil pointer fields publish as JSON nulls: the sample was
// too small or too degenerate for that statistic, which is different from
// an errored item.
type SourceStats struct {
	Source      string   `json:"source"`
	SampleSize  int      `json:"sampleSize"`
	Median      *float64 `json:"median"`
	TrimmedMean *float64 `json:"trimmedMean"`
	StabilityCV *float64 `json:"stabilityCv"`
	AvgAgeDays  *float64 `json:"avgAgeDays"`
}

// PriceRecord is the published aggregate for one catalog item. The headline
// statistics come from merging the per-source stats; Sources preserves the
// per-source breakdown.
//
// An ERRORED record carries an Error message and no statistics. A PUBLISHED
// record with nil statistics means the sources responded but the admitted
// sample was below the minimum size.
type PriceRecord struct {
	ItemID      string        `json:"itemId"`
	Name        string        `json:"name"`
	Sport       string        `json:"sport"`
	SampleSize  int           `json:"sampleSize"`
	Median      *float64      `json:"median"`
	TrimmedMean *float64      `json:"trimmedMean"`
	StabilityCV *float64      `json:"stabilityCv"`
	AvgAgeDays  *float64      `json:"avgAgeDays"`
	Currency    string        `json:"currency"`
	State       State         `json:"state"`
	Error       string        `json:"error,omitempty"`
	Sources     []SourceStats `json:"sources,omitempty"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Published reports whether the record carries usable statistics.
func (r *PriceRecord) Published() bool {
	return r != nil && r.State == StatePublished
}

// HasEstimate reports whether the record has a usable point estimate for
// budget allocation.
func (r *PriceRecord) HasEstimate() bool {
	return r.Published() && r.TrimmedMean != nil && *r.TrimmedMean > 0
}
