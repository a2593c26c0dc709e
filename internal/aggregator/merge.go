package aggregator

import "cardpulse/internal/stats"

// MergePolicy combines per-source statistics into the record headline.
type MergePolicy interface {
	Name() string
	Merge(sources []SourceStats) SourceStats
}

// PreferFirstValid publishes the first source that produced a trimmed mean,
// in source registration order. Active listings registered first therefore
// win over sold comps, with sold comps acting as the fallback.
type PreferFirstValid struct{}

// Name returns the policy identifier used in config and snapshot metadata.
func (PreferFirstValid) Name() string { return "prefer_first" }

// Merge picks the first source with a trimmed mean, falling back to the
// first source with any sample at all.
func (PreferFirstValid) Merge(sources []SourceStats) SourceStats {
	for _, s := range sources {
		if s.TrimmedMean != nil {
			return s
		}
	}
	for _, s := range sources {
		if s.SampleSize > 0 {
			return s
		}
	}
	if len(sources) > 0 {
		return sources[0]
	}
	return SourceStats{}
}

// AverageValid averages each statistic over the sources that produced it
// and sums the sample sizes. Useful when active and sold markets should
// both weigh on the headline price.
type AverageValid struct{}

// Name returns the policy identifier used in config and snapshot metadata.
func (AverageValid) Name() string { return "average" }

// Merge averages every non-null statistic across sources.
func (AverageValid) Merge(sources []SourceStats) SourceStats {
	merged := SourceStats{Source: "merged"}

	var medians, means, cvs, ages []float64
	for _, s := range sources {
		merged.SampleSize += s.SampleSize
		if s.Median != nil {
			medians = append(medians, *s.Median)
		}
		if s.TrimmedMean != nil {
			means = append(means, *s.TrimmedMean)
		}
		if s.StabilityCV != nil {
			cvs = append(cvs, *s.StabilityCV)
		}
		if s.AvgAgeDays != nil {
			ages = append(ages, *s.AvgAgeDays)
		}
	}

	merged.Median = meanPtr(medians)
	merged.TrimmedMean = meanPtr(means)
	merged.StabilityCV = meanPtr(cvs)
	merged.AvgAgeDays = meanPtr(ages)
	return merged
}

func meanPtr(xs []float64) *float64 {
	if m, ok := stats.Mean(xs); ok {
		return &m
	}
	return nil
}

// PolicyByName resolves a configured policy name. Unknown names fall back
// to PreferFirstValid.
func PolicyByName(name string) MergePolicy {
	if name == (AverageValid{}).Name() {
		return AverageValid{}
	}
	return PreferFirstValid{}
}
