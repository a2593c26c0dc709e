// Package listing defines the normalized raw listing record, the adapters
// that map external marketplace payload shapes onto it, and the admission
// gates that decide whether a listing enters a catalog item's price sample.
//
// A RawListing is ephemeral: once the admission decision and currency
// normalization are done, only the resulting USD observation survives.
package listing

import (
	"errors"
	"time"
)

// ErrUpstreamFetch marks a single source or page fetch failure. The
// aggregator logs it, skips the page, and continues with the partial
// sample; it never aborts the whole batch.
var ErrUpstreamFetch = errors.New("listing: upstream fetch failed")

// maxListingAgeDays drops absurd listing ages (bad marketplace clocks).
const maxListingAgeDays = 3650

// RawListing is the single internal shape every external source adapts to.
// Absent fields are zero values; they never cause a fault downstream.
type RawListing struct {
	Title                string
	PriceAmount          float64
	Currency             string
	ShippingCost         float64
	Condition            string
	ConditionDescriptors []string
	CreatedAt            *time.Time
}

// HasPrice reports whether the listing carries a usable price.
func (l RawListing) HasPrice() bool {
	return l.PriceAmount > 0
}

// AgeDays returns how long the listing has been live, in days. Listings
// without a parseable creation date, or with an age beyond the sanity cap,
// contribute to the price sample but not to the age sample.
func (l RawListing) AgeDays(now time.Time) (float64, bool) {
	if l.CreatedAt == nil {
		return 0, false
	}

	days := now.Sub(*l.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	if days > maxListingAgeDays {
		return 0, false
	}
	return days, true
}

// parseTimestamp tries the ISO-8601 layouts the marketplaces emit.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
