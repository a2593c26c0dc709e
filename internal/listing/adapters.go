package listing

import (
	"encoding/json"
	"strings"
	"time"
)

// The marketplaces expose price, condition and creation date under several
// alternate field names depending on source and API version. Each external
// shape gets exactly one adapter here; business logic never chains
// optional-field lookups itself.

// BrowseItem mirrors one item summary from the active-listings search API.
type BrowseItem struct {
	Title     string      `json:"title"`
	Price     BrowsePrice `json:"price"`
	Condition string      `json:"condition"`

	// Descriptors arrive under two key spellings depending on API version.
	ConditionDescriptors      []BrowseDescriptor `json:"conditionDescriptors"`
	ConditionDescriptorValues []BrowseDescriptor `json:"conditionDescriptorValues"`

	// Creation date alternates, most specific first.
	ItemCreationDate string `json:"itemCreationDate"`
	ListingStartDate string `json:"listingStartDate"`
	StartDate        string `json:"startDate"`
	CreationDate     string `json:"creationDate"`
}

// BrowsePrice is the API's {value, currency} pair. Value is documented as a
// string but has been observed as a bare number as well.
type BrowsePrice struct {
	Value    json.Number `json:"value"`
	Currency string      `json:"currency"`
}

// BrowseDescriptor is one condition descriptor entry; the useful text can
// sit under any of four keys.
type BrowseDescriptor struct {
	Name           string `json:"name"`
	DescriptorName string `json:"descriptorName"`
	Value          string `json:"value"`
	ValueName      string `json:"valueName"`
}

func (d BrowseDescriptor) texts() []string {
	var out []string
	for _, s := range []string{d.Name, d.DescriptorName, d.Value, d.ValueName} {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// RawListing converts the API shape to the internal record.
func (b BrowseItem) RawListing() RawListing {
	amount, _ := b.Price.Value.Float64()

	var descriptors []string
	for _, d := range b.ConditionDescriptors {
		descriptors = append(descriptors, d.texts()...)
	}
	for _, d := range b.ConditionDescriptorValues {
		descriptors = append(descriptors, d.texts()...)
	}

	created := firstTimestamp(b.ItemCreationDate, b.ListingStartDate, b.StartDate, b.CreationDate)

	return RawListing{
		Title:                b.Title,
		PriceAmount:          amount,
		Currency:             b.Price.Currency,
		Condition:            b.Condition,
		ConditionDescriptors: descriptors,
		CreatedAt:            created,
	}
}

// SoldItem mirrors one sold-comp record from the sold listings source.
type SoldItem struct {
	Title            string  `json:"title"`
	Condition        string  `json:"condition"`
	SoldPrice        float64 `json:"soldPrice"`
	ShippingPrice    float64 `json:"shippingPrice"`
	TotalPrice       float64 `json:"totalPrice"`
	SoldCurrency     string  `json:"soldCurrency"`
	ShippingCurrency string  `json:"shippingCurrency"`
	SoldDate         string  `json:"soldDate"`
}

// RawListing converts the sold-comp shape. Price preference: totalPrice
// when positive, else soldPrice+shippingPrice, else soldPrice alone. A
// sold comp prices the full cost of acquiring the card, so shipping is
// part of the observation.
func (s SoldItem) RawListing() RawListing {
	currency := s.SoldCurrency
	if currency == "" {
		currency = s.ShippingCurrency
	}

	var amount, shipping float64
	switch {
	case s.TotalPrice > 0:
		amount = s.TotalPrice
	case s.SoldPrice > 0 && s.ShippingPrice >= 0:
		amount = s.SoldPrice + s.ShippingPrice
		shipping = s.ShippingPrice
	case s.SoldPrice > 0:
		amount = s.SoldPrice
	}

	return RawListing{
		Title:        s.Title,
		PriceAmount:  amount,
		Currency:     currency,
		ShippingCost: shipping,
		Condition:    s.Condition,
		CreatedAt:    parseTimestamp(s.SoldDate),
	}
}

// firstTimestamp returns the first candidate that parses as a timestamp.
func firstTimestamp(candidates ...string) *time.Time {
	for _, c := range candidates {
		if t := parseTimestamp(c); t != nil {
			return t
		}
	}
	return nil
}
