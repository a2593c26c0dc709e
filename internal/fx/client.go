package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client fetches the anchor-relative exchange rate feed over HTTP.
type Client struct {
	url        string
	anchor     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a rate-source client. anchor is the currency the feed
// quotes against (e.g. "CAD" for the Canadian border services feed).
func NewClient(url, anchor string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:        url,
		anchor:     strings.ToUpper(anchor),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// feedPayload mirrors the two key spellings the feed has used.
type feedPayload struct {
	ForeignExchangeRates      []feedRow `json:"ForeignExchangeRates"`
	ForeignExchangeRatesAlt   []feedRow `json:"foreignExchangeRates"`
}

// feedRow is one published rate. FromCurrency/ToCurrency arrive either as
// bare strings or as {"Value": "..."} objects depending on feed version.
type feedRow struct {
	FromCurrency currencyCode `json:"FromCurrency"`
	ToCurrency   currencyCode `json:"ToCurrency"`
	Rate         float64      `json:"Rate"`
	EffectiveAt  string       `json:"ExchangeRateEffectiveTimestamp"`
	ValidStart   string       `json:"ValidStartDate"`
}

// currencyCode tolerates both feed shapes for a currency field.
type currencyCode string

func (c *currencyCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = currencyCode(s)
		return nil
	}

	var wrapped struct {
		Value string `json:"Value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("currency field: %w", err)
	}
	*c = currencyCode(wrapped.Value)
	return nil
}

// FetchTable downloads the feed and rebases it to a USD table.
// An unusable anchor rate surfaces as ErrAnchorRate via BuildTable.
func (c *Client) FetchTable(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fx rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch fx rates: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fx payload: %w", err)
	}

	rows := payload.ForeignExchangeRates
	if len(rows) == 0 {
		rows = payload.ForeignExchangeRatesAlt
	}

	rates, asOf := c.anchorRows(rows)

	table, err := BuildTable(rates, c.anchor, asOf)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "fx table built",
		"anchor", c.anchor,
		"currencies", table.Currencies(),
		"as_of", asOf,
	)

	return table, nil
}

// anchorRows keeps only rows quoted against the anchor currency and picks
// the first available effective timestamp as the table's as-of marker.
func (c *Client) anchorRows(rows []feedRow) ([]Rate, string) {
	var (
		rates []Rate
		asOf  string
	)

	for _, row := range rows {
		to := strings.ToUpper(strings.TrimSpace(string(row.ToCurrency)))
		from := strings.ToUpper(strings.TrimSpace(string(row.FromCurrency)))
		if to != c.anchor || from == "" {
			continue
		}

		rates = append(rates, Rate{From: from, Value: row.Rate})

		if asOf == "" {
			if row.EffectiveAt != "" {
				asOf = row.EffectiveAt
			} else if row.ValidStart != "" {
				asOf = row.ValidStart
			}
		}
	}

	return rates, asOf
}
