package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cardpulse/internal/catalog"
)

// Source yields raw listings for one catalog item. Each source carries the
// condition policy its listings should be admitted under: active listings
// are strict, sold comps permissive.
type Source interface {
	Name() string
	Policy() ConditionPolicy
	Fetch(ctx context.Context, item catalog.Item) ([]RawListing, error)
}

// BrowseSource pages through the active-listings search API for one
// marketplace. All sources share one rate limiter so the combined request
// rate stays under the upstream quota; pacingDelay adds the deliberate gap
// between successive page requests.
type BrowseSource struct {
	name        string
	baseURL     string
	marketplace string
	token       string
	categoryID  string
	pageSize    int
	pageLimit   int
	pacingDelay time.Duration
	limiter     *rate.Limiter
	httpClient  *http.Client
	logger      *slog.Logger
}

// BrowseSourceConfig bundles the knobs for one marketplace source.
type BrowseSourceConfig struct {
	Name        string
	BaseURL     string
	Marketplace string
	Token       string
	CategoryID  string
	PageSize    int
	PageLimit   int
	PacingDelay time.Duration
	Timeout     time.Duration
}

// NewBrowseSource creates an active-listings source.
func NewBrowseSource(cfg BrowseSourceConfig, limiter *rate.Limiter, logger *slog.Logger) *BrowseSource {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 60
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = cfg.PageSize
	}

	return &BrowseSource{
		name:        cfg.Name,
		baseURL:     cfg.BaseURL,
		marketplace: cfg.Marketplace,
		token:       cfg.Token,
		categoryID:  cfg.CategoryID,
		pageSize:    cfg.PageSize,
		pageLimit:   cfg.PageLimit,
		pacingDelay: cfg.PacingDelay,
		limiter:     limiter,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Name identifies the source in logs and published records.
func (s *BrowseSource) Name() string { return s.name }

// Policy is strict: these listings are purchasable right now.
func (s *BrowseSource) Policy() ConditionPolicy { return ConditionStrict }

// browsePage is the search response envelope.
type browsePage struct {
	Total         int          `json:"total"`
	ItemSummaries []BrowseItem `json:"itemSummaries"`
}

// Fetch pages through search results up to the configured sample cap. A
// failed first page is an upstream fetch error; a failure on a later page
// keeps the partial sample and logs the skip.
func (s *BrowseSource) Fetch(ctx context.Context, item catalog.Item) ([]RawListing, error) {
	var listings []RawListing

	for offset := 0; offset < s.pageLimit; offset += s.pageSize {
		if offset > 0 {
			if err := s.pace(ctx); err != nil {
				return listings, err
			}
		}

		page, err := s.fetchPage(ctx, item, offset)
		if err != nil {
			if len(listings) == 0 {
				return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamFetch, s.name, err)
			}
			s.logger.WarnContext(ctx, "skipping failed listing page",
				"source", s.name,
				"item", item.Key(),
				"offset", offset,
				"error", err,
			)
			break
		}

		for _, it := range page.ItemSummaries {
			listings = append(listings, it.RawListing())
		}

		if len(page.ItemSummaries) < s.pageSize {
			break
		}
	}

	return listings, nil
}

func (s *BrowseSource) fetchPage(ctx context.Context, item catalog.Item, offset int) (*browsePage, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	q := u.Query()
	q.Set("q", item.SearchQuery())
	q.Set("limit", strconv.Itoa(s.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	if s.categoryID != "" {
		q.Set("category_ids", s.categoryID)
	}
	q.Add("filter", "buyingOptions:{FIXED_PRICE}")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.marketplace != "" {
		req.Header.Set("X-EBAY-C-MARKETPLACE-ID", s.marketplace)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page browsePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}

func (s *BrowseSource) pace(ctx context.Context) error {
	if s.pacingDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(s.pacingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SoldSource fetches historical sold comps from the sold-listings actor.
type SoldSource struct {
	name       string
	url        string
	maxItems   int
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSoldSource creates a sold-comps source. url must already carry any
// required token query parameter; auth flows are outside this package.
func NewSoldSource(name, url string, maxItems int, timeout time.Duration, limiter *rate.Limiter, logger *slog.Logger) *SoldSource {
	if logger == nil {
		logger = slog.Default()
	}
	if maxItems <= 0 {
		maxItems = 60
	}

	return &SoldSource{
		name:       name,
		url:        url,
		maxItems:   maxItems,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name identifies the source in logs and published records.
func (s *SoldSource) Name() string { return s.name }

// Policy is permissive: sold comps are informational history.
func (s *SoldSource) Policy() ConditionPolicy { return ConditionPermissive }

// Fetch runs one sold-comps query for the item.
func (s *SoldSource) Fetch(ctx context.Context, item catalog.Item) ([]RawListing, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	input := map[string]any{
		"keyword":  item.SearchQuery(),
		"maxItems": s.maxItems,
		"limit":    s.maxItems,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode sold query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamFetch, s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrUpstreamFetch, s.name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var items []SoldItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %s: decode items: %v", ErrUpstreamFetch, s.name, err)
	}

	listings := make([]RawListing, 0, len(items))
	for _, it := range items {
		listings = append(listings, it.RawListing())
	}
	return listings, nil
}
