package listing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"cardpulse/internal/catalog"
)

func testItem() catalog.Item {
	return catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}
}

func TestBrowseSourceFetchPaginates(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := pages.Add(1)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		assert.Contains(t, r.URL.Query().Get("q"), "Jose Altuve")

		if n == 1 {
			// Full page: pagination continues.
			fmt.Fprint(w, `{"total": 3, "itemSummaries": [
				{"title":"a","price":{"value":"1","currency":"USD"}},
				{"title":"b","price":{"value":"2","currency":"USD"}}
			]}`)
			return
		}
		fmt.Fprint(w, `{"total": 3, "itemSummaries": [
			{"title":"c","price":{"value":"3","currency":"USD"}}
		]}`)
	}))
	defer srv.Close()

	src := NewBrowseSource(BrowseSourceConfig{
		Name:        "EBAY_US",
		BaseURL:     srv.URL,
		Marketplace: "EBAY_US",
		Token:       "test-token",
		PageSize:    2,
		PageLimit:   6,
		Timeout:     5 * time.Second,
	}, rate.NewLimiter(rate.Inf, 1), nil)

	listings, err := src.Fetch(context.Background(), testItem())
	require.NoError(t, err)
	assert.Len(t, listings, 3)
	assert.Equal(t, int32(2), pages.Load(), "short page must stop pagination")
}

func TestBrowseSourceFirstPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewBrowseSource(BrowseSourceConfig{
		Name:     "EBAY_US",
		BaseURL:  srv.URL,
		PageSize: 2,
		Timeout:  5 * time.Second,
	}, nil, nil)

	_, err := src.Fetch(context.Background(), testItem())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestBrowseSourceLaterPageFailureKeepsPartialSample(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pages.Add(1) == 1 {
			fmt.Fprint(w, `{"total": 4, "itemSummaries": [
				{"title":"a","price":{"value":"1","currency":"USD"}},
				{"title":"b","price":{"value":"2","currency":"USD"}}
			]}`)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewBrowseSource(BrowseSourceConfig{
		Name:      "EBAY_US",
		BaseURL:   srv.URL,
		PageSize:  2,
		PageLimit: 6,
		Timeout:   5 * time.Second,
	}, nil, nil)

	listings, err := src.Fetch(context.Background(), testItem())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestSoldSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `[
			{"title":"sold a","soldPrice":10,"shippingPrice":2,"soldCurrency":"USD"},
			{"title":"sold b","totalPrice":30,"soldCurrency":"CAD"}
		]`)
	}))
	defer srv.Close()

	src := NewSoldSource("sold-comps", srv.URL, 60, 5*time.Second, nil, nil)

	listings, err := src.Fetch(context.Background(), testItem())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.InDelta(t, 12, listings[0].PriceAmount, 1e-12)
	assert.InDelta(t, 30, listings[1].PriceAmount, 1e-12)
	assert.Equal(t, ConditionPermissive, src.Policy())
}

func TestSoldSourceFailureIsUpstreamFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "actor failed", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewSoldSource("sold-comps", srv.URL, 60, 5*time.Second, nil, nil)

	_, err := src.Fetch(context.Background(), testItem())
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}
