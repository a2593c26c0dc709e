package aggregator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardpulse/internal/catalog"
	"cardpulse/internal/fx"
	"cardpulse/internal/listing"
)

type fakeSource struct {
	name     string
	policy   listing.ConditionPolicy
	listings []listing.RawListing
	err      error
	calls    atomic.Int32
}

func (f *fakeSource) Name() string                    { return f.name }
func (f *fakeSource) Policy() listing.ConditionPolicy { return f.policy }

func (f *fakeSource) Fetch(ctx context.Context, item catalog.Item) ([]listing.RawListing, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func usdTable(t *testing.T) *fx.Table {
	t.Helper()
	table, err := fx.BuildTable([]fx.Rate{{From: "USD", Value: 1}}, "USD", "2025-06-01")
	require.NoError(t, err)
	return table
}

func admittedListings(prices ...float64) []listing.RawListing {
	out := make([]listing.RawListing, 0, len(prices))
	for i, p := range prices {
		created := time.Now().AddDate(0, 0, -(i + 1))
		out = append(out, listing.RawListing{
			Title:     fmt.Sprintf("2023 Topps Chrome Jose Altuve #%d", i),
			Condition: "Near Mint",
			Currency:  "USD",
			PriceAmount: p,
			CreatedAt:   &created,
		})
	}
	return out
}

func newTestService(t *testing.T, sources ...listing.Source) *Service {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "prices.json"))
	return NewService(sources, PreferFirstValid{}, store, Config{}, nil, nil)
}

func TestRunPublishesRecord(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11, 100, 9),
	}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	require.NotNil(t, rec)
	assert.Equal(t, StatePublished, rec.State)
	assert.Equal(t, 5, rec.SampleSize)
	require.NotNil(t, rec.Median)
	assert.InDelta(t, 11, *rec.Median, 1e-9)
	// Trim percent 0.4 on five observations clamps everything to the
	// middle value, so the outlier at 100 cannot move the estimate.
	require.NotNil(t, rec.TrimmedMean)
	assert.InDelta(t, 11, *rec.TrimmedMean, 1e-9)
	require.NotNil(t, rec.StabilityCV)
	assert.InDelta(t, 0, *rec.StabilityCV, 1e-9)
	require.NotNil(t, rec.AvgAgeDays)
	assert.Equal(t, "USD", rec.Currency)
	assert.True(t, rec.HasEstimate())
}

func TestRunSmallSamplePublishesNulls(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11),
	}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	require.NotNil(t, rec)
	assert.Equal(t, StatePublished, rec.State)
	assert.Equal(t, 3, rec.SampleSize)
	assert.Nil(t, rec.Median)
	assert.Nil(t, rec.TrimmedMean)
	assert.Nil(t, rec.StabilityCV)
	assert.Empty(t, rec.Error)
	assert.False(t, rec.HasEstimate())
}

func TestRunAllSourcesFailedMarksErrored(t *testing.T) {
	src := &fakeSource{
		name:   "active",
		policy: listing.ConditionStrict,
		err:    fmt.Errorf("%w: quota exceeded", listing.ErrUpstreamFetch),
	}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	require.NotNil(t, rec)
	assert.Equal(t, StateErrored, rec.State)
	assert.Contains(t, rec.Error, "quota exceeded")
	assert.Zero(t, rec.SampleSize)
	assert.False(t, rec.HasEstimate())
}

func TestRunOneFailedSourceStillPublishes(t *testing.T) {
	failing := &fakeSource{
		name:   "active",
		policy: listing.ConditionStrict,
		err:    errors.New("boom"),
	}
	working := &fakeSource{
		name:     "sold",
		policy:   listing.ConditionPermissive,
		listings: admittedListings(20, 22, 21, 23),
	}
	svc := newTestService(t, failing, working)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	require.NotNil(t, rec)
	assert.Equal(t, StatePublished, rec.State)
	assert.Equal(t, 4, rec.SampleSize)
	require.Len(t, rec.Sources, 1)
	assert.Equal(t, "sold", rec.Sources[0].Source)
}

func TestRunShippingIncludedInObservation(t *testing.T) {
	listings := admittedListings(10, 10, 10, 10)
	for i := range listings {
		listings[i].ShippingCost = 5
	}
	src := &fakeSource{name: "active", policy: listing.ConditionStrict, listings: listings}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	require.NotNil(t, rec.Median)
	assert.InDelta(t, 15, *rec.Median, 1e-9)
}

func TestRunUnknownCurrencyDroppedFromSample(t *testing.T) {
	listings := admittedListings(10, 12, 11, 13)
	listings[0].Currency = "XXX"
	src := &fakeSource{name: "active", policy: listing.ConditionStrict, listings: listings}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	snap, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	rec := snap.Records[item.Key()]
	assert.Equal(t, 3, rec.SampleSize)
}

func TestRunCheckpointsAfterEveryItem(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11, 13),
	}
	svc := newTestService(t, src)
	items := []catalog.Item{
		{Name: "Jose Altuve", Sport: "Baseball"},
		{Name: "Ronald Acuna", Sport: "Baseball"},
	}

	_, err := svc.Run(context.Background(), items, usdTable(t))
	require.NoError(t, err)

	saved, err := svc.store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.Records, 2)
	assert.Equal(t, 2, saved.Meta.ItemCount)
	assert.Equal(t, "USD", saved.Meta.Currency)
	assert.Equal(t, "2025-06-01", saved.Meta.FXAsOf)
	assert.Equal(t, []string{"active"}, saved.Meta.Sources)
}

func TestRunResumesFromSameDayCheckpoint(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11, 13),
	}
	svc := newTestService(t, src)

	done := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}
	retry := catalog.Item{Name: "Ronald Acuna", Sport: "Baseball"}

	prev := NewSnapshot(svc.batchMeta(time.Now().UTC().Format("2006-01-02"), nil))
	median := 42.0
	prev.Records[done.Key()] = &PriceRecord{
		ItemID: done.Key(), Name: done.Name, Sport: done.Sport,
		State: StatePublished, Median: &median, SampleSize: 9,
	}
	prev.Records[retry.Key()] = &PriceRecord{
		ItemID: retry.Key(), Name: retry.Name, Sport: retry.Sport,
		State: StateErrored, Error: "all sources failed",
	}
	require.NoError(t, svc.store.Save(prev))

	snap, err := svc.Run(context.Background(), []catalog.Item{done, retry}, usdTable(t))
	require.NoError(t, err)

	// The published item was not refetched, the errored one was retried.
	assert.Equal(t, int32(1), src.calls.Load())
	require.NotNil(t, snap.Records[done.Key()].Median)
	assert.InDelta(t, 42, *snap.Records[done.Key()].Median, 1e-9)
	assert.Equal(t, StatePublished, snap.Records[retry.Key()].State)
}

func TestRunStaleCheckpointStartsFresh(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11, 13),
	}
	svc := newTestService(t, src)
	item := catalog.Item{Name: "Jose Altuve", Sport: "Baseball"}

	prev := NewSnapshot(svc.batchMeta("2001-01-01", nil))
	prev.Records[item.Key()] = &PriceRecord{ItemID: item.Key(), State: StatePublished}
	require.NoError(t, svc.store.Save(prev))

	_, err := svc.Run(context.Background(), []catalog.Item{item}, usdTable(t))
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load(), "stale checkpoint must not suppress refetch")
}

func TestRunCancelledContext(t *testing.T) {
	src := &fakeSource{
		name:     "active",
		policy:   listing.ConditionStrict,
		listings: admittedListings(10, 12, 11, 13),
	}
	svc := newTestService(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, []catalog.Item{{Name: "Jose Altuve", Sport: "Baseball"}}, usdTable(t))
	assert.ErrorIs(t, err, context.Canceled)
}
