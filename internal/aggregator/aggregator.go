package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cardpulse/internal/catalog"
	"cardpulse/internal/config"
	"cardpulse/internal/fx"
	"cardpulse/internal/infrastructure"
	"cardpulse/internal/listing"
	"cardpulse/internal/stats"
)

// Config tunes the batch pipeline.
type Config struct {
	TrimPercent   float64
	MinSampleSize int
	Workers       int
}

// Service orchestrates one aggregation batch: fetch listings per catalog
// item from every source, admit, normalize to USD, compute per-source
// statistics, merge, and checkpoint the snapshot after every item.
type Service struct {
	sources []listing.Source
	merge   MergePolicy
	store   *Store
	cfg     Config
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time
}

// NewService creates the batch service. The source order matters to the
// prefer_first merge policy: register active listings before sold comps.
func NewService(sources []listing.Source, merge MergePolicy, store *Store, cfg Config, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if merge == nil {
		merge = PreferFirstValid{}
	}
	if cfg.TrimPercent <= 0 {
		cfg.TrimPercent = config.DefaultTrimPercent
	}
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = config.DefaultMinSampleSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultWorkers
	}

	return &Service{
		sources: sources,
		merge:   merge,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run aggregates every catalog item and returns the finished snapshot.
//
// The snapshot is checkpointed to the store after each item, and a batch
// interrupted mid-run resumes from its same-day checkpoint: already
// published items are kept, errored ones are retried.
func (s *Service) Run(ctx context.Context, items []catalog.Item, fxTable *fx.Table) (*Snapshot, error) {
	start := s.now()
	snap := s.resume(ctx, fxTable)

	s.logger.InfoContext(ctx, "starting aggregation batch",
		"items", len(items),
		"resumed", len(snap.Records),
		"sources", len(s.sources),
		"workers", s.cfg.Workers,
		"merge_policy", s.merge.Name(),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, item := range items {
		key := item.Key()

		mu.Lock()
		_, done := snap.Records[key]
		mu.Unlock()
		if done {
			continue
		}

		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec := s.aggregateItem(gctx, item, fxTable)

			mu.Lock()
			snap.Records[key] = rec
			snap.Meta.GeneratedAt = s.now().UTC()
			snap.Meta.ItemCount = len(snap.Records)
			err := s.store.Save(snap)
			mu.Unlock()

			if err != nil {
				return fmt.Errorf("checkpoint after %s: %w", key, err)
			}
			return nil
		})
	}

	err := g.Wait()

	if s.metrics != nil {
		s.metrics.BatchDuration.Record(ctx, s.now().Sub(start).Seconds())
	}
	s.logger.InfoContext(ctx, "aggregation batch finished",
		"items", len(snap.Records),
		"duration", s.now().Sub(start).String(),
		"error", err,
	)

	return snap, err
}

// resume loads the same-day checkpoint, keeping only published records so
// errored items get retried. Any other checkpoint starts a fresh batch.
func (s *Service) resume(ctx context.Context, fxTable *fx.Table) *Snapshot {
	today := s.now().UTC().Format("2006-01-02")
	fresh := NewSnapshot(s.batchMeta(today, fxTable))

	if s.store == nil {
		return fresh
	}

	prev, err := s.store.Load()
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable checkpoint", "error", err)
		return fresh
	}
	if prev == nil || prev.Meta.BatchDate != today {
		return fresh
	}

	for key, rec := range prev.Records {
		if rec.Published() {
			fresh.Records[key] = rec
		}
	}
	fresh.Meta.ItemCount = len(fresh.Records)
	return fresh
}

func (s *Service) batchMeta(batchDate string, fxTable *fx.Table) Meta {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}

	meta := Meta{
		GeneratedAt:   s.now().UTC(),
		BatchDate:     batchDate,
		Currency:      config.PublishCurrency,
		TrimPercent:   s.cfg.TrimPercent,
		MinSampleSize: s.cfg.MinSampleSize,
		Sources:       names,
		MergePolicy:   s.merge.Name(),
	}
	if fxTable != nil {
		meta.FXAsOf = fxTable.AsOf
	}
	return meta
}

// aggregateItem runs the full pipeline for one catalog item. It never
// returns an error: every failure mode lands in the record's State and
// Error fields so one bad item cannot sink the batch.
func (s *Service) aggregateItem(ctx context.Context, item catalog.Item, fxTable *fx.Table) *PriceRecord {
	itemStart := s.now()
	logger := s.logger.With("item", item.Key())

	rec := &PriceRecord{
		ItemID:   item.Key(),
		Name:     item.Name,
		Sport:    item.Sport,
		Currency: config.PublishCurrency,
		State:    StateCollecting,
	}

	var perSource []SourceStats
	var fetchErrs []error

	for _, src := range s.sources {
		raw, err := src.Fetch(ctx, item)
		if err != nil {
			infrastructure.RecordSourceFetchError(ctx, s.metrics, src.Name())
			logger.WarnContext(ctx, "source fetch failed",
				"source", src.Name(),
				"error", err,
			)
			fetchErrs = append(fetchErrs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		rec.State = StateClassifying
		prices, ages, admitted := s.normalize(raw, item, src.Policy(), fxTable)
		rec.State = StateNormalizing
		infrastructure.RecordListingCounts(ctx, s.metrics, src.Name(), len(raw), admitted)

		perSource = append(perSource, s.sourceStats(src.Name(), prices, ages))
	}

	if len(perSource) == 0 {
		rec.State = StateErrored
		rec.Error = errors.Join(fetchErrs...).Error()
		rec.UpdatedAt = s.now().UTC()
		infrastructure.RecordBatchItemMetrics(ctx, s.metrics, item.Key(), string(rec.State), s.now().Sub(itemStart))
		return rec
	}

	rec.State = StateAggregating
	rec.Sources = perSource

	merged := s.merge.Merge(perSource)
	rec.SampleSize = merged.SampleSize
	rec.Median = merged.Median
	rec.TrimmedMean = merged.TrimmedMean
	rec.StabilityCV = merged.StabilityCV
	rec.AvgAgeDays = merged.AvgAgeDays

	rec.State = StatePublished
	rec.UpdatedAt = s.now().UTC()

	infrastructure.RecordBatchItemMetrics(ctx, s.metrics, item.Key(), string(rec.State), s.now().Sub(itemStart))
	logger.InfoContext(ctx, "item published",
		"sample_size", rec.SampleSize,
		"has_estimate", rec.HasEstimate(),
	)
	return rec
}

// normalize admits raw listings and converts the admitted prices
// (including shipping) to USD. Listings whose currency the table cannot
// convert are dropped from the sample, not errored.
func (s *Service) normalize(raw []listing.RawListing, item catalog.Item, policy listing.ConditionPolicy, fxTable *fx.Table) (prices, ages []float64, admitted int) {
	now := s.now()

	for _, l := range raw {
		if !l.HasPrice() || !listing.Admit(l, item.Name, policy) {
			continue
		}
		admitted++

		usd, ok := fxTable.Convert(l.PriceAmount+l.ShippingCost, l.Currency)
		if !ok {
			continue
		}
		prices = append(prices, usd)

		if days, ok := l.AgeDays(now); ok {
			ages = append(ages, days)
		}
	}
	return prices, ages, admitted
}

// sourceStats computes the published statistics for one source's sample.
// Below the minimum sample size every price statistic is null; the age
// average is published whenever any listing carried a usable date.
func (s *Service) sourceStats(source string, prices, ages []float64) SourceStats {
	st := SourceStats{Source: source, SampleSize: len(prices)}

	if avg, ok := stats.Mean(ages); ok {
		st.AvgAgeDays = &avg
	}

	if len(prices) < s.cfg.MinSampleSize {
		return st
	}

	if m, ok := stats.Median(prices); ok {
		st.Median = &m
	}
	if tm, ok := stats.TrimmedMean(prices, s.cfg.TrimPercent); ok {
		st.TrimmedMean = &tm
	}
	if cv, ok := stats.CV(prices, s.cfg.TrimPercent); ok {
		st.StabilityCV = &cv
	}
	return st
}
