// The aggregator binary runs one aggregation batch: it fetches listings for
// every catalog item, computes the published statistics and writes the
// snapshot plus CSV/XLSX exports. Re-running it on the same day resumes
// from the checkpoint instead of refetching published items.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"cardpulse/internal/aggregator"
	"cardpulse/internal/catalog"
	"cardpulse/internal/config"
	"cardpulse/internal/exporter"
	"cardpulse/internal/fx"
	"cardpulse/internal/infrastructure"
	"cardpulse/internal/listing"
)

func main() {
	catalogPath := flag.String("catalog", "", "catalog file (defaults to paths.catalog_file)")
	snapshotPath := flag.String("snapshot", "", "snapshot output file (defaults to paths.snapshot_file)")
	noExport := flag.Bool("no-export", false, "skip CSV/XLSX exports")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *catalogPath == "" {
		*catalogPath = cfg.Paths.CatalogFile
	}
	if *snapshotPath == "" {
		*snapshotPath = cfg.Paths.SnapshotFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *catalogPath, *snapshotPath, !*noExport); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, catalogPath, snapshotPath string, export bool) error {
	items, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.InfoContext(ctx, "catalog loaded", "path", catalogPath, "items", len(items))

	fxTable, err := loadFXTable(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sources, err := buildSources(cfg, logger)
	if err != nil {
		return err
	}

	store := aggregator.NewStore(snapshotPath)
	service := aggregator.NewService(
		sources,
		aggregator.PolicyByName(cfg.Aggregation.MergePolicy),
		store,
		aggregator.Config{
			TrimPercent:   cfg.Aggregation.TrimPercent,
			MinSampleSize: cfg.Aggregation.MinSampleSize,
			Workers:       cfg.Aggregation.Workers,
		},
		logger,
		nil,
	)

	snap, err := service.Run(ctx, items, fxTable)
	if err != nil {
		return fmt.Errorf("aggregation batch: %w", err)
	}

	logger.InfoContext(ctx, "snapshot written",
		"path", store.Path(),
		"items", len(snap.Records))

	if !export {
		return nil
	}

	exp := exporter.New(cfg.Paths.ExportDir, logger)
	stamp := snap.Meta.BatchDate

	csvPath, err := exp.WriteCSV(snap, fmt.Sprintf("prices-%s.csv", stamp))
	if err != nil {
		return fmt.Errorf("csv export: %w", err)
	}
	xlsxPath, err := exp.WriteXLSX(snap, fmt.Sprintf("prices-%s.xlsx", stamp))
	if err != nil {
		return fmt.Errorf("xlsx export: %w", err)
	}

	logger.InfoContext(ctx, "exports written", "csv", csvPath, "xlsx", xlsxPath)
	return nil
}

// loadFXTable fetches the rate feed. Without a configured feed the batch
// still runs, restricted to listings already priced in USD.
func loadFXTable(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fx.Table, error) {
	if cfg.FX.FeedURL == "" {
		logger.WarnContext(ctx, "no fx feed configured, only USD listings will be admitted")
		return fx.BuildTable([]fx.Rate{{From: "USD", Value: 1}}, "USD",
			time.Now().UTC().Format("2006-01-02"))
	}

	client := fx.NewClient(cfg.FX.FeedURL, cfg.FX.Anchor, cfg.FX.Timeout, logger)
	table, err := client.FetchTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch fx table: %w", err)
	}

	logger.InfoContext(ctx, "fx table loaded",
		"as_of", table.AsOf,
		"currencies", table.Currencies())
	return table, nil
}

// buildSources wires the configured listing sources behind one shared rate
// limiter. Source order matters: active listings come before sold comps so
// the prefer_first merge policy favors purchasable prices.
func buildSources(cfg *config.Config, logger *slog.Logger) ([]listing.Source, error) {
	limiter := rate.NewLimiter(rate.Limit(cfg.Sources.RPS), cfg.Sources.Burst)

	var sources []listing.Source
	if cfg.Sources.Browse.BaseURL != "" {
		sources = append(sources, listing.NewBrowseSource(listing.BrowseSourceConfig{
			Name:        cfg.Sources.Browse.Name,
			BaseURL:     cfg.Sources.Browse.BaseURL,
			Marketplace: cfg.Sources.Browse.Marketplace,
			Token:       cfg.Sources.Browse.Token,
			CategoryID:  cfg.Sources.Browse.CategoryID,
			PageSize:    cfg.Sources.Browse.PageSize,
			PageLimit:   cfg.Sources.Browse.PageLimit,
			PacingDelay: cfg.Sources.Browse.PacingDelay,
			Timeout:     cfg.Sources.Browse.Timeout,
		}, limiter, logger))
	}
	if cfg.Sources.Sold.URL != "" {
		sources = append(sources, listing.NewSoldSource(
			cfg.Sources.Sold.Name,
			cfg.Sources.Sold.URL,
			cfg.Sources.Sold.MaxItems,
			cfg.Sources.Sold.Timeout,
			limiter,
			logger,
		))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no listing sources configured")
	}
	return sources, nil
}
