// Package exporter writes published price snapshots to CSV and XLSX files
// for spreadsheet consumers.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"cardpulse/internal/aggregator"
)

var recordHeaders = []string{
	"item_id", "name", "sport", "state", "sample_size",
	"median_usd", "trimmed_mean_usd", "stability_cv", "avg_age_days",
	"currency", "updated_at", "error",
}

// Exporter writes snapshot exports into a target directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New creates an exporter writing into dir.
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger}
}

// WriteCSV exports the snapshot's records as a CSV file and returns the
// full path. A UTF-8 BOM is prefixed so Excel opens it correctly.
func (e *Exporter) WriteCSV(snap *aggregator.Snapshot, filename string) (string, error) {
	fullPath := filepath.Join(e.dir, filename)

	e.logger.Info("writing snapshot CSV",
		slog.String("path", fullPath),
		slog.Int("record_count", len(snap.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(recordHeaders); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}

	for _, rec := range sortedRecords(snap) {
		if err := writer.Write(recordRow(rec)); err != nil {
			return "", fmt.Errorf("failed to write record %s: %w", rec.ItemID, err)
		}
	}

	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, nil
}

// WriteXLSX exports the snapshot as a workbook with a Prices sheet and a
// Methodology sheet carrying the batch metadata.
func (e *Exporter) WriteXLSX(snap *aggregator.Snapshot, filename string) (string, error) {
	fullPath := filepath.Join(e.dir, filename)

	e.logger.Info("writing snapshot workbook",
		slog.String("path", fullPath),
		slog.Int("record_count", len(snap.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Prices"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range recordHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return "", fmt.Errorf("failed to write header %s: %w", header, err)
		}
	}

	for rowIdx, rec := range sortedRecords(snap) {
		for col, value := range recordRow(rec) {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return "", fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return "", fmt.Errorf("failed to write record %s: %w", rec.ItemID, err)
			}
		}
	}

	if err := writeMethodologySheet(f, snap.Meta); err != nil {
		return "", err
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

func writeMethodologySheet(f *excelize.File, meta aggregator.Meta) error {
	const sheet = "Methodology"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create methodology sheet: %w", err)
	}

	rows := [][]any{
		{"generated_at", meta.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		{"batch_date", meta.BatchDate},
		{"currency", meta.Currency},
		{"trim_percent", meta.TrimPercent},
		{"min_sample_size", meta.MinSampleSize},
		{"fx_as_of", meta.FXAsOf},
		{"merge_policy", meta.MergePolicy},
		{"item_count", meta.ItemCount},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write methodology row: %w", err)
		}
	}
	return nil
}

// sortedRecords returns the snapshot's records in item key order so
// exports are deterministic.
func sortedRecords(snap *aggregator.Snapshot) []*aggregator.PriceRecord {
	keys := make([]string, 0, len(snap.Records))
	for key := range snap.Records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]*aggregator.PriceRecord, 0, len(keys))
	for _, key := range keys {
		records = append(records, snap.Records[key])
	}
	return records
}

func recordRow(rec *aggregator.PriceRecord) []string {
	return []string{
		rec.ItemID,
		rec.Name,
		rec.Sport,
		string(rec.State),
		formatInt(int64(rec.SampleSize)),
		formatFloatPtr(rec.Median),
		formatFloatPtr(rec.TrimmedMean),
		formatFloatPtr(rec.StabilityCV),
		formatFloatPtr(rec.AvgAgeDays),
		rec.Currency,
		rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		rec.Error,
	}
}
