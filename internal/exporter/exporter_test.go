package exporter

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cardpulse/internal/aggregator"
)

func fptr(v float64) *float64 { return &v }

func testSnapshot() *aggregator.Snapshot {
	snap := aggregator.NewSnapshot(aggregator.Meta{
		GeneratedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		BatchDate:     "2025-06-01",
		Currency:      "USD",
		TrimPercent:   0.4,
		MinSampleSize: 4,
		MergePolicy:   "prefer_first",
		ItemCount:     2,
	})
	snap.Records["jose altuve|baseball"] = &aggregator.PriceRecord{
		ItemID: "jose altuve|baseball", Name: "Jose Altuve", Sport: "Baseball",
		SampleSize: 5, Median: fptr(11), TrimmedMean: fptr(11.4),
		StabilityCV: fptr(0.08), AvgAgeDays: fptr(12.5),
		Currency: "USD", State: aggregator.StatePublished,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	snap.Records["bo bichette|baseball"] = &aggregator.PriceRecord{
		ItemID: "bo bichette|baseball", Name: "Bo Bichette", Sport: "Baseball",
		State: aggregator.StateErrored, Error: "all sources failed",
		Currency: "USD",
	}
	return snap
}

func TestWriteCSV(t *testing.T) {
	e := New(t.TempDir(), nil)

	path, err := e.WriteCSV(testSnapshot(), "prices.csv")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// BOM prefix for Excel, then the header row.
	require.True(t, strings.HasPrefix(string(data), "\xef\xbb\xbf"))

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\xef\xbb\xbf")))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, recordHeaders, rows[0])
	// Sorted by item key: bichette before altuve.
	assert.Equal(t, "bo bichette|baseball", rows[1][0])
	assert.Equal(t, "ERRORED", rows[1][3])
	assert.Equal(t, "all sources failed", rows[1][11])
	assert.Empty(t, rows[1][5], "errored record exports empty statistics")

	assert.Equal(t, "jose altuve|baseball", rows[2][0])
	assert.Equal(t, "11.40", rows[2][6])
	assert.Equal(t, "0.08", rows[2][7])
}

func TestWriteXLSX(t *testing.T) {
	e := New(t.TempDir(), nil)

	path, err := e.WriteXLSX(testSnapshot(), "prices.xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Prices", "Methodology"}, f.GetSheetList())

	rows, err := f.GetRows("Prices")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "item_id", rows[0][0])
	assert.Equal(t, "jose altuve|baseball", rows[2][0])

	meta, err := f.GetRows("Methodology")
	require.NoError(t, err)
	assert.Equal(t, "trim_percent", meta[3][0])
	assert.Equal(t, "0.4", meta[3][1])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "", formatFloatPtr(nil))
	assert.Equal(t, "0.08", formatFloatPtr(fptr(0.08)))
	assert.Equal(t, "5", formatInt(5))
}
