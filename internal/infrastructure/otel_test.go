package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestCreateBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	require.NotNil(t, metrics.HTTPRequestsTotal)
	require.NotNil(t, metrics.BatchItemsTotal)
	require.NotNil(t, metrics.SuggestRunsTotal)

	// Recording against real instruments must not panic.
	ctx := context.Background()
	RecordBatchItemMetrics(ctx, metrics, "card|sport", "PUBLISHED", time.Second)
	RecordListingCounts(ctx, metrics, "browse", 10, 7)
	RecordSourceFetchError(ctx, metrics, "sold-comps")
	RecordSuggestMetrics(ctx, metrics, 20, 5, 1000, 50*time.Millisecond)
}

func TestMetricRecordersAreNilSafe(t *testing.T) {
	ctx := context.Background()

	assert.NotPanics(t, func() {
		RecordBatchItemMetrics(ctx, nil, "card|sport", "ERRORED", time.Second)
		RecordListingCounts(ctx, nil, "browse", 1, 1)
		RecordSourceFetchError(ctx, nil, "browse")
		RecordSuggestMetrics(ctx, nil, 0, 0, 0, 0)
	})
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
