package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardpulse/internal/config"
	"cardpulse/internal/optimizer"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := newTestStore(t, testSnapshot(
		publishedRecord("Card A", "Baseball", 500, 0.05, 5),
	))

	router, _, err := NewRouter(RouterDeps{
		Config: &config.Config{},
		Logger: discardLogger(),
		Store:  store,
		Engine: optimizer.NewEngine(0, optimizer.TieBreakLeftoverThenCount, discardLogger()),
	})
	require.NoError(t, err)
	return router
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	snapInfo, ok := body["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, snapInfo["available"])
}

func TestRouterServesRecords(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "_meta")
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
