package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("CARDPULSE_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("CARDPULSE_PATHS_SNAPSHOT_FILE", filepath.Join(dir, "prices.json"))
	t.Setenv("CARDPULSE_LOGGING_OUTPUT", "console")

	app, err := NewApplication()
	require.NoError(t, err)
	return app
}

func TestNewApplicationWiresServer(t *testing.T) {
	app := newTestApplication(t)

	assert.Equal(t, ":8080", app.Server.Addr)
	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Engine)
	assert.NotNil(t, app.Metrics)
}

func TestApplicationServesHealthz(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStopWithoutStart(t *testing.T) {
	app := newTestApplication(t)
	assert.NoError(t, app.Stop(context.Background()))
}
