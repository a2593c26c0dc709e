package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"cardpulse/internal/aggregator"
	"cardpulse/internal/config"
)

// HealthHandler reports service liveness and the age of the published
// snapshot.
type HealthHandler struct {
	store     *aggregator.Store
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *aggregator.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthCheck handles GET /healthz. The service is healthy as long as it is
// up; a missing snapshot degrades the report but does not fail it, because
// the first batch may simply not have run yet.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"version":   config.AppVersion,
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	snap, err := h.store.Load()
	switch {
	case err != nil:
		h.logger.WarnContext(r.Context(), "health check could not read snapshot",
			slog.String("error", err.Error()))
		response["snapshot"] = map[string]interface{}{"available": false, "error": err.Error()}
	case snap == nil:
		response["snapshot"] = map[string]interface{}{"available": false}
	default:
		response["snapshot"] = map[string]interface{}{
			"available":   true,
			"batchDate":   snap.Meta.BatchDate,
			"generatedAt": snap.Meta.GeneratedAt.UTC().Format(time.RFC3339),
			"itemCount":   snap.Meta.ItemCount,
		}
	}

	render.JSON(w, r, response)
}
