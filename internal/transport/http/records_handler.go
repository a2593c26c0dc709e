package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cardpulse/internal/aggregator"
	apierrors "cardpulse/internal/errors"
)

// RecordsHandler serves the published price snapshot.
type RecordsHandler struct {
	store  *aggregator.Store
	logger *slog.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(store *aggregator.Store, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "records")),
	}
}

// Routes returns the records routes
func (h *RecordsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetRecords)
	r.Get("/{itemKey}", h.GetRecord)

	return r
}

// GetRecords handles GET /api/records. The response is the snapshot file
// shape: one flat object with a _meta block next to one entry per item key.
func (h *RecordsHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.loadSnapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, snap)
}

// GetRecord handles GET /api/records/{itemKey}. Item keys are "name|sport"
// and arrive percent-encoded.
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "itemKey"))
	if err != nil || key == "" {
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.ErrValidation("itemKey", "Item key is required")))
		return
	}

	snap, ok := h.loadSnapshot(w, r)
	if !ok {
		return
	}

	rec, found := snap.Records[key]
	if !found {
		h.logger.InfoContext(r.Context(), "record not found",
			slog.String("item_key", key))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrRecordNotFound))
		return
	}

	render.JSON(w, r, rec)
}

// loadSnapshot reads the snapshot and renders the appropriate error when it
// is unreadable or has never been produced. The bool reports success.
func (h *RecordsHandler) loadSnapshot(w http.ResponseWriter, r *http.Request) (*aggregator.Snapshot, bool) {
	snap, err := h.store.Load()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load snapshot",
			slog.String("path", h.store.Path()),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.FileSystemError("snapshot load", err)))
		return nil, false
	}
	if snap == nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrSnapshotNotFound))
		return nil, false
	}
	return snap, true
}
