package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"cardpulse/internal/aggregator"
	apierrors "cardpulse/internal/errors"
	"cardpulse/internal/infrastructure"
	"cardpulse/internal/optimizer"
)

// SuggestRequest is the body of POST /api/suggest. MaxCount of zero means
// no cap on the number of picks.
type SuggestRequest struct {
	Budget   float64 `json:"budget" validate:"required,gt=0"`
	MaxCount int     `json:"maxCount" validate:"gte=0"`
}

// SuggestResponse wraps the optimizer result with the candidate pool size
// the run selected from.
type SuggestResponse struct {
	Success    bool                      `json:"success"`
	Candidates int                       `json:"candidates"`
	Result     *optimizer.KnapsackResult `json:"result"`
}

// SuggestHandler runs the budget allocation engine against the latest
// published snapshot.
type SuggestHandler struct {
	store    *aggregator.Store
	engine   *optimizer.Engine
	validate *validator.Validate
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewSuggestHandler creates a new suggest handler. Metrics may be nil.
func NewSuggestHandler(store *aggregator.Store, engine *optimizer.Engine, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{
		store:    store,
		engine:   engine,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger.With(slog.String("handler", "suggest")),
	}
}

// Suggest handles POST /api/suggest
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SuggestRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(validationError(err)))
		return
	}

	snap, err := h.store.Load()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load snapshot",
			slog.String("path", h.store.Path()),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.FileSystemError("snapshot load", err)))
		return
	}
	if snap == nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrSnapshotNotFound))
		return
	}

	candidates := optimizer.CandidatesFromRecords(snap.Records)

	start := time.Now()
	result, err := h.engine.Suggest(candidates, req.Budget, req.MaxCount)
	if err != nil {
		h.logger.ErrorContext(ctx, "suggestion run failed",
			slog.Float64("budget", req.Budget),
			slog.Int("max_count", req.MaxCount),
			slog.Int("candidates", len(candidates)),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.FromDomain(err)))
		return
	}

	infrastructure.RecordSuggestMetrics(ctx, h.metrics, len(candidates), len(result.Chosen), result.TableCells, time.Since(start))

	h.logger.InfoContext(ctx, "suggestion run completed",
		slog.Float64("budget", req.Budget),
		slog.Int("max_count", req.MaxCount),
		slog.Int("candidates", len(candidates)),
		slog.Int("picked", len(result.Chosen)),
		slog.Int64("spent_cents", result.SpentCents))

	render.JSON(w, r, SuggestResponse{
		Success:    true,
		Candidates: len(candidates),
		Result:     result,
	})
}

// validationError converts validator failures into the per-field API shape.
func validationError(err error) *apierrors.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fe.Tag(),
		})
	}
	return apierrors.NewValidationErrors(fields)
}
