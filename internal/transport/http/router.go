package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardpulse/internal/aggregator"
	"cardpulse/internal/config"
	apierrors "cardpulse/internal/errors"
	"cardpulse/internal/infrastructure"
	custommw "cardpulse/internal/middleware"
	"cardpulse/internal/optimizer"
)

// RouterDeps bundles what the router needs. Providers may be nil, in which
// case OTel instrumentation and the /metrics endpoint are skipped.
type RouterDeps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
	Store     *aggregator.Store
	Engine    *optimizer.Engine
}

// NewRouter assembles the middleware chain and the API routes. The returned
// metrics are the instruments the OTel middleware records against, so batch
// code sharing the process can record into the same ones.
func NewRouter(deps RouterDeps) (chi.Router, *infrastructure.BusinessMetrics, error) {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(deps.Logger))
	r.Use(custommw.Recoverer(deps.Logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	var metrics *infrastructure.BusinessMetrics
	if deps.Providers != nil {
		otelMW, err := custommw.NewOTelMiddleware(deps.Providers)
		if err != nil {
			return nil, nil, err
		}
		metrics = otelMW.Metrics()
		r.Use(otelMW.Handler)
	}

	if rl := deps.Config.Server.RateLimit; rl.Enabled {
		limiter := custommw.NewRateLimiter(rl.RPS, rl.Burst, deps.Logger)
		r.Use(limiter.Handler)
	}

	records := NewRecordsHandler(deps.Store, deps.Logger)
	suggest := NewSuggestHandler(deps.Store, deps.Engine, metrics, deps.Logger)
	health := NewHealthHandler(deps.Store, deps.Logger)

	r.Mount(config.RecordsEndpoint, records.Routes())
	r.Post(config.SuggestEndpoint, suggest.Suggest)
	r.Get(config.HealthEndpoint, health.HealthCheck)

	if deps.Providers != nil && deps.Providers.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, deps.Providers.PrometheusHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apierrors.WriteError(w, apierrors.ErrNotFound)
	})

	return r, metrics, nil
}
