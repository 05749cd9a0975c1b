package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"teapulse/internal/config"
	apierrors "teapulse/internal/errors"
	"teapulse/internal/middleware"
	"teapulse/internal/services"
	"teapulse/internal/websocket"
)

// RouterOptions carry everything the router needs.
type RouterOptions struct {
	Config  *config.Config
	Logger  *slog.Logger
	Data    *services.DataService
	Reports *services.ReportService
	Health  *services.HealthService
	Hub     *websocket.Hub
	Metrics http.Handler
}

// NewRouter assembles the chi router with the full middleware chain and all
// endpoint groups.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Compress(5))
	r.Use(chimiddleware.Timeout(opts.Config.Server.RequestTimeout))

	if opts.Config.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: opts.Config.Security.AllowedOrigins,
		}))
	}
	if opts.Config.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			opts.Config.Security.RateLimit.RPS,
			opts.Config.Security.RateLimit.Burst,
			logger)
		r.Use(limiter.Handler)
	}

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	dataHandler := NewDataHandler(opts.Data, errHandler, logger)
	reportHandler := NewReportHandler(opts.Reports, errHandler, logger)
	healthHandler := NewHealthHandler(opts.Health)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler.Check)
		dataHandler.Routes(api)
		reportHandler.Routes(api)
	})

	if opts.Hub != nil {
		r.Get("/ws", opts.Hub.ServeWS)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	return r
}
