// Package app assembles configuration, logging, telemetry, services and the
// HTTP server into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"teapulse/internal/auction"
	"teapulse/internal/config"
	"teapulse/internal/dataprocessing"
	"teapulse/internal/exporter"
	"teapulse/internal/infrastructure"
	"teapulse/internal/report"
	"teapulse/internal/services"
	transporthttp "teapulse/internal/transport/http"
	"teapulse/internal/websocket"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App is the assembled application.
type App struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
	otel   *infrastructure.OTelProviders
	hub    *websocket.Hub
	server *http.Server
}

// New builds the application from configuration. Nothing is listening yet;
// call Run.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	var reportMetrics *infrastructure.ReportMetrics
	if otelProviders.Meter != nil {
		reportMetrics, err = infrastructure.NewReportMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("creating report metrics: %w", err)
		}
	}

	hub := websocket.NewHub(websocket.Config{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		PongWait:        cfg.WebSocket.PongWait,
	}, logger)

	loader := dataprocessing.NewLoader(paths.DataDir, logger)
	dataService := services.NewDataService(loader, logger).WithNotifier(hub)

	thresholds := thresholdTable(cfg.Report)
	pdfGen := report.NewPDFGenerator(report.Options{
		CompanyName: cfg.Report.CompanyName,
		FooterText:  cfg.Report.FooterText,
		Currency:    cfg.Report.Currency,
		Thresholds:  thresholds,
	}, logger)

	reportService := services.NewReportService(services.ReportServiceOptions{
		Data: dataService,
		PDF:  pdfGen,
		ExcelOpts: exporter.ExcelOptions{
			Currency:   cfg.Report.Currency,
			Thresholds: thresholds,
		},
		ReportsDir: paths.ReportsDir,
		Notifier:   hub,
		Metrics:    reportMetrics,
		Logger:     logger,
	})

	healthService := services.NewHealthService(loader, Version, logger)

	router := transporthttp.NewRouter(transporthttp.RouterOptions{
		Config:  cfg,
		Logger:  logger,
		Data:    dataService,
		Reports: reportService,
		Health:  healthService,
		Hub:     hub,
		Metrics: otelProviders.PrometheusHTTP,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return &App{
		cfg:    cfg,
		paths:  paths,
		logger: logger,
		otel:   otelProviders,
		hub:    hub,
		server: server,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go a.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", a.server.Addr),
			slog.String("version", Version),
			slog.String("data_dir", a.paths.DataDir))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down",
		slog.Duration("timeout", a.cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	a.hub.Shutdown()
	if err := a.otel.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}

	a.logger.Info("shutdown complete")
	return firstErr
}

// thresholdTable builds the sell-through band table from configuration.
func thresholdTable(cfg config.ReportConfig) auction.ThresholdTable {
	return auction.ThresholdTable{
		{Lower: cfg.ExcellentPct, Band: auction.BandExcellent},
		{Lower: cfg.GoodPct, Band: auction.BandGood},
		{Lower: cfg.AveragePct, Band: auction.BandAverage},
		{Lower: 0, Band: auction.BandPoor},
	}
}
