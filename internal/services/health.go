package services

import (
	"context"
	"log/slog"
	"time"

	"teapulse/internal/dataprocessing"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Uptime     string    `json:"uptime"`
	DataDir    string    `json:"data_dir"`
	SaleFiles  int       `json:"sale_files"`
	LatestSale int       `json:"latest_sale,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HealthService reports process and data directory health.
type HealthService struct {
	loader  *dataprocessing.Loader
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthService creates a health service.
func NewHealthService(loader *dataprocessing.Loader, version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		loader:  loader,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("service", "health")),
	}
}

// Check returns the current health status. Missing sale data degrades the
// status but the endpoint itself stays 200 so load balancers keep routing.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		DataDir:   s.loader.Dir(),
		Timestamp: time.Now().UTC(),
	}

	files, err := s.loader.ListSaleFiles()
	switch {
	case err != nil:
		status.Status = "degraded"
		s.logger.WarnContext(ctx, "health check cannot read data directory",
			slog.String("error", err.Error()))
	case len(files) == 0:
		status.Status = "degraded"
	default:
		status.SaleFiles = len(files)
		status.LatestSale = files[len(files)-1].SaleNo
	}

	return status
}
