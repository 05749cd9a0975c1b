package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "teapulse/internal/errors"
	"teapulse/internal/exporter"
	"teapulse/internal/infrastructure"
	"teapulse/internal/report"
	"teapulse/pkg/contracts/domain"
)

// Notifier pushes events to connected dashboard clients. The websocket hub
// implements it; a nil notifier disables pushes.
type Notifier interface {
	Broadcast(event string, payload interface{})
}

// ReportService turns aggregated summaries into downloadable report
// artifacts. Generated bytes are written to the reports directory and the
// descriptors are kept in memory for listing.
type ReportService struct {
	data       *DataService
	pdf        *report.PDFGenerator
	excelOpts  exporter.ExcelOptions
	reportsDir string
	notifier   Notifier
	metrics    *infrastructure.ReportMetrics
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.RWMutex
	reports map[string]domain.Report
	bodies  map[string][]byte
}

// ReportServiceOptions wire the report service dependencies.
type ReportServiceOptions struct {
	Data       *DataService
	PDF        *report.PDFGenerator
	ExcelOpts  exporter.ExcelOptions
	ReportsDir string
	Notifier   Notifier
	Metrics    *infrastructure.ReportMetrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewReportService creates a report service.
func NewReportService(opts ReportServiceOptions) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		data:       opts.Data,
		pdf:        opts.PDF,
		excelOpts:  opts.ExcelOpts,
		reportsDir: opts.ReportsDir,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     logger.With(slog.String("service", "report")),
		now:        now,
		reports:    make(map[string]domain.Report),
		bodies:     make(map[string][]byte),
	}
}

// GenerateBrokerReport builds a report for one broker in one sale. An
// unknown broker is not an error: the PDF carries a placeholder page so the
// dashboard can always offer the download.
func (s *ReportService) GenerateBrokerReport(ctx context.Context, broker string, saleNo int, format domain.ReportFormat) (domain.Report, []byte, error) {
	start := time.Now()

	summary, err := s.data.BrokerSummary(ctx, broker, saleNo)
	if err != nil {
		s.record(ctx, format, start, false)
		return domain.Report{}, nil, err
	}

	var body []byte
	switch format {
	case domain.ReportFormatPDF:
		body, err = s.pdf.BrokerReport(ctx, summary)
	case domain.ReportFormatCSV:
		body, err = exporter.BrokerSummaryCSV(summary)
	case domain.ReportFormatExcel:
		body, err = exporter.BrokerSummaryExcel(summary, s.excelOpts)
	default:
		err = fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		s.record(ctx, format, start, false)
		return domain.Report{}, nil, apierrors.ReportError(err)
	}

	desc := s.store(summary.Broker, summary.SaleNo, format, summary.LotsOffered, body)
	s.record(ctx, format, start, true)
	s.notify("report_generated", desc)
	return desc, body, nil
}

// GenerateMarketReport builds the whole-sale report. The CSV format exports
// the raw lot records rather than a summary, which is what buyers ask for
// when they want to run their own numbers.
func (s *ReportService) GenerateMarketReport(ctx context.Context, saleNo int, format domain.ReportFormat) (domain.Report, []byte, error) {
	start := time.Now()

	market, err := s.data.MarketSummary(ctx, saleNo)
	if err != nil {
		s.record(ctx, format, start, false)
		return domain.Report{}, nil, err
	}

	var body []byte
	switch format {
	case domain.ReportFormatPDF:
		body, err = s.pdf.MarketReport(ctx, market)
	case domain.ReportFormatCSV:
		var lots []domain.AuctionLot
		lots, err = s.data.SaleLots(ctx, saleNo)
		if err == nil {
			body, err = exporter.LotsCSV(lots)
		}
	case domain.ReportFormatExcel:
		body, err = exporter.MarketSummaryExcel(market, s.excelOpts)
	default:
		err = fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		s.record(ctx, format, start, false)
		return domain.Report{}, nil, apierrors.ReportError(err)
	}

	desc := s.store("", market.SaleNo, format, market.TotalLots, body)
	s.record(ctx, format, start, true)
	s.notify("report_generated", desc)
	return desc, body, nil
}

// ListReports returns descriptors for every report generated this session,
// newest first.
func (s *ReportService) ListReports(ctx context.Context) []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetReport returns a previously generated report by ID.
func (s *ReportService) GetReport(ctx context.Context, id string) (domain.Report, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, ok := s.reports[id]
	if !ok {
		return domain.Report{}, nil, apierrors.NotFoundError("report")
	}
	return desc, s.bodies[id], nil
}

func (s *ReportService) store(broker string, saleNo int, format domain.ReportFormat, records int, body []byte) domain.Report {
	desc := domain.Report{
		ID:          uuid.New().String(),
		Broker:      broker,
		SaleNo:      saleNo,
		Format:      format,
		SizeBytes:   int64(len(body)),
		RecordCount: records,
		GeneratedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.reports[desc.ID] = desc
	s.bodies[desc.ID] = body
	s.mu.Unlock()

	if s.reportsDir != "" {
		path := filepath.Join(s.reportsDir, s.fileName(desc))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			// Descriptor stays valid; the bytes are still served from memory.
			s.logger.Warn("failed to persist report to disk",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return desc
}

func (s *ReportService) fileName(desc domain.Report) string {
	if desc.Broker == "" {
		return fmt.Sprintf("Market_Sale_%d.%s", desc.SaleNo, desc.Format)
	}
	return fmt.Sprintf("%s_Sale_%d.%s", sanitizeFileName(desc.Broker), desc.SaleNo, desc.Format)
}

func (s *ReportService) record(ctx context.Context, format domain.ReportFormat, start time.Time, success bool) {
	if s.metrics != nil {
		s.metrics.RecordReport(ctx, string(format), time.Since(start), success)
	}
}

func (s *ReportService) notify(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, payload)
	}
}

// sanitizeFileName keeps broker names safe for use in file names.
func sanitizeFileName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '_')
		}
	}
	return string(out)
}
