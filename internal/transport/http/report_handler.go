package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "teapulse/internal/errors"
	"teapulse/internal/services"
	"teapulse/pkg/contracts/domain"
)

// ReportHandler serves report generation and download endpoints.
type ReportHandler struct {
	reports *services.ReportService
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewReportHandler creates a report handler.
func NewReportHandler(reports *services.ReportService, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		reports: reports,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "report")),
	}
}

// Routes mounts the report endpoints.
func (h *ReportHandler) Routes(r chi.Router) {
	r.Get("/brokers/{broker}/report", h.BrokerReport)
	r.Get("/market/report", h.MarketReport)
	r.Get("/reports", h.ListReports)
	r.Get("/reports/{id}/download", h.Download)
}

// BrokerReport generates and streams a broker report. The format query
// parameter selects pdf (default), csv or xlsx.
func (h *ReportHandler) BrokerReport(w http.ResponseWriter, r *http.Request) {
	broker := chi.URLParam(r, "broker")

	saleNo, err := saleParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	format, ok := domain.ParseReportFormat(r.URL.Query().Get("format"))
	if !ok {
		h.errors.HandleError(w, r, apierrors.ErrValidation("format", "must be pdf, csv or xlsx"))
		return
	}

	desc, body, err := h.reports.GenerateBrokerReport(r.Context(), broker, saleNo, format)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.stream(w, desc, body)
}

// MarketReport generates and streams the whole-sale report.
func (h *ReportHandler) MarketReport(w http.ResponseWriter, r *http.Request) {
	saleNo, err := saleParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	format, ok := domain.ParseReportFormat(r.URL.Query().Get("format"))
	if !ok {
		h.errors.HandleError(w, r, apierrors.ErrValidation("format", "must be pdf, csv or xlsx"))
		return
	}

	desc, body, err := h.reports.GenerateMarketReport(r.Context(), saleNo, format)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.stream(w, desc, body)
}

// ListReports returns descriptors for the reports generated this session.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports := h.reports.ListReports(r.Context())
	render.JSON(w, r, map[string]interface{}{"reports": reports, "count": len(reports)})
}

// Download re-serves a previously generated report by ID.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	desc, body, err := h.reports.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.stream(w, desc, body)
}

func (h *ReportHandler) stream(w http.ResponseWriter, desc domain.Report, body []byte) {
	name := "market"
	if desc.Broker != "" {
		name = desc.Broker
	}
	w.Header().Set("Content-Type", desc.Format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s_sale_%d.%s", name, desc.SaleNo, desc.Format)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", desc.SizeBytes))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
