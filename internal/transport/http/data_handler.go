package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "teapulse/internal/errors"
	"teapulse/internal/services"
)

// DataHandler serves dashboard JSON endpoints.
type DataHandler struct {
	data   *services.DataService
	errors *apierrors.ErrorHandler
	logger *slog.Logger
}

// NewDataHandler creates a data handler.
func NewDataHandler(data *services.DataService, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		data:   data,
		errors: errHandler,
		logger: logger.With(slog.String("handler", "data")),
	}
}

// Routes mounts the data endpoints.
func (h *DataHandler) Routes(r chi.Router) {
	r.Get("/sales", h.ListSales)
	r.Get("/brokers", h.ListBrokers)
	r.Get("/brokers/{broker}/summary", h.BrokerSummary)
	r.Get("/summary", h.MarketSummary)
	r.Get("/market/summary", h.MarketSummary)
	r.Get("/lots", h.Lots)
}

// ListSales returns the sale numbers available on disk.
func (h *DataHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.data.ListSales(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"sales": sales})
}

// ListBrokers returns the distinct broker names across all sales.
func (h *DataHandler) ListBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := h.data.ListBrokers(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"brokers": brokers})
}

// BrokerSummary returns one broker's aggregated performance. Unknown
// brokers are a 404 here; the report endpoint serves them a placeholder
// instead.
func (h *DataHandler) BrokerSummary(w http.ResponseWriter, r *http.Request) {
	broker := chi.URLParam(r, "broker")
	saleNo, err := saleParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	summary, err := h.data.BrokerSummary(r.Context(), broker, saleNo)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if summary.IsEmpty() {
		h.errors.HandleError(w, r, apierrors.BrokerNotFoundError(broker))
		return
	}
	render.JSON(w, r, summary)
}

// MarketSummary returns the whole-sale aggregation.
func (h *DataHandler) MarketSummary(w http.ResponseWriter, r *http.Request) {
	saleNo, err := saleParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	market, err := h.data.MarketSummary(r.Context(), saleNo)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, market)
}

// Lots returns the raw lot records for one sale, plus the skipped-row audit
// when loading the whole directory.
func (h *DataHandler) Lots(w http.ResponseWriter, r *http.Request) {
	saleNo, err := saleParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	lots, err := h.data.SaleLots(r.Context(), saleNo)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"lots": lots, "count": len(lots)})
}

// saleParam parses the optional sale query parameter. Absent means the
// latest sale.
func saleParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("sale")
	if raw == "" {
		return 0, nil
	}
	saleNo, err := strconv.Atoi(raw)
	if err != nil || saleNo < 1 {
		return 0, apierrors.ErrValidation("sale", "must be a positive integer")
	}
	return saleNo, nil
}
