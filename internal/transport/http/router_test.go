package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teapulse/internal/config"
	"teapulse/internal/dataprocessing"
	"teapulse/internal/report"
	"teapulse/internal/services"
	"teapulse/pkg/contracts/domain"
)

const testCatalogue = `Broker,Grade,Sub Elevation,Price,Total Weight,Status
Forbes,BOPF,High,1000,500,SOLD
Forbes,BOP,High,0,300,UNSOLD
Mercantile,BOPF,Mid,800,400,SOLD
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_5.csv"), []byte(testCatalogue), 0o644))

	logger := slog.Default()
	loader := dataprocessing.NewLoader(dir, logger)
	dataService := services.NewDataService(loader, logger)
	pdfGen := report.NewPDFGenerator(report.Options{
		Now: func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	}, logger)
	reportService := services.NewReportService(services.ReportServiceOptions{
		Data:   dataService,
		PDF:    pdfGen,
		Logger: logger,
	})
	healthService := services.NewHealthService(loader, "test", logger)

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second

	router := NewRouter(RouterOptions{
		Config:  cfg,
		Logger:  logger,
		Data:    dataService,
		Reports: reportService,
		Health:  healthService,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var status map[string]interface{}
	resp := getJSON(t, srv.URL+"/api/health", &status)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, float64(5), status["latest_sale"])
}

func TestListEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var sales struct {
		Sales []int `json:"sales"`
	}
	getJSON(t, srv.URL+"/api/sales", &sales)
	assert.Equal(t, []int{5}, sales.Sales)

	var brokers struct {
		Brokers []string `json:"brokers"`
	}
	getJSON(t, srv.URL+"/api/brokers", &brokers)
	assert.Equal(t, []string{"Forbes", "Mercantile"}, brokers.Brokers)
}

func TestBrokerSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var summary domain.BrokerSummary
	resp := getJSON(t, srv.URL+"/api/brokers/Forbes/summary", &summary)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Forbes", summary.Broker)
	assert.Equal(t, 2, summary.LotsOffered)
	require.True(t, summary.AveragePrice.Valid)
	assert.InDelta(t, 1000, summary.AveragePrice.Value, 1e-9)
	// Single sale on disk: no previous sale to diff against.
	assert.False(t, summary.PriceDelta.Valid)
}

func TestBrokerSummaryUnknownBrokerIs404(t *testing.T) {
	srv := newTestServer(t)

	var problem map[string]interface{}
	resp := getJSON(t, srv.URL+"/api/brokers/Nobody/summary", &problem)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "/errors/not-found", problem["type"])
}

func TestBrokerSummaryBadSaleParam(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/brokers/Forbes/summary?sale=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarketSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var market domain.MarketSummary
	resp := getJSON(t, srv.URL+"/api/market/summary", &market)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, market.SaleNo)
	assert.Equal(t, 3, market.TotalLots)
	require.Len(t, market.Brokers, 2)
}

func TestBrokerReportDownload(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/brokers/Forbes/report")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Forbes_sale_5.pdf")
}

func TestBrokerReportUnknownBrokerServesPlaceholder(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/brokers/Nobody/report")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestBrokerReportBadFormat(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/brokers/Forbes/report?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarketReportFormats(t *testing.T) {
	srv := newTestServer(t)

	for format, contentType := range map[string]string{
		"pdf":  "application/pdf",
		"csv":  "text/csv; charset=utf-8",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	} {
		resp, err := http.Get(srv.URL + "/api/market/report?format=" + format)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, format)
		assert.Equal(t, contentType, resp.Header.Get("Content-Type"), format)
	}
}

func TestReportListingAndRedownload(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/brokers/Forbes/report")
	require.NoError(t, err)
	resp.Body.Close()

	var listing struct {
		Reports []domain.Report `json:"reports"`
		Count   int             `json:"count"`
	}
	getJSON(t, srv.URL+"/api/reports", &listing)
	require.Equal(t, 1, listing.Count)

	resp, err = http.Get(srv.URL + "/api/reports/" + listing.Reports[0].ID + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/reports/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteIsProblemJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "json")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
