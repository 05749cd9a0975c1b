package services

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teapulse/internal/dataprocessing"
	"teapulse/internal/report"
	"teapulse/pkg/contracts/domain"
)

const (
	sale1 = `Broker,Grade,Sub Elevation,Price,Total Weight,Status
Forbes,BOPF,High,1000,500,SOLD
Mercantile,BOPF,Mid,800,400,SOLD
`
	sale2 = `Broker,Grade,Sub Elevation,Price,Total Weight,Status
Forbes,BOPF,High,1200,500,SOLD
Forbes,BOP,High,0,300,UNSOLD
Mercantile,BOPF,Mid,900,400,SOLD
Mercantile,FBOP,Mid,950,100,outsold
`
)

func newDataService(t *testing.T) *DataService {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_1.csv"), []byte(sale1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_2.csv"), []byte(sale2), 0o644))
	return NewDataService(dataprocessing.NewLoader(dir, slog.Default()), slog.Default())
}

func TestDataServiceListing(t *testing.T) {
	svc := newDataService(t)
	ctx := context.Background()

	sales, err := svc.ListSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sales)

	brokers, err := svc.ListBrokers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Forbes", "Mercantile"}, brokers)
}

func TestBrokerSummary(t *testing.T) {
	svc := newDataService(t)
	ctx := context.Background()

	// saleNo 0 resolves to the latest sale.
	summary, err := svc.BrokerSummary(ctx, "forbes", 0)
	require.NoError(t, err)

	assert.Equal(t, "Forbes", summary.Broker)
	assert.Equal(t, 2, summary.SaleNo)
	assert.Equal(t, 2, summary.LotsOffered)
	assert.Equal(t, 1, summary.LotsSold)
	require.True(t, summary.AveragePrice.Valid)
	assert.InDelta(t, 1200, summary.AveragePrice.Value, 1e-9)

	// Price delta against sale 1: 1200 - 1000.
	require.True(t, summary.PriceDelta.Valid)
	assert.InDelta(t, 200, summary.PriceDelta.Value, 1e-9)

	// Market share by value: Forbes 600000 of 1055000.
	require.True(t, summary.MarketShare.Valid)
	assert.InDelta(t, 600000.0/1055000.0, summary.MarketShare.Value, 1e-9)
}

func TestBrokerSummaryUnknownBroker(t *testing.T) {
	svc := newDataService(t)

	summary, err := svc.BrokerSummary(context.Background(), "Nobody", 0)
	require.NoError(t, err)
	assert.True(t, summary.IsEmpty())
	assert.False(t, summary.AveragePrice.Valid)
}

func TestMarketSummary(t *testing.T) {
	svc := newDataService(t)

	market, err := svc.MarketSummary(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, market.SaleNo)
	assert.Equal(t, 4, market.TotalLots)
	require.Len(t, market.Brokers, 2)

	// Sell-through counts outsold quantity on the sold side:
	// (500 + 400 + 100) / 1300.
	require.True(t, market.SellThrough.Valid)
	assert.InDelta(t, 1000.0/1300.0, market.SellThrough.Value, 1e-9)
}

func TestMarketSummaryUnknownSale(t *testing.T) {
	svc := newDataService(t)
	_, err := svc.MarketSummary(context.Background(), 99)
	require.Error(t, err)
}

func TestDataRefreshedNotification(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_1.csv"), []byte(sale1), 0o644))

	notifier := &captureNotifier{}
	svc := NewDataService(dataprocessing.NewLoader(dir, slog.Default()), slog.Default()).
		WithNotifier(notifier)
	ctx := context.Background()

	// First load establishes the baseline without an event.
	_, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifier.events)

	// A repeat load with nothing new stays quiet.
	_, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifier.events)

	// Dropping a newer sale file triggers the event on the next load.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_2.csv"), []byte(sale2), 0o644))
	_, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"data_refreshed"}, notifier.events)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *captureNotifier) Broadcast(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newReportService(t *testing.T, notifier Notifier) *ReportService {
	t.Helper()
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	gen := report.NewPDFGenerator(report.Options{
		Now: func() time.Time { return fixed },
	}, slog.Default())
	return NewReportService(ReportServiceOptions{
		Data:       newDataService(t),
		PDF:        gen,
		ReportsDir: t.TempDir(),
		Notifier:   notifier,
		Logger:     slog.Default(),
		Now:        func() time.Time { return fixed },
	})
}

func TestGenerateBrokerReportPDF(t *testing.T) {
	notifier := &captureNotifier{}
	svc := newReportService(t, notifier)

	desc, body, err := svc.GenerateBrokerReport(context.Background(), "Forbes", 0, domain.ReportFormatPDF)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.Equal(t, "Forbes", desc.Broker)
	assert.Equal(t, 2, desc.SaleNo)
	assert.Equal(t, domain.ReportFormatPDF, desc.Format)
	assert.Equal(t, int64(len(body)), desc.SizeBytes)
	assert.Equal(t, 2, desc.RecordCount)
	assert.Equal(t, []string{"report_generated"}, notifier.events)
}

func TestGenerateBrokerReportUnknownBrokerYieldsPlaceholder(t *testing.T) {
	svc := newReportService(t, nil)

	desc, body, err := svc.GenerateBrokerReport(context.Background(), "Nobody", 0, domain.ReportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.Equal(t, 0, desc.RecordCount)
}

func TestGenerateBrokerReportFormats(t *testing.T) {
	svc := newReportService(t, nil)
	ctx := context.Background()

	_, csvBody, err := svc.GenerateBrokerReport(ctx, "Forbes", 0, domain.ReportFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvBody), "Forbes")

	_, xlsxBody, err := svc.GenerateBrokerReport(ctx, "Forbes", 0, domain.ReportFormatExcel)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsxBody, []byte("PK")), "xlsx is a zip container")

	_, _, err = svc.GenerateBrokerReport(ctx, "Forbes", 0, domain.ReportFormat("docx"))
	require.Error(t, err)
}

func TestGenerateMarketReport(t *testing.T) {
	svc := newReportService(t, nil)

	desc, body, err := svc.GenerateMarketReport(context.Background(), 2, domain.ReportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.Empty(t, desc.Broker)
	assert.Equal(t, 4, desc.RecordCount)
}

func TestListAndGetReports(t *testing.T) {
	svc := newReportService(t, nil)
	ctx := context.Background()

	desc, body, err := svc.GenerateBrokerReport(ctx, "Forbes", 0, domain.ReportFormatPDF)
	require.NoError(t, err)

	listed := svc.ListReports(ctx)
	require.Len(t, listed, 1)
	assert.Equal(t, desc.ID, listed[0].ID)

	got, gotBody, err := svc.GetReport(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, desc, got)
	assert.Equal(t, body, gotBody)

	_, _, err = svc.GetReport(ctx, "missing")
	require.Error(t, err)
}

func TestHealthService(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sale_3.csv"), []byte(sale1), 0o644))

	svc := NewHealthService(dataprocessing.NewLoader(dir, slog.Default()), "v1.0.0", slog.Default())
	status := svc.Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 1, status.SaleFiles)
	assert.Equal(t, 3, status.LatestSale)

	empty := NewHealthService(dataprocessing.NewLoader(t.TempDir(), slog.Default()), "v1.0.0", slog.Default())
	assert.Equal(t, "degraded", empty.Check(context.Background()).Status)
}
