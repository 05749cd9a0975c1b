package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"teapulse/pkg/contracts/domain"
)

func sampleSummary() domain.BrokerSummary {
	return domain.BrokerSummary{
		Broker:          "Forbes",
		SaleNo:          7,
		LotsOffered:     3,
		LotsSold:        2,
		QuantityOffered: 900,
		QuantitySold:    600,
		QuantityUnsold:  300,
		TotalValue:      720000,
		AveragePrice:    domain.NewMetric(1200),
		SellThrough:     domain.NewMetric(600.0 / 900.0),
		ByElevation: []domain.CategorySummary{
			{Key: "High", LotsOffered: 3, LotsSold: 2, QuantityOffered: 900,
				QuantitySold: 600, TotalValue: 720000,
				AveragePrice: domain.NewMetric(1200), SellThrough: domain.NewMetric(600.0 / 900.0)},
		},
		ByGrade: []domain.CategorySummary{
			{Key: "BOPF", LotsOffered: 2, LotsSold: 2, QuantityOffered: 600,
				QuantitySold: 600, TotalValue: 720000,
				AveragePrice: domain.NewMetric(1200), SellThrough: domain.NewMetric(1)},
			{Key: "BOP", LotsOffered: 1, QuantityOffered: 300, QuantityUnsold: 300,
				AveragePrice: domain.NAMetric(), SellThrough: domain.NewMetric(0)},
		},
	}
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "1200.00", FormatMetric(domain.NewMetric(1200), 2))
	assert.Equal(t, "N/A", FormatMetric(domain.NAMetric(), 2))
	assert.Equal(t, "66.7%", FormatPercent(domain.NewMetric(2.0/3.0)))
	assert.Equal(t, "N/A", FormatPercent(domain.NAMetric()))
}

func TestLotsCSV(t *testing.T) {
	lots := []domain.AuctionLot{
		{SaleNo: 7, LotNo: "1", Broker: "Forbes", Grade: "BOPF", Elevation: "High",
			Price: 1250.5, Quantity: 500, Status: domain.StatusSold},
	}

	data, err := LotsCSV(lots)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	body := string(bytes.TrimPrefix(data, utf8BOM))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Total Value")
	assert.Contains(t, lines[1], "625250.00") // 1250.5 * 500
	assert.Contains(t, lines[1], "sold")
}

func TestBrokerSummaryCSV(t *testing.T) {
	data, err := BrokerSummaryCSV(sampleSummary())
	require.NoError(t, err)

	body := string(bytes.TrimPrefix(data, utf8BOM))
	assert.Contains(t, body, "Broker,Forbes")
	assert.Contains(t, body, "Elevation,High")
	assert.Contains(t, body, "Grade,BOPF")
	// Undefined average price must render as N/A, never zero.
	assert.Contains(t, body, "N/A")
	assert.Contains(t, body, "66.7%")
}

func TestBrokerSummaryExcel(t *testing.T) {
	data, err := BrokerSummaryExcel(sampleSummary(), ExcelOptions{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)

	// Title, blank, header, broker total, one elevation, two grades.
	require.GreaterOrEqual(t, len(rows), 7)
	assert.Equal(t, "Forbes - Sale 7", rows[0][0])
	assert.Equal(t, "Section", rows[2][0])
	assert.Equal(t, "Broker", rows[3][0])

	var sawNA bool
	for _, row := range rows {
		for _, c := range row {
			if c == "N/A" {
				sawNA = true
			}
		}
	}
	assert.True(t, sawNA, "undefined metrics should render as N/A")
}

func TestMarketSummaryExcel(t *testing.T) {
	market := domain.MarketSummary{
		SaleNo:    7,
		TotalLots: 3,
		Brokers:   []domain.BrokerSummary{sampleSummary()},
	}

	data, err := MarketSummaryExcel(market, ExcelOptions{Currency: "LKR"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, "Market Summary - Sale 7", rows[0][0])
	assert.Equal(t, "Forbes", rows[3][0])
}
