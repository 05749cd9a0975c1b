package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"teapulse/pkg/contracts/domain"
)

// utf8BOM makes exported files open cleanly in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NAValue is how undefined metrics render in tabular output.
const NAValue = "N/A"

// FormatMetric renders a metric with the given precision, or NAValue.
func FormatMetric(m domain.Metric, precision int) string {
	if !m.Valid {
		return NAValue
	}
	return strconv.FormatFloat(m.Value, 'f', precision, 64)
}

// FormatPercent renders a ratio metric as a percentage with one decimal.
func FormatPercent(m domain.Metric) string {
	if !m.Valid {
		return NAValue
	}
	return fmt.Sprintf("%.1f%%", m.Value*100)
}

// LotsCSV writes raw lot records as a UTF-8 BOM prefixed CSV document.
func LotsCSV(lots []domain.AuctionLot) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	header := []string{"Sale No", "Lot No", "Broker", "Selling Mark", "Grade",
		"Sub Elevation", "Category", "Buyer", "Price", "Total Weight", "Status", "Total Value"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, lot := range lots {
		row := []string{
			strconv.Itoa(lot.SaleNo),
			lot.LotNo,
			lot.Broker,
			lot.SellingMark,
			lot.Grade,
			lot.Elevation,
			lot.Category,
			lot.Buyer,
			strconv.FormatFloat(lot.Price, 'f', 2, 64),
			strconv.FormatFloat(lot.Quantity, 'f', 2, 64),
			string(lot.Status),
			strconv.FormatFloat(lot.Value(), 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var summaryHeader = []string{"Section", "Key", "Lots Offered", "Lots Sold",
	"Qty Offered (kg)", "Qty Sold (kg)", "Qty Unsold (kg)", "Qty Outsold (kg)",
	"Total Value", "Avg Price", "Sell Through"}

// BrokerSummaryCSV writes a broker summary with its grade and elevation
// breakdowns as a UTF-8 BOM prefixed CSV document.
func BrokerSummaryCSV(summary domain.BrokerSummary) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(summaryHeader); err != nil {
		return nil, err
	}

	writeRow := func(section, key string, c domain.CategorySummary) error {
		return w.Write([]string{
			section,
			key,
			strconv.Itoa(c.LotsOffered),
			strconv.Itoa(c.LotsSold),
			strconv.FormatFloat(c.QuantityOffered, 'f', 2, 64),
			strconv.FormatFloat(c.QuantitySold, 'f', 2, 64),
			strconv.FormatFloat(c.QuantityUnsold, 'f', 2, 64),
			strconv.FormatFloat(c.QuantityOutsold, 'f', 2, 64),
			strconv.FormatFloat(c.TotalValue, 'f', 2, 64),
			FormatMetric(c.AveragePrice, 2),
			FormatPercent(c.SellThrough),
		})
	}

	total := domain.CategorySummary{
		Key:             summary.Broker,
		LotsOffered:     summary.LotsOffered,
		LotsSold:        summary.LotsSold,
		QuantityOffered: summary.QuantityOffered,
		QuantitySold:    summary.QuantitySold,
		QuantityUnsold:  summary.QuantityUnsold,
		QuantityOutsold: summary.QuantityOutsold,
		TotalValue:      summary.TotalValue,
		AveragePrice:    summary.AveragePrice,
		SellThrough:     summary.SellThrough,
	}
	if err := writeRow("Broker", summary.Broker, total); err != nil {
		return nil, err
	}
	for _, c := range summary.ByElevation {
		if err := writeRow("Elevation", c.Key, c); err != nil {
			return nil, err
		}
	}
	for _, c := range summary.ByGrade {
		if err := writeRow("Grade", c.Key, c); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
