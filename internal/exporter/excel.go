package exporter

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"teapulse/internal/auction"
	"teapulse/pkg/contracts/domain"
)

const summarySheet = "Summary"

// ExcelOptions control workbook rendering.
type ExcelOptions struct {
	Currency   string
	Thresholds auction.ThresholdTable
}

func (o ExcelOptions) withDefaults() ExcelOptions {
	if o.Currency == "" {
		o.Currency = "LKR"
	}
	if len(o.Thresholds) == 0 {
		o.Thresholds = auction.DefaultSellThroughThresholds()
	}
	return o
}

// BrokerSummaryExcel renders a broker summary as an xlsx workbook. Breakdown
// rows carry the fill color of their sell-through band, matching the PDF
// report's conditional formatting.
func BrokerSummaryExcel(summary domain.BrokerSummary, opts ExcelOptions) ([]byte, error) {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"343A40"}},
	})
	if err != nil {
		return nil, err
	}

	bandStyles := make(map[auction.Band]int)
	for _, band := range []auction.Band{auction.BandPoor, auction.BandAverage, auction.BandGood, auction.BandExcellent} {
		fill, text := band.Colors()
		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Color: stripHash(text)},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{stripHash(fill)}},
		})
		if err != nil {
			return nil, err
		}
		bandStyles[band] = style
	}

	title := fmt.Sprintf("%s - Sale %d", summary.Broker, summary.SaleNo)
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return nil, err
	}

	header := []interface{}{"Section", "Key", "Lots Offered", "Lots Sold",
		"Qty Offered (kg)", "Qty Sold (kg)", "Qty Unsold (kg)", "Qty Outsold (kg)",
		"Total Value (" + opts.Currency + ")", "Avg Price (" + opts.Currency + ")", "Sell Through"}
	if err := f.SetSheetRow(summarySheet, "A3", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A3", cellRef(len(header), 3), headerStyle); err != nil {
		return nil, err
	}

	row := 4
	writeSummaryRow := func(section string, c domain.CategorySummary, colored bool) error {
		values := []interface{}{
			section,
			c.Key,
			c.LotsOffered,
			c.LotsSold,
			c.QuantityOffered,
			c.QuantitySold,
			c.QuantityUnsold,
			c.QuantityOutsold,
			c.TotalValue,
			FormatMetric(c.AveragePrice, 2),
			FormatPercent(c.SellThrough),
		}
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(row), &values); err != nil {
			return err
		}
		if colored && c.SellThrough.Valid {
			band := opts.Thresholds.Classify(c.SellThrough.Value * 100)
			if err := f.SetCellStyle(summarySheet,
				"A"+strconv.Itoa(row), cellRef(len(values), row), bandStyles[band]); err != nil {
				return err
			}
		}
		row++
		return nil
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
	if err := writeSummaryRow("Broker", total, false); err != nil {
		return nil, err
	}
	for _, c := range summary.ByElevation {
		if err := writeSummaryRow("Elevation", c, true); err != nil {
			return nil, err
		}
	}
	for _, c := range summary.ByGrade {
		if err := writeSummaryRow("Grade", c, true); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarketSummaryExcel renders the whole-sale market summary with one row per
// broker.
func MarketSummaryExcel(market domain.MarketSummary, opts ExcelOptions) ([]byte, error) {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Market Summary - Sale %d", market.SaleNo)); err != nil {
		return nil, err
	}

	header := []interface{}{"Broker", "Lots Offered", "Lots Sold",
		"Qty Offered (kg)", "Total Value (" + opts.Currency + ")",
		"Avg Price (" + opts.Currency + ")", "Sell Through", "Market Share"}
	if err := f.SetSheetRow(summarySheet, "A3", &header); err != nil {
		return nil, err
	}

	row := 4
	for _, b := range market.Brokers {
		values := []interface{}{
			b.Broker,
			b.LotsOffered,
			b.LotsSold,
			b.QuantityOffered,
			b.TotalValue,
			FormatMetric(b.AveragePrice, 2),
			FormatPercent(b.SellThrough),
			FormatPercent(b.MarketShare),
		}
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(row), &values); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripHash(hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		return hex[1:]
	}
	return hex
}

func cellRef(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name + strconv.Itoa(row)
}
