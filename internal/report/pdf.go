package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"teapulse/internal/auction"
	"teapulse/internal/exporter"
	"teapulse/pkg/contracts/domain"
)

// Clock supplies the generation timestamp. Injected so report output is
// reproducible in tests.
type Clock func() time.Time

// Options configure the PDF generator.
type Options struct {
	CompanyName string
	FooterText  string
	Currency    string
	Thresholds  auction.ThresholdTable
	Now         Clock
}

func (o Options) withDefaults() Options {
	if o.CompanyName == "" {
		o.CompanyName = "Mercantile Produce Brokers Pvt Ltd"
	}
	if o.FooterText == "" {
		o.FooterText = "MPBL IT"
	}
	if o.Currency == "" {
		o.Currency = "LKR"
	}
	if len(o.Thresholds) == 0 {
		o.Thresholds = auction.DefaultSellThroughThresholds()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// PDFGenerator renders summaries into A4 portrait PDF reports.
type PDFGenerator struct {
	opts   Options
	logger *slog.Logger
}

// NewPDFGenerator creates a generator with the given options.
func NewPDFGenerator(opts Options, logger *slog.Logger) *PDFGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFGenerator{
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("component", "pdf_generator")),
	}
}

const (
	pageWidth   = 210.0
	leftMargin  = 15.0
	rightMargin = 15.0
	contentW    = pageWidth - leftMargin - rightMargin
)

func (g *PDFGenerator) newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(leftMargin, 20, rightMargin)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AliasNbPages("")

	now := g.opts.Now()
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(g.opts.CompanyName, false)

	footer := g.opts.FooterText
	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(108, 117, 125)
		pdf.CellFormat(contentW/2, 6, footer, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 6,
			fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	return pdf
}

// BrokerReport renders the per-broker performance report.
func (g *PDFGenerator) BrokerReport(ctx context.Context, summary domain.BrokerSummary) ([]byte, error) {
	start := time.Now()
	pdf := g.newDocument()
	pdf.AddPage()

	g.titleBlock(pdf, fmt.Sprintf("Broker Performance Report: %s", summary.Broker), summary.SaleNo)

	if summary.IsEmpty() {
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(108, 117, 125)
		pdf.MultiCell(contentW, 8,
			fmt.Sprintf("No lots were recorded for %s in sale %d.", summary.Broker, summary.SaleNo),
			"", "C", false)
		return g.output(ctx, pdf, "broker", start)
	}

	g.performanceSummary(pdf, summary)
	g.breakdownTable(pdf, "Performance by Elevation", summary.ByElevation)
	g.breakdownTable(pdf, "Performance by Grade", summary.ByGrade)

	return g.output(ctx, pdf, "broker", start)
}

// MarketReport renders the whole-sale market overview with one section per
// broker.
func (g *PDFGenerator) MarketReport(ctx context.Context, market domain.MarketSummary) ([]byte, error) {
	start := time.Now()
	pdf := g.newDocument()
	pdf.AddPage()

	g.titleBlock(pdf, "Market Overview Report", market.SaleNo)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW, 8, "Sale Totals", "", 1, "L", false, 0, "")
	g.keyValueRows(pdf, [][2]string{
		{"Total Lots", strconv.Itoa(market.TotalLots)},
		{"Total Weight (kg)", formatQuantity(market.TotalWeight)},
		{fmt.Sprintf("Total Value (%s)", g.opts.Currency), formatQuantity(market.TotalValue)},
		{fmt.Sprintf("Average Price (%s/kg)", g.opts.Currency), exporter.FormatMetric(market.AveragePrice, 2)},
		{"Sell Through", exporter.FormatPercent(market.SellThrough)},
	})
	pdf.Ln(4)

	g.brokerComparisonTable(pdf, market.Brokers)

	return g.output(ctx, pdf, "market", start)
}

func (g *PDFGenerator) output(ctx context.Context, pdf *fpdf.Fpdf, kind string, start time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering %s report: %w", kind, err)
	}
	g.logger.InfoContext(ctx, "report rendered",
		slog.String("kind", kind),
		slog.Int("bytes", buf.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return buf.Bytes(), nil
}

func (g *PDFGenerator) titleBlock(pdf *fpdf.Fpdf, title string, saleNo int) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW, 10, g.opts.CompanyName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 8, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(contentW, 6,
		fmt.Sprintf("Sale %d  |  Generated %s", saleNo, g.opts.Now().UTC().Format("2006-01-02 15:04 MST")),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFGenerator) performanceSummary(pdf *fpdf.Fpdf, s domain.BrokerSummary) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW, 8, "Performance Summary", "", 1, "L", false, 0, "")

	rows := [][2]string{
		{"Lots Offered", strconv.Itoa(s.LotsOffered)},
		{"Lots Sold", strconv.Itoa(s.LotsSold)},
		{"Quantity Offered (kg)", formatQuantity(s.QuantityOffered)},
		{"Quantity Sold (kg)", formatQuantity(s.QuantitySold)},
		{"Quantity Unsold (kg)", formatQuantity(s.QuantityUnsold)},
		{"Quantity Outsold (kg)", formatQuantity(s.QuantityOutsold)},
		{fmt.Sprintf("Total Value (%s)", g.opts.Currency), formatQuantity(s.TotalValue)},
		{fmt.Sprintf("Average Price (%s/kg)", g.opts.Currency), exporter.FormatMetric(s.AveragePrice, 2)},
		{"Market Share", exporter.FormatPercent(s.MarketShare)},
		{"Price vs Previous Sale", formatDelta(s.PriceDelta, g.opts.Currency)},
	}
	g.keyValueRows(pdf, rows)

	// Sell-through gets its own banded row so the color coding stands out.
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW*0.55, 7, "Sell Through", "1", 0, "L", false, 0, "")
	g.bandedCell(pdf, contentW*0.45, 7, s.SellThrough)
	pdf.Ln(-1)
	pdf.Ln(4)
}

func (g *PDFGenerator) keyValueRows(pdf *fpdf.Fpdf, rows [][2]string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(33, 37, 41)
	for _, row := range rows {
		pdf.CellFormat(contentW*0.55, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.45, 7, row[1], "1", 1, "R", false, 0, "")
	}
}

// bandedCell writes a sell-through value cell with its band's fill and text
// colors. Undefined metrics render as a plain N/A cell.
func (g *PDFGenerator) bandedCell(pdf *fpdf.Fpdf, w, h float64, m domain.Metric) {
	if !m.Valid {
		pdf.CellFormat(w, h, exporter.NAValue, "1", 0, "R", false, 0, "")
		return
	}
	band := g.opts.Thresholds.Classify(m.Value * 100)
	fill, text := band.Colors()
	fr, fg, fb := hexToRGB(fill)
	tr, tg, tb := hexToRGB(text)
	pdf.SetFillColor(fr, fg, fb)
	pdf.SetTextColor(tr, tg, tb)
	pdf.CellFormat(w, h, fmt.Sprintf("%s (%s)", exporter.FormatPercent(m), band.String()),
		"1", 0, "R", true, 0, "")
	pdf.SetTextColor(33, 37, 41)
}

var breakdownWidths = []float64{0.24, 0.10, 0.10, 0.14, 0.14, 0.13, 0.15}

func (g *PDFGenerator) breakdownTable(pdf *fpdf.Fpdf, title string, categories []domain.CategorySummary) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW, 8, title, "", 1, "L", false, 0, "")

	if len(categories) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(108, 117, 125)
		pdf.CellFormat(contentW, 7, "No data", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	headers := []string{"Key", "Lots", "Sold", "Qty Offered", "Qty Sold", "Avg Price", "Sell Through"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(52, 58, 64)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(contentW*breakdownWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, c := range categories {
		fr, fg, fb, tr, tg, tb, banded := g.rowColors(c.SellThrough)
		if banded {
			pdf.SetFillColor(fr, fg, fb)
			pdf.SetTextColor(tr, tg, tb)
		} else {
			pdf.SetTextColor(33, 37, 41)
		}

		cells := []struct {
			text  string
			align string
		}{
			{c.Key, "L"},
			{strconv.Itoa(c.LotsOffered), "R"},
			{strconv.Itoa(c.LotsSold), "R"},
			{formatQuantity(c.QuantityOffered), "R"},
			{formatQuantity(c.QuantitySold), "R"},
			{exporter.FormatMetric(c.AveragePrice, 2), "R"},
			{exporter.FormatPercent(c.SellThrough), "R"},
		}
		for i, cell := range cells {
			pdf.CellFormat(contentW*breakdownWidths[i], 7, cell.text, "1", 0, cell.align, banded, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetTextColor(33, 37, 41)
	pdf.Ln(4)
}

var comparisonWidths = []float64{0.26, 0.10, 0.10, 0.16, 0.12, 0.13, 0.13}

func (g *PDFGenerator) brokerComparisonTable(pdf *fpdf.Fpdf, brokers []domain.BrokerSummary) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(contentW, 8, "Broker Comparison", "", 1, "L", false, 0, "")

	headers := []string{"Broker", "Lots", "Sold", "Qty Offered", "Avg Price", "Sell Through", "Market Share"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(52, 58, 64)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(contentW*comparisonWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, b := range brokers {
		fr, fg, fb, tr, tg, tb, banded := g.rowColors(b.SellThrough)
		if banded {
			pdf.SetFillColor(fr, fg, fb)
			pdf.SetTextColor(tr, tg, tb)
		} else {
			pdf.SetTextColor(33, 37, 41)
		}

		cells := []struct {
			text  string
			align string
		}{
			{b.Broker, "L"},
			{strconv.Itoa(b.LotsOffered), "R"},
			{strconv.Itoa(b.LotsSold), "R"},
			{formatQuantity(b.QuantityOffered), "R"},
			{exporter.FormatMetric(b.AveragePrice, 2), "R"},
			{exporter.FormatPercent(b.SellThrough), "R"},
			{exporter.FormatPercent(b.MarketShare), "R"},
		}
		for i, cell := range cells {
			pdf.CellFormat(contentW*comparisonWidths[i], 7, cell.text, "1", 0, cell.align, banded, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetTextColor(33, 37, 41)
}

func (g *PDFGenerator) rowColors(m domain.Metric) (fr, fg, fb, tr, tg, tb int, banded bool) {
	if !m.Valid {
		return 0, 0, 0, 0, 0, 0, false
	}
	band := g.opts.Thresholds.Classify(m.Value * 100)
	fill, text := band.Colors()
	fr, fg, fb = hexToRGB(fill)
	tr, tg, tb = hexToRGB(text)
	return fr, fg, fb, tr, tg, tb, true
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatDelta renders a price delta with an explicit sign.
func formatDelta(m domain.Metric, currency string) string {
	if !m.Valid {
		return exporter.NAValue
	}
	return fmt.Sprintf("%+.2f %s/kg", m.Value, currency)
}

func hexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}
