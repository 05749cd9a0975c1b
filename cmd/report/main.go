// Command report generates a broker or market report from the command
// line, without running the server.
//
// Usage:
//
//	report -data sales_data -broker "Forbes" -format pdf -out forbes.pdf
//	report -data sales_data -market -sale 12 -format xlsx -out market.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"teapulse/internal/dataprocessing"
	"teapulse/internal/exporter"
	"teapulse/internal/report"
	"teapulse/internal/services"
	"teapulse/pkg/contracts/domain"
)

func main() {
	var (
		dataDir   = flag.String("data", "sales_data", "sales data directory")
		broker    = flag.String("broker", "", "broker name (required unless -market)")
		market    = flag.Bool("market", false, "generate the whole-sale market report")
		saleNo    = flag.Int("sale", 0, "sale number (0 = latest)")
		formatStr = flag.String("format", "pdf", "output format: pdf, csv or xlsx")
		out       = flag.String("out", "", "output file (default derived from inputs)")
		company   = flag.String("company", "", "company name on the report title")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if !*market && *broker == "" {
		fmt.Fprintln(os.Stderr, "either -broker or -market is required")
		flag.Usage()
		os.Exit(2)
	}

	format, ok := domain.ParseReportFormat(*formatStr)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid format %q: must be pdf, csv or xlsx\n", *formatStr)
		os.Exit(2)
	}

	ctx := context.Background()

	loader := dataprocessing.NewLoader(*dataDir, logger)
	dataService := services.NewDataService(loader, logger)
	pdfGen := report.NewPDFGenerator(report.Options{CompanyName: *company}, logger)
	reportService := services.NewReportService(services.ReportServiceOptions{
		Data:      dataService,
		PDF:       pdfGen,
		ExcelOpts: exporter.ExcelOptions{},
		Logger:    logger,
	})

	var (
		desc domain.Report
		body []byte
		err  error
	)
	if *market {
		desc, body, err = reportService.GenerateMarketReport(ctx, *saleNo, format)
	} else {
		desc, body, err = reportService.GenerateBrokerReport(ctx, *broker, *saleNo, format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "report generation failed: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		if *market {
			outPath = fmt.Sprintf("Market_Sale_%d.%s", desc.SaleNo, desc.Format)
		} else {
			outPath = fmt.Sprintf("%s_Sale_%d.%s", *broker, desc.SaleNo, desc.Format)
		}
	}
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d bytes, %d lots, sale %d)\n",
		outPath, desc.SizeBytes, desc.RecordCount, desc.SaleNo)
}
