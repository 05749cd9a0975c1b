// Command importer loads every catalogue file in a sales data directory,
// writes the combined validated lots as one CSV, and prints the skipped-row
// audit. Useful for checking a new batch of sale files before the dashboard
// picks them up.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"teapulse/internal/dataprocessing"
	"teapulse/internal/exporter"
)

func main() {
	var (
		dataDir = flag.String("data", "sales_data", "sales data directory")
		out     = flag.String("out", "combined_lots.csv", "combined CSV output file")
		audit   = flag.String("audit", "skipped_rows.csv", "skipped-row audit CSV output file")
		quiet   = flag.Bool("q", false, "suppress per-row skip reasons")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	loader := dataprocessing.NewLoader(*dataDir, logger)
	result, err := loader.LoadAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
		os.Exit(1)
	}

	data, err := exporter.LotsCSV(result.Lots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("files:   %d\n", len(result.Files))
	fmt.Printf("lots:    %d\n", len(result.Lots))
	fmt.Printf("skipped: %d\n", len(result.Skipped))
	fmt.Printf("output:  %s\n", *out)

	if len(result.Skipped) > 0 {
		if err := writeAudit(*audit, result.Skipped); err != nil {
			fmt.Fprintf(os.Stderr, "writing %s: %v\n", *audit, err)
			os.Exit(1)
		}
		fmt.Printf("audit:   %s\n", *audit)

		if !*quiet {
			fmt.Println("\nskipped rows:")
			for _, sr := range result.Skipped {
				fmt.Printf("  %s:%d  %s\n", sr.File, sr.Line, sr.Reason)
			}
		}
		os.Exit(3)
	}
}

func writeAudit(path string, skipped []dataprocessing.SkippedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"File", "Line", "Reason"}); err != nil {
		return err
	}
	for _, sr := range skipped {
		if err := w.Write([]string{sr.File, strconv.Itoa(sr.Line), sr.Reason}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
