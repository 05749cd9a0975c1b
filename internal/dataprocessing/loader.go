package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"teapulse/pkg/contracts/domain"
)

// saleFilePattern matches catalogue files like Sale_12.csv or Sale_12.xlsx.
var saleFilePattern = regexp.MustCompile(`^Sale_(\d+)\.(csv|xlsx)$`)

// maxConcurrentFiles caps parallel catalogue parsing.
const maxConcurrentFiles = 4

// SkippedRow records one malformed row that was dropped during loading.
type SkippedRow struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadResult holds the outcome of a catalogue load.
type LoadResult struct {
	Lots    []domain.AuctionLot `json:"lots"`
	Skipped []SkippedRow        `json:"skipped,omitempty"`
	Files   []string            `json:"files"`
}

// Loader reads catalogue files from a sales data directory.
type Loader struct {
	dir       string
	logger    *slog.Logger
	validator *LotValidator
}

// NewLoader creates a loader for the given sales data directory.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:       dir,
		logger:    logger.With(slog.String("component", "loader")),
		validator: NewLotValidator(),
	}
}

// Dir returns the sales data directory this loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// ListSaleFiles returns the catalogue files present in the data directory,
// sorted by sale number. When both a .csv and a .xlsx exist for the same
// sale the .csv wins.
func (l *Loader) ListSaleFiles() ([]SaleFile, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading sales data directory %s: %w", l.dir, err)
	}

	bySale := make(map[int]SaleFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := saleFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		saleNo, err := strconv.Atoi(m[1])
		if err != nil || saleNo <= 0 {
			continue
		}
		sf := SaleFile{SaleNo: saleNo, Name: entry.Name(), Path: filepath.Join(l.dir, entry.Name())}
		if existing, ok := bySale[saleNo]; ok {
			if strings.HasSuffix(existing.Name, ".csv") {
				continue
			}
		}
		bySale[saleNo] = sf
	}

	files := make([]SaleFile, 0, len(bySale))
	for _, sf := range bySale {
		files = append(files, sf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].SaleNo < files[j].SaleNo })
	return files, nil
}

// SaleFile identifies one catalogue file on disk.
type SaleFile struct {
	SaleNo int
	Name   string
	Path   string
}

// LoadAll parses every catalogue file in the data directory. Files are
// parsed concurrently; the combined result is deterministic regardless of
// completion order.
func (l *Loader) LoadAll(ctx context.Context) (*LoadResult, error) {
	files, err := l.ListSaleFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Sale_<N> catalogue files in %s", l.dir)
	}
	return l.loadFiles(ctx, files)
}

// LoadSale parses the catalogue file for a single sale number.
func (l *Loader) LoadSale(ctx context.Context, saleNo int) (*LoadResult, error) {
	files, err := l.ListSaleFiles()
	if err != nil {
		return nil, err
	}
	for _, sf := range files {
		if sf.SaleNo == saleNo {
			return l.loadFiles(ctx, []SaleFile{sf})
		}
	}
	return nil, fmt.Errorf("no catalogue file for sale %d in %s", saleNo, l.dir)
}

// LatestSaleNo returns the highest sale number present in the directory.
func (l *Loader) LatestSaleNo() (int, error) {
	files, err := l.ListSaleFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no Sale_<N> catalogue files in %s", l.dir)
	}
	return files[len(files)-1].SaleNo, nil
}

func (l *Loader) loadFiles(ctx context.Context, files []SaleFile) (*LoadResult, error) {
	type fileResult struct {
		lots    []domain.AuctionLot
		skipped []SkippedRow
	}

	results := make([]fileResult, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)

	for i, sf := range files {
		i, sf := i, sf
		g.Go(func() error {
			lots, skipped, err := l.loadFile(gctx, sf)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = fileResult{lots: lots, skipped: skipped}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &LoadResult{}
	for i, sf := range files {
		out.Files = append(out.Files, sf.Name)
		out.Lots = append(out.Lots, results[i].lots...)
		out.Skipped = append(out.Skipped, results[i].skipped...)
	}

	l.logger.InfoContext(ctx, "catalogue load complete",
		slog.Int("files", len(files)),
		slog.Int("lots", len(out.Lots)),
		slog.Int("skipped", len(out.Skipped)))
	return out, nil
}

func (l *Loader) loadFile(ctx context.Context, sf SaleFile) ([]domain.AuctionLot, []SkippedRow, error) {
	var rows [][]string
	var err error

	switch {
	case strings.HasSuffix(sf.Name, ".csv"):
		rows, err = readCSVRows(sf.Path)
	case strings.HasSuffix(sf.Name, ".xlsx"):
		rows, err = readExcelRows(sf.Path)
	default:
		return nil, nil, fmt.Errorf("unsupported catalogue format: %s", sf.Name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", sf.Name, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty catalogue file", sf.Name)
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", sf.Name, err)
	}

	var lots []domain.AuctionLot
	var skipped []SkippedRow
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		line := i + 2 // 1-based, after the header
		if isBlankRow(row) {
			continue
		}
		lot, err := parseRow(row, cols, sf.SaleNo)
		if err == nil {
			err = l.validator.Validate(lot)
		}
		if err != nil {
			skipped = append(skipped, SkippedRow{File: sf.Name, Line: line, Reason: err.Error()})
			l.logger.WarnContext(ctx, "skipping malformed row",
				slog.String("file", sf.Name),
				slog.Int("line", line),
				slog.String("reason", err.Error()))
			continue
		}
		lots = append(lots, lot)
	}

	return lots, skipped, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are handled per-row
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}

	// Strip a UTF-8 BOM exporters often prepend.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// columnMap maps logical fields to their column index in the file.
type columnMap struct {
	broker      int
	sellingMark int
	lotNo       int
	grade       int
	elevation   int
	category    int
	buyer       int
	price       int
	quantity    int
	status      int
}

// headerAliases maps normalized header names to logical fields. Brokers
// are not consistent about column naming, so common variants are accepted.
var headerAliases = map[string]string{
	"broker":        "broker",
	"selling mark":  "selling_mark",
	"mark":          "selling_mark",
	"lot no":        "lot_no",
	"lot number":    "lot_no",
	"lot":           "lot_no",
	"grade":         "grade",
	"sub elevation": "elevation",
	"elevation":     "elevation",
	"category":      "category",
	"buyer":         "buyer",
	"price":         "price",
	"price (lkr)":   "price",
	"total weight":  "quantity",
	"weight":        "quantity",
	"quantity":      "quantity",
	"quantity (kg)": "quantity",
	"status":        "status",
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(h))), " ")
}

func mapHeader(header []string) (*columnMap, error) {
	cols := &columnMap{
		broker: -1, sellingMark: -1, lotNo: -1, grade: -1, elevation: -1,
		category: -1, buyer: -1, price: -1, quantity: -1, status: -1,
	}
	for i, h := range header {
		switch headerAliases[normalizeHeader(h)] {
		case "broker":
			cols.broker = i
		case "selling_mark":
			cols.sellingMark = i
		case "lot_no":
			cols.lotNo = i
		case "grade":
			cols.grade = i
		case "elevation":
			cols.elevation = i
		case "category":
			cols.category = i
		case "buyer":
			cols.buyer = i
		case "price":
			cols.price = i
		case "quantity":
			cols.quantity = i
		case "status":
			cols.status = i
		}
	}

	var missing []string
	for _, req := range []struct {
		name string
		idx  int
	}{
		{"Broker", cols.broker},
		{"Grade", cols.grade},
		{"Price", cols.price},
		{"Total Weight", cols.quantity},
		{"Status", cols.status},
	} {
		if req.idx < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseRow(row []string, cols *columnMap, saleNo int) (domain.AuctionLot, error) {
	lot := domain.AuctionLot{
		SaleNo:      saleNo,
		LotNo:       cell(row, cols.lotNo),
		Broker:      cell(row, cols.broker),
		SellingMark: cell(row, cols.sellingMark),
		Grade:       cell(row, cols.grade),
		Elevation:   cell(row, cols.elevation),
		Category:    cell(row, cols.category),
		Buyer:       cell(row, cols.buyer),
	}

	status, ok := domain.ParseLotStatus(cell(row, cols.status))
	if !ok {
		return lot, fmt.Errorf("unknown status %q", cell(row, cols.status))
	}
	lot.Status = status

	var err error
	lot.Price, err = parseNumber(cell(row, cols.price))
	if err != nil {
		return lot, fmt.Errorf("invalid price: %w", err)
	}
	lot.Quantity, err = parseNumber(cell(row, cols.quantity))
	if err != nil {
		return lot, fmt.Errorf("invalid weight: %w", err)
	}

	return lot, nil
}

// parseNumber accepts values like "1,250.50" and "980". An empty cell
// parses as zero so that unsold lots without a price are accepted.
func parseNumber(s string) (float64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
