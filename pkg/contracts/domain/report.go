package domain

import "time"

// ReportFormat defines the output format of a generated report.
type ReportFormat string

const (
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatExcel ReportFormat = "xlsx"
)

// ParseReportFormat validates a format query parameter.
func ParseReportFormat(raw string) (ReportFormat, bool) {
	switch ReportFormat(raw) {
	case ReportFormatPDF, ReportFormatCSV, ReportFormatExcel:
		return ReportFormat(raw), true
	case "":
		return ReportFormatPDF, true
	}
	return "", false
}

// ContentType returns the MIME type for HTTP downloads.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	case ReportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Report describes one generated report artifact. Descriptors live in
// memory for the session; the bytes themselves are streamed to the caller.
type Report struct {
	ID          string       `json:"id"`
	Broker      string       `json:"broker,omitempty"`
	SaleNo      int          `json:"sale_no"`
	Format      ReportFormat `json:"format"`
	SizeBytes   int64        `json:"size_bytes"`
	RecordCount int          `json:"record_count"`
	GeneratedAt time.Time    `json:"generated_at"`
}
