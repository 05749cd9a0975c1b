// Package exporter renders aggregated auction summaries and raw lot
// records into CSV and Excel documents.
package exporter
