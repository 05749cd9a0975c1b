// Package dataprocessing loads auction catalogue files from the sales data
// directory and turns them into validated lot records.
//
// A catalogue file is named Sale_<N>.csv or Sale_<N>.xlsx where <N> is the
// auction sale number. Files are parsed with a header-driven column mapping,
// so column order does not matter. Malformed rows are never fatal: each one
// is skipped, counted, and reported with its file, line and reason.
package dataprocessing
