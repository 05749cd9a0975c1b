// Package services contains the application services sitting between the
// HTTP transport and the auction domain: catalogue data access, report
// generation and health reporting.
package services
