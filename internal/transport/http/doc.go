// Package http wires the application services to the chi router: JSON data
// endpoints for the dashboard, report downloads, and health.
package http
