// Package config loads and validates application configuration from an
// optional YAML file layered under TEAPULSE_* environment variables, and
// provides the resolved filesystem path layout used by every component
// that touches disk.
package config
