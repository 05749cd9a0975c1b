package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TEAPULSE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "sales_data", cfg.Paths.DataDir)
	assert.Equal(t, "LKR", cfg.Report.Currency)
	assert.InDelta(t, 85.0, cfg.Report.ExcellentPct, 1e-9)
	assert.InDelta(t, 70.0, cfg.Report.GoodPct, 1e-9)
	assert.InDelta(t, 50.0, cfg.Report.AveragePct, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "teapulse.yaml")
	yaml := `
server:
  port: 9090
paths:
  data_dir: /srv/auction/sales
report:
  currency: USD
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o644))
	t.Setenv("TEAPULSE_CONFIG", configPath)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/auction/sales", cfg.Paths.DataDir)
	assert.Equal(t, "USD", cfg.Report.Currency)
	// Untouched fields keep defaults.
	assert.Equal(t, "reports", cfg.Paths.ReportsDir)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "teapulse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("TEAPULSE_CONFIG", configPath)
	t.Setenv("TEAPULSE_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "teapulse.yaml")
	yaml := `
report:
  excellent_pct: 50
  good_pct: 70
  average_pct: 85
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o644))
	t.Setenv("TEAPULSE_CONFIG", configPath)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestResolvePaths(t *testing.T) {
	paths, err := ResolvePaths(PathsConfig{
		DataDir:    "/abs/data",
		ReportsDir: "reports",
		LogsDir:    "logs",
	})
	require.NoError(t, err)

	assert.Equal(t, "/abs/data", paths.DataDir)
	assert.True(t, filepath.IsAbs(paths.ReportsDir))
	assert.Equal(t, filepath.Join(paths.ReportsDir, "r.pdf"), paths.ReportPath("r.pdf"))
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	paths := &Paths{
		BaseDir:    dir,
		DataDir:    filepath.Join(dir, "sales_data"),
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, DirExists(paths.ReportsDir))
	assert.True(t, DirExists(paths.LogsDir))
	// Data dir is deliberately left alone.
	assert.False(t, DirExists(paths.DataDir))
}
