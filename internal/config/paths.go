package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved absolute directory layout of the application.
// All file access goes through this struct so that relative paths resolve
// consistently regardless of the working directory.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// ResolvePaths builds the absolute path layout from the configured
// directories. Relative directories are anchored at the executable's
// directory, falling back to the working directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base, err := baseDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine base directory: %w", err)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(base, cfg.DataDir),
		ReportsDir: resolve(base, cfg.ReportsDir),
		LogsDir:    resolve(base, cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates the reports and logs directories. The data
// directory is not created: missing sale data is a condition the health
// check reports, not one to mask.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the absolute path for a report artifact file.
func (p *Paths) ReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// DataPath returns the absolute path for a file inside the sales data dir.
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir, name)
}

func resolve(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

func baseDir() (string, error) {
	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil {
			return filepath.Dir(resolved), nil
		}
		return filepath.Dir(exe), nil
	}
	return os.Getwd()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
