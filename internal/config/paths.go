package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations the application touches.
// This is the single source of truth for ALL file paths.
type Paths struct {
	BaseDir      string
	OutputDir    string
	UploadDir    string
	LogsDir      string
	DatabaseFile string
}

// NewPaths resolves the configured locations. Relative entries resolve
// against BaseDir; an empty BaseDir falls back to the executable directory,
// never the current working directory, so the layout stays stable no matter
// where the process is launched from.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable path: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("resolve executable symlinks: %w", err)
		}
		base = filepath.Dir(exe)
	}

	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:      base,
		OutputDir:    resolve(cfg.OutputDir, DefaultOutputDir),
		UploadDir:    resolve(cfg.UploadDir, DefaultUploadDir),
		LogsDir:      resolve(cfg.LogsDir, DefaultLogsDir),
		DatabaseFile: resolve(cfg.DatabaseFile, DefaultDatabaseFile),
	}, nil
}

// EnsureDirectories creates all directories the application writes into.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.OutputDir,
		p.UploadDir,
		p.LogsDir,
		filepath.Dir(p.DatabaseFile),
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OutputPath returns the path for a generated output file.
func (p *Paths) OutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// UploadPath returns the path for a staged upload.
func (p *Paths) UploadPath(filename string) string {
	return filepath.Join(p.UploadDir, filename)
}

// LogPath returns the path for a log file.
func (p *Paths) LogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved locations for debugging.
func (p *Paths) LogPathResolution() {
	slog.Default().Info("path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("output", p.OutputDir),
			slog.String("uploads", p.UploadDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("database", p.DatabaseFile),
	)
}
