package types

import (
	"fmt"
	"path/filepath"
)

// Defaults for the conversion run. The directory names match the tool this
// replaces, which processed photos dropped into a folder next to the binary.
const (
	DefaultInputDir  = "do przerobienia"
	DefaultOutputDir = "przerobione"
	DefaultQuality   = 85
)

// historyDirName is the dot-directory created inside the output directory
// for run-ledger state.
const historyDirName = ".webpress"

// ConvertConfig holds settings for one batch conversion run.
type ConvertConfig struct {
	// InputDir is the directory scanned for images. It must exist; a missing
	// input directory aborts the run before anything is touched.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives one .webp file per converted input. Created if absent.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Quality is the lossy WebP quality, 1-100 (default 85).
	Quality int `json:"quality" yaml:"quality"`

	// ReportPath, when non-empty, is where the YAML run report is written.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// History configures the SQLite run ledger.
	History HistoryConfig `json:"history" yaml:"history"`
}

// HistoryConfig holds settings for the run ledger. The ledger records what a
// run did; the conversion path never reads it.
type HistoryConfig struct {
	// Enabled controls whether runs are recorded at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database location. Empty means
	// <output dir>/.webpress/history.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// HistoryPath returns the effective ledger location for this run.
func (c ConvertConfig) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.OutputDir, historyDirName, "history.db")
}

// Validate checks directory fields and the quality range.
func (c ConvertConfig) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range (use 1-100)", c.Quality)
	}
	return nil
}
