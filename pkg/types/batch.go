// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStats aggregates counters and byte totals across a batch run. Byte
// totals cover successfully converted files only; a failed file contributes
// to Failed but not to the size accounting.
type RunStats struct {
	// Found is the number of convertible images discovered in the input
	// directory.
	Found int `json:"found" yaml:"found"`

	// UnsupportedHEIC is the number of HEIC/HEIF files set aside because
	// no external decoder was available.
	UnsupportedHEIC int `json:"unsupported_heic,omitempty" yaml:"unsupported_heic,omitempty"`

	// Converted counts files that produced a WebP output.
	Converted int `json:"converted" yaml:"converted"`

	// Failed counts files whose conversion failed at any stage.
	Failed int `json:"failed" yaml:"failed"`

	// TotalInputBytes sums the sizes of successfully converted inputs.
	TotalInputBytes int64 `json:"total_input_bytes" yaml:"total_input_bytes"`

	// TotalOutputBytes sums the sizes of the written WebP files.
	TotalOutputBytes int64 `json:"total_output_bytes" yaml:"total_output_bytes"`
}

// Total returns the number of files processed.
func (s RunStats) Total() int {
	return s.Converted + s.Failed
}

// HasFailures reports whether any files failed conversion.
func (s RunStats) HasFailures() bool {
	return s.Failed > 0
}

// SpaceSaved returns the aggregate byte difference between inputs and
// outputs. Positive means the outputs are smaller.
func (s RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

// SavedPercent returns SpaceSaved as a percentage of the input size, or 0
// when nothing was converted.
func (s RunStats) SavedPercent() float64 {
	if s.TotalInputBytes == 0 {
		return 0
	}
	return float64(s.SpaceSaved()) / float64(s.TotalInputBytes) * 100
}

// RunRecord captures one batch run for the history ledger and run reports.
type RunRecord struct {
	// ID is the run identifier (a UUID assigned at run start).
	ID string `json:"id" yaml:"id"`

	// StartedAt and FinishedAt bound the run in UTC.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// InputDir and OutputDir are the directories the run operated on.
	InputDir  string `json:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Quality is the lossy encoder quality used for the run.
	Quality int `json:"quality" yaml:"quality"`

	// Stats holds the aggregate counters for the run.
	Stats RunStats `json:"stats" yaml:"stats"`

	// Results holds the per-file outcomes in processing order.
	Results []Result `json:"results,omitempty" yaml:"results,omitempty"`
}
