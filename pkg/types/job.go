// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the webpress conversion
// pipeline: jobs, per-file results, and the configuration blocks consumed by
// the CLI, the run ledger, and the report writer.
package types

import "time"

// Status indicates the outcome of one conversion job.
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
)

// Stage identifies where in the per-file transform a failure occurred.
type Stage string

const (
	StageDecode Stage = "decode"
	StageEncode Stage = "encode"
	StageWrite  Stage = "write"
)

// Job pairs one discovered input file with its derived output path
// (same base name, .webp extension). Jobs are created per input file,
// consumed once, and never retried.
type Job struct {
	// InputPath is the path of the source image inside the input directory.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the destination path: output directory, source base name,
	// .webp extension. An existing file at this path is overwritten.
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// Result is the outcome of one Job. Exactly one Result exists per
// discovered input file; failed results carry the stage and error text,
// successful ones the output size and checksum.
type Result struct {
	Job Job `json:"job" yaml:"job"`

	// Status is "converted" or "failed".
	Status Status `json:"status" yaml:"status"`

	// OriginalBytes is the size of the input file.
	OriginalBytes int64 `json:"original_bytes" yaml:"original_bytes"`

	// ConvertedBytes is the size of the written WebP file (0 on failure).
	ConvertedBytes int64 `json:"converted_bytes" yaml:"converted_bytes"`

	// Checksum is the xxhash64 of the written output file (0 on failure).
	Checksum uint64 `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Duration is the wall time spent on this job.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Stage records the failing stage (decode, encode, write) when Status
	// is "failed".
	Stage Stage `json:"stage,omitempty" yaml:"stage,omitempty"`

	// Err is the error text when Status is "failed".
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SavedPercent returns the size reduction of this job as a percentage of the
// original size. Zero-size originals and failed jobs report 0.
func (r Result) SavedPercent() float64 {
	if r.Status != StatusConverted || r.OriginalBytes <= 0 {
		return 0
	}
	return float64(r.OriginalBytes-r.ConvertedBytes) / float64(r.OriginalBytes) * 100
}
