// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates file discovery, per-file conversion, and
// batch summary reporting.
// Implements: prd003-pipeline (R1-R6);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pdiddy/webpress/internal/codec"
	"github.com/pdiddy/webpress/internal/display"
	"github.com/pdiddy/webpress/internal/report"
	"github.com/pdiddy/webpress/internal/scan"
	"github.com/pdiddy/webpress/pkg/types"
)

// Converter transforms a single image into a WebP file. The production
// implementation is codec.WebPConverter.
type Converter interface {
	// Convert reads job.InputPath and writes the encoded result to
	// job.OutputPath.
	Convert(job types.Job) error
}

// History records completed runs. Implemented by history.Store; a nil
// History disables the ledger.
type History interface {
	RecordRun(ctx context.Context, rec types.RunRecord) error
}

// Runner executes a batch conversion. Files are processed strictly one at
// a time so progress output stays readable and the machine stays usable
// while a batch grinds through.
type Runner struct {
	// Fsys is the filesystem all reads and writes go through.
	Fsys afero.Fs

	// Conv converts individual files.
	Conv Converter

	// Console receives user-facing progress output.
	Console *display.Console

	// Log receives diagnostics. Use zerolog.Nop() to silence.
	Log zerolog.Logger

	// History receives the run record, or nil when history is disabled.
	History History

	// Version is stamped into report files.
	Version string

	// HEIFTool names the detected external HEIF decoder, or "" when HEIC
	// inputs cannot be converted.
	HEIFTool string
}

// Run converts every eligible image in cfg.InputDir. A missing input
// directory is fatal; everything that goes wrong with an individual file is
// contained to that file. The returned error is nil even when some files
// failed — callers inspect stats.HasFailures for that.
func (r *Runner) Run(ctx context.Context, cfg types.ConvertConfig) (types.RunStats, error) {
	var stats types.RunStats

	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	heifEnabled := r.HEIFTool != ""
	listing, err := scan.Discover(r.Fsys, cfg.InputDir, heifEnabled)
	if err != nil {
		return stats, err
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	logger := r.Log.With().Str("run_id", runID).Logger()

	r.Console.Header(cfg.InputDir, cfg.OutputDir, cfg.Quality, r.HEIFTool)

	stats.Found = len(listing.Files)
	stats.UnsupportedHEIC = len(listing.UnsupportedHEIC)

	if stats.UnsupportedHEIC > 0 {
		r.Console.UnsupportedHEIC(stats.UnsupportedHEIC)
		logger.Warn().Int("count", stats.UnsupportedHEIC).
			Msg("heic files present but no external decoder detected")
	}

	if stats.Found == 0 {
		r.Console.NothingToConvert(cfg.InputDir, scan.Extensions(heifEnabled))
		return stats, nil
	}

	// The output directory is only created once the input side checks out.
	if err := r.Fsys.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return stats, fmt.Errorf("creating output directory: %w", err)
	}

	r.Console.Found(stats.Found)
	logger.Info().Int("found", stats.Found).Str("input", cfg.InputDir).Msg("starting batch")

	results := make([]types.Result, 0, stats.Found)
	outputs := make(map[string]string, stats.Found)
	interrupted := false

	for i, path := range listing.Files {
		if ctx.Err() != nil {
			logger.Warn().Msg("interrupted")
			interrupted = true
			break
		}

		job := jobFor(path, cfg.OutputDir)
		if prev, ok := outputs[job.OutputPath]; ok {
			logger.Warn().Str("first", prev).Str("second", path).
				Msg("output name collision, later file overwrites earlier")
		}
		outputs[job.OutputPath] = path

		res := r.convertOne(i+1, stats.Found, job, logger)
		results = append(results, res)

		if res.Status == types.StatusConverted {
			stats.Converted++
			stats.TotalInputBytes += res.OriginalBytes
			stats.TotalOutputBytes += res.ConvertedBytes
		} else {
			stats.Failed++
		}
	}

	r.Console.Summary(stats, cfg.OutputDir)

	rec := types.RunRecord{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		InputDir:   cfg.InputDir,
		OutputDir:  cfg.OutputDir,
		Quality:    cfg.Quality,
		Stats:      stats,
		Results:    results,
	}

	// Ledger and report failures are logged, never fatal: the conversions
	// themselves already happened.
	if r.History != nil {
		if err := r.History.RecordRun(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("recording run history failed")
		}
	}
	if cfg.ReportPath != "" {
		if err := report.Write(r.Fsys, cfg.ReportPath, r.Version, rec); err != nil {
			logger.Warn().Err(err).Msg("writing run report failed")
		}
	}

	if interrupted {
		return stats, ctx.Err()
	}
	return stats, nil
}

// jobFor maps an input file to its output path: the base name keeps its
// stem and swaps the extension for .webp.
func jobFor(inputPath, outputDir string) types.Job {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return types.Job{
		InputPath:  inputPath,
		OutputPath: filepath.Join(outputDir, base+".webp"),
	}
}

// convertOne processes a single file and never lets its failure escape.
func (r *Runner) convertOne(index, total int, job types.Job, logger zerolog.Logger) types.Result {
	res := types.Result{Job: job}

	r.Console.Converting(index, total, filepath.Base(job.InputPath))
	logger.Debug().Str("input", job.InputPath).Str("output", job.OutputPath).Msg("converting")

	if fi, err := r.Fsys.Stat(job.InputPath); err == nil {
		res.OriginalBytes = fi.Size()
	}

	start := time.Now()
	err := r.Conv.Convert(job)
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = types.StatusFailed
		res.Err = err.Error()
		var cerr *codec.Error
		if errors.As(err, &cerr) {
			res.Stage = cerr.Stage
		}
		r.Console.Failed(res)
		logger.Error().Err(err).Str("input", job.InputPath).Msg("conversion failed")
		return res
	}

	res.Status = types.StatusConverted
	if fi, err := r.Fsys.Stat(job.OutputPath); err == nil {
		res.ConvertedBytes = fi.Size()
	}
	res.Checksum = r.checksum(job.OutputPath)

	r.Console.Converted(res)
	logger.Debug().
		Int64("original_bytes", res.OriginalBytes).
		Int64("converted_bytes", res.ConvertedBytes).
		Dur("took", res.Duration).
		Str("input", job.InputPath).
		Msg("converted")
	return res
}

// checksum hashes a written output for the history ledger. Returns 0 when
// the file cannot be read; the ledger column is simply left empty.
func (r *Runner) checksum(path string) uint64 {
	f, err := r.Fsys.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0
	}
	return h.Sum64()
}
