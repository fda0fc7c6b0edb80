// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package display renders user-facing batch progress on stdout.
// Implements: prd005-reporting (R1, R2);
//
//	docs/ARCHITECTURE § Console Output.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/webpress/pkg/types"
)

// bannerWidth is the width of the separator lines framing the header and
// summary blocks.
const bannerWidth = 50

// Console writes human-readable progress for a batch run. Per-file lines
// come in two halves: Converting opens the line before the (possibly slow)
// conversion, Converted or Failed completes it.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) banner(title string) {
	sep := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(c.w, bannerStyle.Render(sep))
	fmt.Fprintln(c.w, bannerStyle.Render(title))
	fmt.Fprintln(c.w, bannerStyle.Render(sep))
}

// Header prints the run banner with the resolved directories and encoder
// settings. heifTool names the external HEIF decoder, or "" when none was
// detected.
func (c *Console) Header(inputDir, outputDir string, quality int, heifTool string) {
	c.banner("Image to WebP converter")
	fmt.Fprintf(c.w, "Input folder:  %s\n", pathStyle.Render(inputDir))
	fmt.Fprintf(c.w, "Output folder: %s\n", pathStyle.Render(outputDir))
	fmt.Fprintf(c.w, "Quality: %d (lossy WebP)\n", quality)
	if heifTool != "" {
		fmt.Fprintf(c.w, "HEIF support: %s\n", heifTool)
	}
}

// NothingToConvert prints the empty-input notice with the accepted
// extensions so users know what the scanner was looking for.
func (c *Console) NothingToConvert(dir string, formats []string) {
	fmt.Fprintf(c.w, "\n%s\n", warnStyle.Render(fmt.Sprintf("No images to convert in '%s'", dir)))
	fmt.Fprintf(c.w, "Supported formats: %s\n", strings.Join(formats, ", "))
}

// UnsupportedHEIC warns that HEIC files were found but cannot be converted.
func (c *Console) UnsupportedHEIC(count int) {
	noun := "files"
	if count == 1 {
		noun = "file"
	}
	fmt.Fprintf(c.w, "\n%s\n", warnStyle.Render(
		fmt.Sprintf("Found %d HEIC %s but no decoder is available.", count, noun)))
	fmt.Fprintln(c.w, "Install heif-convert (libheif) or ImageMagick to convert them.")
}

// Found announces how many images the scan picked up.
func (c *Console) Found(count int) {
	fmt.Fprintf(c.w, "\nFound %d images to convert\n\n", count)
}

// Converting opens a per-file progress line. The line stays unterminated
// until Converted or Failed completes it.
func (c *Console) Converting(index, total int, name string) {
	fmt.Fprintf(c.w, "%s Converting: %s", indexStyle.Render(fmt.Sprintf("[%d/%d]", index, total)), name)
}

// Converted completes a progress line with the size change.
func (c *Console) Converted(res types.Result) {
	pct := res.SavedPercent()
	sign := "-"
	if pct < 0 {
		sign, pct = "+", -pct
	}
	fmt.Fprintf(c.w, " %s\n", successStyle.Render(fmt.Sprintf("ok (%s -> %s, %s%.1f%%)",
		FormatBytes(res.OriginalBytes), FormatBytes(res.ConvertedBytes), sign, pct)))
}

// Failed completes a progress line with the failure reason.
func (c *Console) Failed(res types.Result) {
	fmt.Fprintf(c.w, " %s\n", failureStyle.Render(fmt.Sprintf("failed (%s)", res.Err)))
}

// Summary prints the aggregate block after the batch loop.
func (c *Console) Summary(stats types.RunStats, outputDir string) {
	fmt.Fprintln(c.w)
	c.banner("Summary")
	fmt.Fprintf(c.w, "Converted: %d/%d files\n", stats.Converted, stats.Total())
	if stats.Failed > 0 {
		fmt.Fprintf(c.w, "%s\n", failureStyle.Render(
			fmt.Sprintf("Failed:    %d (see messages above)", stats.Failed)))
	}
	fmt.Fprintf(c.w, "Input size:  %s\n", FormatBytes(stats.TotalInputBytes))
	fmt.Fprintf(c.w, "Output size: %s\n", FormatBytes(stats.TotalOutputBytes))

	if saved := stats.SpaceSaved(); saved >= 0 {
		fmt.Fprintf(c.w, "%s\n", successStyle.Render(fmt.Sprintf("Space saved: %s (%.1f%%)",
			FormatBytes(saved), stats.SavedPercent())))
	} else {
		fmt.Fprintf(c.w, "%s\n", warnStyle.Render(fmt.Sprintf("Space saved: none (output grew by %s)",
			FormatBytes(-saved))))
	}

	fmt.Fprintf(c.w, "\nFiles written to: %s\n", pathStyle.Render(outputDir))
}
