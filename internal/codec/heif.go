// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Implements: prd002-conversion R4.1-R4.6 (external HEIF decoder strategy);
//
//	docs/ARCHITECTURE § Conversion.

package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	binHeifConvert = "heif-convert"
	binMagick      = "magick"
)

// HEIFDecoder decodes HEIF/HEIC photos by shelling out to an external tool.
// Input paths must exist on the real filesystem; the tool runs as a separate
// process and cannot see an in-memory one.
type HEIFDecoder interface {
	// Name returns the tool name ("heif-convert" or "magick").
	Name() string

	// Version returns the tool's version line for diagnostics, or "" when
	// the probe fails.
	Version() string

	// Decode converts the file at path to an in-memory image.
	Decode(path string) (image.Image, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	return cmd.Run()
}

// heifTool implements HEIFDecoder for a specific external binary. Both
// heif-convert and ImageMagick take the same "<bin> <input> <output.png>"
// invocation; they differ only in binary name and version probe.
type heifTool struct {
	bin       string
	probeArgs []string // e.g. ["-version"] for magick
	exec      executor
}

func (t *heifTool) Name() string { return t.bin }

// available reports whether the binary exists on PATH and responds to its
// version probe.
func (t *heifTool) available() bool {
	if _, err := t.exec.LookPath(t.bin); err != nil {
		return false
	}
	return t.exec.RunSilent(t.bin, t.probeArgs...) == nil
}

func (t *heifTool) Version() string {
	var out bytes.Buffer
	if err := t.exec.RunPiped(t.bin, t.probeArgs, nil, &out); err != nil {
		return ""
	}
	line, _, _ := strings.Cut(out.String(), "\n")
	return strings.TrimSpace(line)
}

// Decode runs the tool to produce a temporary PNG and decodes that. The
// temporary file is removed before returning.
func (t *heifTool) Decode(path string) (image.Image, error) {
	tmp, err := os.CreateTemp("", "webpress-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := t.exec.RunSilent(t.bin, path, tmpPath); err != nil {
		return nil, fmt.Errorf("running %s on %s: %w", t.bin, filepath.Base(path), err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s output: %w", t.bin, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s output: %w", t.bin, err)
	}
	return img, nil
}

func newHeifConvertTool(exec executor) *heifTool {
	return &heifTool{
		bin:       binHeifConvert,
		probeArgs: []string{"-v"},
		exec:      exec,
	}
}

func newMagickTool(exec executor) *heifTool {
	return &heifTool{
		bin:       binMagick,
		probeArgs: []string{"-version"},
		exec:      exec,
	}
}

var defaultExec = &osExecutor{}

// DetectHEIFDecoder tries heif-convert first, falls back to ImageMagick.
// Returns an error if neither tool is available; callers then run without
// HEIF support rather than aborting.
func DetectHEIFDecoder() (HEIFDecoder, error) {
	return detectHEIFDecoder(defaultExec)
}

func detectHEIFDecoder(exec executor) (HEIFDecoder, error) {
	convert := newHeifConvertTool(exec)
	if convert.available() {
		return convert, nil
	}

	magick := newMagickTool(exec)
	if magick.available() {
		return magick, nil
	}

	return nil, fmt.Errorf(
		"no HEIF decoder available: neither %s nor %s found or operational",
		binHeifConvert, binMagick,
	)
}
