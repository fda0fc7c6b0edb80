// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec decodes raster images and re-encodes them as lossy WebP.
// Implements: prd002-conversion (R1-R3);
//
//	docs/ARCHITECTURE § Conversion.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/webpress/pkg/types"
)

// Error reports which pipeline stage failed for a single file. The batch
// loop records the stage alongside the failure so the summary can say
// whether a file was unreadable, unencodable, or unwritable.
type Error struct {
	Stage types.Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, filepath.Base(e.Path), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WebPConverter converts single images to WebP files. It reads and writes
// through an afero filesystem so batch tests can run entirely in memory.
// HEIF/HEIC inputs are delegated to an external decoder when one was
// detected; with a nil decoder such inputs fail at the decode stage.
type WebPConverter struct {
	fsys    afero.Fs
	quality int
	heif    HEIFDecoder
}

// NewWebPConverter creates a converter that encodes at the given lossy
// quality (1-100). heif may be nil when no external HEIF tool is available.
func NewWebPConverter(fsys afero.Fs, quality int, heif HEIFDecoder) *WebPConverter {
	return &WebPConverter{fsys: fsys, quality: quality, heif: heif}
}

// Convert decodes the image at job.InputPath and writes it as lossy WebP to
// job.OutputPath. An existing output file is overwritten. All failures are
// returned as *Error carrying the stage that failed.
func (c *WebPConverter) Convert(job types.Job) error {
	data, err := afero.ReadFile(c.fsys, job.InputPath)
	if err != nil {
		return &Error{Stage: types.StageDecode, Path: job.InputPath, Err: fmt.Errorf("reading input: %w", err)}
	}

	img, err := c.decode(job.InputPath, data)
	if err != nil {
		return &Error{Stage: types.StageDecode, Path: job.InputPath, Err: err}
	}

	// Encode to memory first so a failed encode never leaves a partial
	// file in the output directory.
	var buf bytes.Buffer
	if err := encodeWebP(&buf, img, c.quality); err != nil {
		return &Error{Stage: types.StageEncode, Path: job.InputPath, Err: err}
	}

	if err := afero.WriteFile(c.fsys, job.OutputPath, buf.Bytes(), 0o644); err != nil {
		return &Error{Stage: types.StageWrite, Path: job.OutputPath, Err: fmt.Errorf("writing output: %w", err)}
	}
	return nil
}

// decode picks the decoder by sniffing content, not by extension. A HEIC
// photo renamed to .jpg still routes to the external decoder.
func (c *WebPConverter) decode(path string, data []byte) (image.Image, error) {
	if isHEIF(data) {
		if c.heif == nil {
			return nil, errors.New("HEIF content requires an external decoder (heif-convert or magick)")
		}
		return c.heif.Decode(path)
	}
	img, _, err := decodeImage(data)
	return img, err
}
