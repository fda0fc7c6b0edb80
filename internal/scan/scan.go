// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan enumerates convertible images in the input directory.
// The scan is flat: photos are dropped straight into the folder, so
// subdirectories are ignored rather than walked.
// Implements: prd001-scanning (R1-R4);
//
//	docs/ARCHITECTURE § Scanning.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrMissingInputDir is returned when the input directory does not exist.
// This is the only fatal scan condition; callers abort before touching
// the output directory.
var ErrMissingInputDir = errors.New("input directory does not exist")

// imageExtensions are always convertible (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
}

// heifExtensions are convertible only when an external HEIF decoder was
// found at startup.
var heifExtensions = map[string]bool{
	".heic": true,
	".heif": true,
}

// Listing is the outcome of one input-directory scan.
type Listing struct {
	// Files are the convertible inputs, full paths in filename order.
	Files []string

	// UnsupportedHEIC are .heic/.heif entries present while HEIF support is
	// off. They are not converted and not failures; the pipeline warns once.
	UnsupportedHEIC []string
}

// Discover lists the input directory and buckets entries by extension,
// case-insensitively. Entries that match no supported extension are skipped
// silently. When heifEnabled is true, .heic/.heif files join Files;
// otherwise they land in UnsupportedHEIC.
func Discover(fsys afero.Fs, dir string, heifEnabled bool) (Listing, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, fmt.Errorf("%w: %s", ErrMissingInputDir, dir)
		}
		return Listing{}, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var l Listing
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		path := filepath.Join(dir, info.Name())
		switch {
		case imageExtensions[ext]:
			l.Files = append(l.Files, path)
		case heifExtensions[ext] && heifEnabled:
			l.Files = append(l.Files, path)
		case heifExtensions[ext]:
			l.UnsupportedHEIC = append(l.UnsupportedHEIC, path)
		}
	}

	// afero.ReadDir returns entries sorted by name, so both buckets are
	// already deterministic; the sort keeps that guarantee explicit.
	sort.Strings(l.Files)
	sort.Strings(l.UnsupportedHEIC)
	return l, nil
}

// Extensions returns the supported extension list for display, sorted,
// with leading dots.
func Extensions(heifEnabled bool) []string {
	exts := make([]string, 0, len(imageExtensions)+len(heifExtensions))
	for e := range imageExtensions {
		exts = append(exts, e)
	}
	if heifEnabled {
		for e := range heifExtensions {
			exts = append(exts, e)
		}
	}
	sort.Strings(exts)
	return exts
}
