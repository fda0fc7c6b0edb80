//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and runs a batch conversion with default settings.
// See prd003-pipeline for full requirements.
func Convert() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "convert")
}
