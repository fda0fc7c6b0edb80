// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes machine-readable YAML run reports.
// Implements: prd005-reporting (R3, R4);
//
//	docs/ARCHITECTURE § Reporting.
package report

import (
	"fmt"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/webpress/pkg/types"
)

// toolName identifies the producer in report files.
const toolName = "webpress"

// RunReport is the on-disk representation of a completed batch run. It
// carries everything the console printed, so downstream tooling never has
// to scrape terminal output.
type RunReport struct {
	Tool    string          `yaml:"tool"`
	Version string          `yaml:"version,omitempty"`
	Run     types.RunRecord `yaml:"run"`
}

// Write saves the report for a completed run to path as YAML.
func Write(fsys afero.Fs, path, version string, rec types.RunRecord) error {
	rep := RunReport{
		Tool:    toolName,
		Version: version,
		Run:     rec,
	}

	data, err := yaml.Marshal(&rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Read loads a previously written run report.
func Read(fsys afero.Fs, path string) (*RunReport, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var rep RunReport
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &rep, nil
}
