package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/webpress/internal/codec"
	"github.com/pdiddy/webpress/internal/scan"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report supported formats and HEIF decoder availability",
	Long: `Check reports which image formats this build converts out of the box and
whether an external HEIF decoder is installed for heic/heif inputs.
Informational only; it changes nothing on disk.`,
	Run: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) {
	fmt.Printf("Built-in formats: %s\n", strings.Join(scan.Extensions(false), ", "))

	dec, err := codec.DetectHEIFDecoder()
	if err != nil {
		fmt.Println("HEIF decoder:     none found")
		fmt.Println("Install heif-convert (libheif) or ImageMagick to convert HEIC files.")
		return
	}

	toolVersion := dec.Version()
	if toolVersion == "" {
		toolVersion = "version unknown"
	}
	fmt.Printf("HEIF decoder:     %s (%s)\n", dec.Name(), toolVersion)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
