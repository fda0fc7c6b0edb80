// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the webpress CLI.
// Implements: prd001-scanning, prd002-conversion, prd003-pipeline,
//             prd004-history, prd005-reporting, prd006-cli (CLI surface).
// See docs/ARCHITECTURE § CLI Surface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the webpress CLI.
var rootCmd = &cobra.Command{
	Use:   "webpress",
	Short: "Batch image to WebP converter",
	Long: `webpress converts a folder of images into lossy WebP files, one output per
input, and reports how much space the batch saved.

Drop images into the input folder, run webpress convert, and collect the
results from the output folder. Files are processed one at a time; a file
that cannot be converted is reported and skipped without stopping the run.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./webpress.yaml or ~/.config/webpress/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("webpress")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "webpress"))
		}
	}

	viper.SetEnvPrefix("WEBPRESS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
