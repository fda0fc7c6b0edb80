package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/webpress/internal/codec"
	"github.com/pdiddy/webpress/internal/display"
	"github.com/pdiddy/webpress/internal/history"
	"github.com/pdiddy/webpress/internal/logging"
	"github.com/pdiddy/webpress/internal/pipeline"
	"github.com/pdiddy/webpress/internal/scan"
	"github.com/pdiddy/webpress/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert every image in the input folder to WebP",
	Long: `Convert scans the input folder (flat, no recursion) for images and
re-encodes each one as lossy WebP into the output folder. Supported input
formats: jpg, jpeg, png, bmp, gif, tiff, tif, plus heic/heif when an
external decoder (heif-convert or ImageMagick) is installed.

Output files keep the input base name with a .webp extension; existing
output files are overwritten. A file that fails to convert is reported and
skipped; the run continues and still exits 0.`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.Init(verbose)

	cfg := convertConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The ledger defaults to a path inside the output directory, so a
	// missing input directory has to fail here, before Open creates it.
	fsys := afero.NewOsFs()
	ok, err := afero.DirExists(fsys, cfg.InputDir)
	if err != nil {
		return fmt.Errorf("checking input directory %s: %w", cfg.InputDir, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", scan.ErrMissingInputDir, cfg.InputDir)
	}

	var heifDec codec.HEIFDecoder
	heifName := ""
	if dec, err := codec.DetectHEIFDecoder(); err == nil {
		heifDec = dec
		heifName = dec.Name()
	} else {
		logger.Debug().Err(err).Msg("no HEIF decoder detected")
	}

	var hist pipeline.History
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()
		hist = store
	}

	// Stop between files on SIGINT/SIGTERM; the current file finishes first.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn().Msg("received interrupt, finishing current file")
		cancel()
	}()

	runner := &pipeline.Runner{
		Fsys:     fsys,
		Conv:     codec.NewWebPConverter(fsys, cfg.Quality, heifDec),
		Console:  display.NewConsole(os.Stdout),
		Log:      logger,
		History:  hist,
		Version:  version,
		HEIFTool: heifName,
	}

	if _, err := runner.Run(ctx, cfg); err != nil {
		return err
	}

	// Per-file failures show up in the summary but leave the exit status
	// alone. Only startup failures are fatal.
	return nil
}

// convertConfig merges flags, environment, and the optional config file.
// Flags win, then WEBPRESS_* environment variables, then webpress.yaml.
func convertConfig(cmd *cobra.Command) types.ConvertConfig {
	cfg := types.ConvertConfig{
		InputDir:   viper.GetString("input_dir"),
		OutputDir:  viper.GetString("output_dir"),
		Quality:    viper.GetInt("quality"),
		ReportPath: viper.GetString("report_path"),
	}

	cfg.History.Enabled = true
	if viper.IsSet("history.enabled") {
		cfg.History.Enabled = viper.GetBool("history.enabled")
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	cfg.History.Path = viper.GetString("history.path")

	return cfg
}

func init() {
	convertCmd.Flags().String("input", types.DefaultInputDir, "folder scanned for images")
	convertCmd.Flags().String("output", types.DefaultOutputDir, "folder receiving .webp files")
	convertCmd.Flags().Int("quality", types.DefaultQuality, "lossy WebP quality, 1-100")
	convertCmd.Flags().String("report", "", "write a YAML run report to this path")
	convertCmd.Flags().Bool("no-history", false, "do not record the run in the history ledger")
	convertCmd.Flags().String("history", "", "history ledger location (default <output>/.webpress/history.db)")
	convertCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("input_dir", convertCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("output_dir", convertCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("quality", convertCmd.Flags().Lookup("quality"))
	_ = viper.BindPFlag("report_path", convertCmd.Flags().Lookup("report"))
	_ = viper.BindPFlag("history.path", convertCmd.Flags().Lookup("history"))

	rootCmd.AddCommand(convertCmd)
}
