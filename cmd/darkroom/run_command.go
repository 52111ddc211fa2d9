package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/deps"
	"darkroom/internal/dng"
	"darkroom/internal/exif"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/pipeline"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		directory   string
		compression string
		preview     bool
		logToFile   bool
		quiet       bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run [directory]",
		Short: "Organize a shoot directory and convert its RAW files",
		Long: `Run classifies every file in the target directory by its capture
metadata, moves files into per-camera bucket directories with sequential
names, and converts RAW buckets to DNG. The directory must be named
YYYYMMDD_<project> or YYYYMMDD-YYYYMMDD_<project>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(directory)
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return errors.New("a target directory is required (positional argument or --directory)")
			}

			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dng-compression") {
				cfg.Conversion.Compression = compression
			}
			if cmd.Flags().Changed("dng-preview") {
				cfg.Conversion.EmbedPreview = preview
			}
			if quiet {
				cfg.Logging.Level = "error"
			} else if verbose {
				cfg.Logging.Level = "debug"
			}

			logger, err := logging.NewFromConfig(cfg, logToFile)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			store, err := journal.Open(cfg)
			if err != nil {
				logger.Warn("journal unavailable, run will not be recorded", logging.Error(err))
				store = nil
			} else {
				defer store.Close()
			}

			provider := exif.NewCLI(exif.WithBinary(cfg.Metadata.ExiftoolBinary))
			var converter dng.Converter = dng.NewCLI(
				dng.WithBinary(cfg.Conversion.DNGLabBinary),
				dng.WithCompression(cfg.Conversion.Compression),
				dng.WithEmbeddedPreview(cfg.Conversion.EmbedPreview),
			)
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if status.Available {
					continue
				}
				if !status.Optional {
					return fmt.Errorf("%s is required: %s (run `darkroom deps`)", status.Name, status.Detail)
				}
				logger.Warn("optional tool missing, RAW conversion disabled",
					logging.String("tool", status.Name),
					logging.String("detail", status.Detail),
					logging.Alert("converter_missing"))
				converter = nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(cfg, provider, converter, store, logger)
			summary, err := p.Run(ctx, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d files in %s: %d renamed, %d converted",
				summary.FilesTotal, summary.Elapsed.Round(time.Millisecond), summary.Renamed, summary.Converted)
			if failed := summary.RenameFailed + summary.ConversionFailed; failed > 0 {
				fmt.Fprintf(out, ", %d failed", failed)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "d", "", "Target directory to process")
	cmd.Flags().StringVar(&compression, "dng-compression", "", "DNG compression (lossless or uncompressed)")
	cmd.Flags().BoolVar(&preview, "dng-preview", false, "Embed a JPEG preview in converted DNG files")
	cmd.Flags().BoolVarP(&logToFile, "log-file", "l", false, "Also write logs to the configured log directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	return cmd
}
