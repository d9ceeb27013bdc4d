package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"srpack/internal/history"
	"srpack/internal/workflow"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		models     []string
		modelDir   string
		outputPath string
		cnWakeWord string
		enWakeWord string
		threshold  float64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an asset bundle from esp-sr models",
		Long: `Build stages the requested multinet models, packs them into a model
container, generates the runtime manifest, and writes the final asset bundle.
Flags override the corresponding [assets] configuration values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dir := strings.TrimSpace(modelDir); dir != "" {
				cfg.Paths.ModelDir = dir
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			var store *history.Store
			if cfg.History.Enabled {
				store, err = history.Open(cfg.HistoryDBPath())
				if err != nil {
					logger.Warn("build history unavailable", "error", err)
					store = nil
				} else {
					defer store.Close()
				}
			}

			req := workflow.Request{
				ModelNames: models,
				OutputPath: outputPath,
				CNWakeWord: cnWakeWord,
				ENWakeWord: enWakeWord,
			}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			result, err := workflow.New(cfg, logger, store).Build(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", result.OutputPath)
			fmt.Fprintf(out, "  size       %s\n", formatBytes(result.Size))
			fmt.Fprintf(out, "  checksum   0x%04x\n", result.Checksum)
			fmt.Fprintf(out, "  files      %d\n", result.TotalFiles)
			fmt.Fprintf(out, "  models     %s\n", strings.Join(result.Models, ", "))
			fmt.Fprintf(out, "  languages  %s\n", languageList(result.Languages))
			fmt.Fprintf(out, "  elapsed    %s\n", result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "Multinet model name (repeatable)")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "esp-sr model directory (overrides configuration)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path for the asset bundle")
	cmd.Flags().StringVar(&cnWakeWord, "cn-wake-word", "", "Chinese wake phrase")
	cmd.Flags().StringVar(&enWakeWord, "en-wake-word", "", "English wake phrase")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Detection threshold (unset keeps the configured default)")

	return cmd
}
