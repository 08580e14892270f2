package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hailam/xqnnue/internal/nnue"
	"github.com/hailam/xqnnue/internal/storage"
)

var (
	exportCheckpoint string
	exportPrefix     string
	exportWorkers    int
	exportNoHistory  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a checkpoint's layers as transposed text files",
	Long: `Loads a state dict checkpoint (.xqnn binary or .json), checks every layer
against the configured architecture and writes, per 1-indexed layer k:

  <prefix>layer_<k>_weights.txt   one line per input, values per output
  <prefix>layer_<k>_biases.txt    one value per line

Values use %.9e notation. The prefix is used verbatim.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportCheckpoint, "checkpoint", "", "checkpoint file (default from config)")
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "output path prefix (default from config)")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 0, "layers written concurrently (default from config)")
	exportCmd.Flags().BoolVar(&exportNoHistory, "no-history", false, "do not record the export in storage")
}

func runExport(cmd *cobra.Command, args []string) error {
	checkpoint := cfg.Export.Checkpoint
	if cmd.Flags().Changed("checkpoint") {
		checkpoint = exportCheckpoint
	}
	if checkpoint == "" {
		return errors.New("no checkpoint given: use --checkpoint or export.checkpoint")
	}
	prefix := cfg.Export.Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = exportPrefix
	}
	workers := cfg.Export.Workers
	if cmd.Flags().Changed("workers") {
		workers = exportWorkers
	}

	sd, err := nnue.LoadStateDict(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	params, err := cfg.Export.Architecture.Assemble(sd)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", checkpoint, err)
	}

	manifest, err := nnue.Export(cmd.Context(), params, nnue.ExportOptions{
		Prefix:  prefix,
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, l := range manifest.Layers {
		fmt.Fprintf(out, "layer %d  %4d x %-4d  %s  %016x\n", l.Index, l.In, l.Out, l.WeightsPath, l.WeightsXXH64)
		fmt.Fprintf(out, "             %4d       %s  %016x\n", l.Out, l.BiasesPath, l.BiasesXXH64)
	}

	if exportNoHistory {
		return nil
	}
	store, err := openStorage()
	if err != nil {
		logger.Warn("export history not recorded", zap.Error(err))
		return nil
	}
	defer store.Close()
	if err := store.RecordExport(storage.ExportRecord{Checkpoint: checkpoint, Manifest: *manifest}); err != nil {
		logger.Warn("export history not recorded", zap.Error(err))
	}
	return nil
}
