package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded exports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of exports to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ExportHistory(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read export history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No exports recorded")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s  %s -> %q  %d layers\n",
			r.Time.Local().Format(time.DateTime), r.Checkpoint, r.Manifest.Prefix, len(r.Manifest.Layers))
		for _, l := range r.Manifest.Layers {
			fmt.Fprintf(out, "    layer %d  %016x  %016x\n", l.Index, l.WeightsXXH64, l.BiasesXXH64)
		}
	}
	return nil
}
