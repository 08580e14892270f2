package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hailam/xqnnue/internal/samples"
)

var (
	countRoot          string
	countExt           string
	countExclude       []string
	countWorkers       int
	countSkipMalformed bool
	countNoCache       bool
	countForget        bool
)

var countCmd = &cobra.Command{
	Use:   "count [root]",
	Short: "Count labelled samples in a directory of JSON shards",
	Long: `Walks root recursively, reads every file whose name ends with the
extension as a JSON array of records, and prints the total length of the
records' "data" arrays together with the number of files read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringVar(&countRoot, "root", "", "corpus directory (default from config)")
	countCmd.Flags().StringVar(&countExt, "ext", "", "shard file suffix (default from config)")
	countCmd.Flags().StringSliceVar(&countExclude, "exclude", nil, "doublestar pattern to skip, relative to root (repeatable)")
	countCmd.Flags().IntVar(&countWorkers, "workers", 0, "shards parsed concurrently (default from config)")
	countCmd.Flags().BoolVar(&countSkipMalformed, "skip-malformed", false, "count records without a data array as zero")
	countCmd.Flags().BoolVar(&countNoCache, "no-cache", false, "ignore and do not update the shard count cache")
	countCmd.Flags().BoolVar(&countForget, "forget", false, "drop the shard count cache before counting")
}

func runCount(cmd *cobra.Command, args []string) error {
	cc := cfg.Count
	root := cc.Root
	switch {
	case len(args) == 1:
		root = args[0]
	case cmd.Flags().Changed("root"):
		root = countRoot
	}
	if root == "" {
		return errors.New("no corpus root given")
	}

	opts := samples.Options{
		Extension:     cc.Extension,
		Exclude:       cc.Exclude,
		Workers:       cc.Workers,
		SkipMalformed: cc.SkipMalformed || countSkipMalformed,
		Logger:        logger,
	}
	if cmd.Flags().Changed("ext") {
		opts.Extension = countExt
	}
	if cmd.Flags().Changed("exclude") {
		opts.Exclude = countExclude
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = countWorkers
	}

	if cc.Cache && !countNoCache {
		store, err := openStorage()
		if err != nil {
			return fmt.Errorf("failed to open shard cache (use --no-cache to skip): %w", err)
		}
		defer store.Close()
		if countForget {
			if err := store.ForgetShards(); err != nil {
				return fmt.Errorf("failed to clear shard cache: %w", err)
			}
		}
		opts.Cache = store
	}

	res, err := samples.Count(cmd.Context(), root, opts)
	if err != nil {
		return err
	}

	logger.Debug("count finished",
		zap.Int64("skipped_records", res.Skipped),
		zap.Int("cached_files", res.Cached))
	fmt.Fprintf(cmd.OutOrStdout(), "Total samples: %d\n", res.Samples)
	fmt.Fprintf(cmd.OutOrStdout(), "Files: %d\n", res.Files)
	return nil
}
