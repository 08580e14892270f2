// Command xqnnue exports trained xiangqi NNUE parameters to the engine's text
// format and counts the labelled samples of a training corpus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hailam/xqnnue/internal/config"
	"github.com/hailam/xqnnue/internal/logging"
	"github.com/hailam/xqnnue/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	logFormat  string
	cpuprofile string

	cfg    *config.Config
	logger *zap.Logger

	profileFile *os.File
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xqnnue",
	Short: "Xiangqi NNUE parameter exporter and training data tools",
	Long: `xqnnue turns a trained 630-256-32-32-2 evaluation network into the
per-layer text files the engine loads, and inspects the JSON sample shards
the network is trained on.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "xqnnue.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log encoding: console or json")
	rootCmd.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to file")

	rootCmd.AddCommand(exportCmd, countCmd, verifyCmd, evalCmd, initCheckpointCmd, historyCmd)
}

// setup loads the config, builds the logger and starts profiling.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if verbose {
		opts.Level = "debug"
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	logger, err = logging.New(opts)
	if err != nil {
		return err
	}

	profilePath := cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		profileFile = f
		logger.Debug("CPU profiling enabled", zap.String("path", profilePath))
	}
	return nil
}

func teardown() {
	if profileFile != nil {
		pprof.StopCPUProfile()
		profileFile.Close()
		profileFile = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// openStorage opens the configured badger database.
func openStorage() (*storage.Storage, error) {
	return storage.Open(cfg.Storage.Dir, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			teardown()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
