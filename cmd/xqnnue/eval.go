package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hailam/xqnnue/internal/board"
	"github.com/hailam/xqnnue/internal/nnue"
)

var (
	evalPrefix string
	evalFEN    string
	evalScale  int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a position with the exported network, as the engine does",
	Args:  cobra.NoArgs,
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalPrefix, "prefix", "", "export prefix (default from config)")
	evalCmd.Flags().StringVar(&evalFEN, "fen", board.StartFEN, "position to evaluate")
	evalCmd.Flags().IntVar(&evalScale, "scale", nnue.DefaultQuantScale, "quantisation scale")
}

func runEval(cmd *cobra.Command, args []string) error {
	arch := cfg.Export.Architecture
	prefix := cfg.Export.Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = evalPrefix
	}

	pos, err := board.ParseFEN(evalFEN)
	if err != nil {
		return err
	}
	params, err := nnue.LoadExported(prefix, arch.InputSize, arch.OutSizes())
	if err != nil {
		return err
	}
	net, err := nnue.NewNetwork(params, evalScale)
	if err != nil {
		return err
	}

	plus, minus := nnue.ActiveFeatures(pos, pos.SideToMove)
	fmt.Fprintf(cmd.OutOrStdout(), "features: %d plus, %d minus\n", len(plus), len(minus))
	fmt.Fprintf(cmd.OutOrStdout(), "eval: %d\n", net.EvaluatePosition(pos))
	return nil
}
