package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/hailam/xqnnue/internal/nnue"
)

var (
	verifyPrefix     string
	verifyCheckpoint string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Reload exported text files and summarise each layer",
	Long: `Reads the files written by export back through the engine's layout,
checks every line and column count, and prints per-layer shapes with a short
summary. With --checkpoint the reloaded values are compared to the source.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPrefix, "prefix", "", "export prefix (default from config)")
	verifyCmd.Flags().StringVar(&verifyCheckpoint, "checkpoint", "", "checkpoint to compare against")
}

func runVerify(cmd *cobra.Command, args []string) error {
	arch := cfg.Export.Architecture
	prefix := cfg.Export.Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = verifyPrefix
	}

	exported, err := nnue.LoadExported(prefix, arch.InputSize, arch.OutSizes())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, s := range exported.Shapes() {
		w := exported.Weights(i)
		b := exported.Biases(i)
		fmt.Fprintf(out, "layer %d: %d -> %d  row0=%s  sum(w)=%.6g  sum(b)=%.6g\n",
			i+1, s.In, s.Out, head(w), mat.Sum(w), sum(b))
	}

	if verifyCheckpoint == "" {
		return nil
	}
	sd, err := nnue.LoadStateDict(verifyCheckpoint)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	source, err := arch.Assemble(sd)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", verifyCheckpoint, err)
	}

	worst := 0.0
	for i := 0; i < source.NumLayers(); i++ {
		worst = math.Max(worst, maxRelDiff(source.Weights(i), exported.Weights(i)))
		worst = math.Max(worst, maxRelDiff(mat.NewVecDense(len(source.Biases(i)), source.Biases(i)),
			mat.NewVecDense(len(exported.Biases(i)), exported.Biases(i))))
	}
	fmt.Fprintf(out, "max relative difference: %.3g\n", worst)
	// Ten significant digits are written per value.
	if worst > 1e-9 {
		return fmt.Errorf("exported values differ from %s by up to %.3g", verifyCheckpoint, worst)
	}
	return nil
}

// head formats the first values of the first exported weights line, which
// holds input 0's weight to each output.
func head(w mat.Matrix) string {
	rows, _ := w.Dims()
	n := min(rows, 3)
	s := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			s += " "
		}
		s += nnue.FormatValue(w.At(i, 0))
	}
	return s + "]"
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func maxRelDiff(a, b mat.Matrix) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return math.Inf(1)
	}
	worst := 0.0
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			x, y := a.At(i, j), b.At(i, j)
			d := math.Abs(x - y)
			if m := math.Max(math.Abs(x), math.Abs(y)); m > 0 {
				d /= m
			}
			worst = math.Max(worst, d)
		}
	}
	return worst
}
