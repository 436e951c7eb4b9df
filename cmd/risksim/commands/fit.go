package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"risksim/internal/dist"
	"risksim/internal/risk"

	"github.com/spf13/cobra"
)

var (
	fitDataPath   string
	fitCandidates []string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit candidate distributions to historical impact data",
	Long: `Reads a JSON array of observed impacts, fits every candidate
distribution family and reports the AIC ranking plus a
Kolmogorov-Smirnov goodness-of-fit assessment for the winner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fitDataPath == "" {
			return fmt.Errorf("--data is required")
		}
		raw, err := os.ReadFile(fitDataPath)
		if err != nil {
			return fmt.Errorf("reading data file: %w", err)
		}
		var data []float64
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing data file %q: expected a JSON array of numbers: %w", fitDataPath, err)
		}

		var candidates []risk.DistributionKind
		for _, c := range fitCandidates {
			candidates = append(candidates, risk.DistributionKind(c))
		}

		fit, err := dist.FitFromHistorical(data, candidates)
		if err != nil {
			return err
		}
		gof, err := dist.PerformGoodnessOfFitTest(data, fit.Best)
		if err != nil {
			return err
		}

		return emitJSON(struct {
			Fit           *dist.FitResult     `json:"fit"`
			GoodnessOfFit *dist.GoodnessOfFit `json:"goodness_of_fit"`
		}{fit, gof})
	},
}

func init() {
	fitCmd.Flags().StringVar(&fitDataPath, "data", "", "path to a JSON array of observed impacts")
	fitCmd.Flags().StringSliceVar(&fitCandidates, "candidates", nil, "distribution families to try (default: all)")
	rootCmd.AddCommand(fitCmd)
}
