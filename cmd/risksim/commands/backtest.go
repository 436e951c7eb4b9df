package commands

import (
	"fmt"

	"risksim/internal/simulation"

	"github.com/spf13/cobra"
)

var (
	backtestProjectType string
	backtestMinTrain    int
	backtestIterations  int
	backtestSeed        uint64
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Walk-forward validation of the risk model against past projects",
	Long: `Replays the recorded project history: for each completed project the
model is trained only on earlier projects, simulated, and scored on
whether the actual outcome fell inside the predicted cone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if backtestProjectType == "" {
			return fmt.Errorf("--project-type is required")
		}
		db, err := openPatternDB()
		if err != nil {
			return err
		}

		wf := simulation.NewWalkForwardEngine(simulation.NewEngine(), db.Outcomes())
		result, err := wf.Execute(cmd.Context(), simulation.WalkForwardConfig{
			ProjectType:      backtestProjectType,
			MinTrainProjects: backtestMinTrain,
			Iterations:       backtestIterations,
			Seed:             backtestSeed,
		})
		if err != nil {
			return err
		}
		return emitJSON(result)
	},
}

func init() {
	backtestCmd.Flags().StringVar(&backtestProjectType, "project-type", "", "project type to backtest")
	backtestCmd.Flags().IntVar(&backtestMinTrain, "min-train", 5, "projects required before the first checkpoint")
	backtestCmd.Flags().IntVar(&backtestIterations, "iterations", 0, "per-checkpoint simulation size")
	backtestCmd.Flags().Uint64Var(&backtestSeed, "seed", 1, "base random seed for checkpoint simulations")
	rootCmd.AddCommand(backtestCmd)
}
