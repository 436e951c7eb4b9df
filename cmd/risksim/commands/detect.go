package commands

import (
	"fmt"

	"risksim/internal/change"
	"risksim/internal/simulation"

	"github.com/spf13/cobra"
)

var (
	detectCurrentPath  string
	detectPreviousPath string
)

// detectReport is the command's stdout payload.
type detectReport struct {
	Report *change.Report          `json:"report"`
	Areas  []change.ValidationArea `json:"validation_areas,omitempty"`
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect model changes between two risk model files",
	Long: `Compares two risk model files and reports every change at or above the
configured sensitivity threshold (SENSITIVITY_THRESHOLD), together with
prioritized validation guidance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := loadModel(detectCurrentPath)
		if err != nil {
			return err
		}
		if detectPreviousPath == "" {
			return fmt.Errorf("--previous is required")
		}
		previous, err := loadModel(detectPreviousPath)
		if err != nil {
			return err
		}

		engine := simulation.NewEngineWithDetector(change.NewDetector(cfg.SensitivityThreshold))
		report, err := engine.DetectModelChanges(current.Risks, previous.Risks, "")
		if err != nil {
			return err
		}

		return emitJSON(detectReport{
			Report: report,
			Areas:  engine.HighlightValidationAreas(report),
		})
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectCurrentPath, "model", "", "path to the current risk model JSON file")
	detectCmd.Flags().StringVar(&detectPreviousPath, "previous", "", "path to the previous risk model JSON file")
	rootCmd.AddCommand(detectCmd)
}
