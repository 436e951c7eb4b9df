package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"risksim/internal/defaults"
	"risksim/internal/risk"

	"github.com/spf13/cobra"
)

var (
	defaultsProjectType  string
	defaultsProjectPhase string
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults <partial-risk.json>",
	Short: "Generate parameters for a risk with incomplete data",
	Long: `Fills the gaps in a partially specified risk using historical
patterns when the database has matching projects, configured category
defaults otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading risk data file: %w", err)
		}
		var data defaults.AvailableData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing risk data file %q: %w", args[0], err)
		}

		db, err := openPatternDB()
		if err != nil {
			return err
		}

		handler := defaults.NewHandler(defaults.NewConfig(), db)
		params, err := handler.GenerateDefaults(data, &defaults.ProjectContext{
			ProjectType:  defaultsProjectType,
			ProjectPhase: defaultsProjectPhase,
		})
		if err != nil {
			return err
		}
		validation := defaults.ValidateGeneratedDefaults(params)

		return emitJSON(struct {
			Parameters *defaults.DefaultParameters `json:"parameters"`
			Validation risk.ValidationResult       `json:"validation"`
		}{params, validation})
	},
}

func init() {
	defaultsCmd.Flags().StringVar(&defaultsProjectType, "project-type", "", "project type for pattern lookups")
	defaultsCmd.Flags().StringVar(&defaultsProjectPhase, "project-phase", "", "project phase for pattern lookups")
	rootCmd.AddCommand(defaultsCmd)
}
